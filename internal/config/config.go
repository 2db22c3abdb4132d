// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Config is built once at process start and passed to constructors;
//     no package reads the environment on its own.
//   - Provide New() to build a Config with defaults.
//   - Loader errors wrap this package's sentinel errors.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	GitHub   GitHub   `koanf:"github"`
	Activity Activity `koanf:"activity"`
	Contact  Contact  `koanf:"contact"`
	SMTP     SMTP     `koanf:"smtp"`
	Metrics  Metrics  `koanf:"metrics"`
}

// GitHub configures the upstream public events API.
type GitHub struct {
	// Account is the user whose public events are shown. Empty disables the feed.
	Account string `koanf:"account"`

	// Token is an optional access token, sent only to raise rate limits.
	Token string `koanf:"token"`

	// APIURL is the REST API base, e.g. https://api.github.com.
	APIURL string `koanf:"api_url"`

	// HTMLURL is the web host used to build repository links.
	HTMLURL string `koanf:"html_url"`

	// PageSize is the number of raw events requested per fetch.
	PageSize int `koanf:"page_size"`

	UserAgent string `koanf:"user_agent"`
}

// Activity configures the activity feed endpoint.
type Activity struct {
	// Limit bounds the number of items returned by GET /activity.
	Limit int `koanf:"limit"`

	// RequestTimeout bounds a single upstream fetch.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// CacheTTL is the revalidation window; zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// Contact configures contact form delivery.
type Contact struct {
	// Recipient receives submissions when SMTP delivery is enabled.
	Recipient string `koanf:"recipient"`

	// DeliveryDelay is applied before acknowledging a logged submission.
	DeliveryDelay time.Duration `koanf:"delivery_delay"`

	// DedupeWindow is how long an identical submission is acknowledged
	// without being delivered again. Zero disables duplicate detection.
	DedupeWindow time.Duration `koanf:"dedupe_window"`
}

// SMTP configures mail delivery. Delivery falls back to logging when Host
// or credentials are empty.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Metrics configures the Prometheus collectors exposed on /healthz.
type Metrics struct {
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`

	// ConstLabels are attached to every series, e.g. service or env.
	ConstLabels map[string]string `koanf:"const_labels"`

	// HTTPBuckets overrides the request duration histogram buckets (ms).
	HTTPBuckets []float64 `koanf:"http_buckets"`
}

// Enabled reports whether SMTP delivery is fully configured.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":8080",
		GitHub: GitHub{
			Account:   "",
			APIURL:    "https://api.github.com",
			HTMLURL:   "https://github.com",
			PageSize:  10,
			UserAgent: "portfolio-activity/1.0",
		},
		Activity: Activity{
			Limit:          5,
			RequestTimeout: 10 * time.Second,
			CacheTTL:       time.Hour,
		},
		Contact: Contact{
			DeliveryDelay: 0,
			DedupeWindow:  10 * time.Minute,
		},
		SMTP: SMTP{
			Port: 587,
		},
		Metrics: Metrics{
			Namespace:   "portfolio",
			Subsystem:   "api",
			ConstLabels: map[string]string{"service": "portfolio"},
		},
	}
}
