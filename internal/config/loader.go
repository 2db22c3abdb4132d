package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "PORTFOLIO_"
	envConfigFile = envPrefix + "CONFIG"
	envDotenvFile = envPrefix + "DOTENV"
	defaultDotenv = ".env"

	// GitHub caps per_page at 100.
	maxPageSize = 100
)

// Load builds a Config by layering defaults, dotenv, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PORTFOLIO_CONFIG is set
//  3. env (prefix PORTFOLIO_, "__" separates nested keys)
//
// A dotenv file (PORTFOLIO_DOTENV, or ./.env when present) is read into the
// process environment first; variables already set are not overridden.
func Load(_ context.Context) (*Config, error) {
	base := New()

	if err := loadDotenv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PORTFOLIO_GITHUB__ACCOUNT -> github.account, PORTFOLIO_LOG_LEVEL -> log_level
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg.GitHub.Account = strings.TrimSpace(cfg.GitHub.Account)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv() error {
	path := os.Getenv(envDotenvFile)
	if path == "" {
		if _, err := os.Stat(defaultDotenv); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrLoadDotenv, err)
		}
		path = defaultDotenv
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadDotenv, path, err)
	}
	return nil
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json")
	case c.GitHub.PageSize <= 0 || c.GitHub.PageSize > maxPageSize:
		return invalid("github.page_size must be between 1 and 100")
	case c.Activity.Limit <= 0:
		return invalid("activity.limit must be positive")
	case c.Activity.RequestTimeout <= 0:
		return invalid("activity.request_timeout must be positive")
	case c.Activity.CacheTTL < 0:
		return invalid("activity.cache_ttl must not be negative")
	case c.Contact.DeliveryDelay < 0 || c.Contact.DedupeWindow < 0:
		return invalid("contact durations must not be negative")
	case c.SMTP.Enabled() && c.Contact.Recipient == "":
		return invalid("contact.recipient is required when smtp is configured")
	case !metricName(c.Metrics.Namespace) || (c.Metrics.Subsystem != "" && !metricName(c.Metrics.Subsystem)):
		return invalid("metrics.namespace and metrics.subsystem must be metric name parts")
	case !ascending(c.Metrics.HTTPBuckets):
		return invalid("metrics.http_buckets must be strictly increasing")
	}
	for name := range c.Metrics.ConstLabels {
		if !metricName(name) {
			return invalid("metrics.const_labels has an invalid label name: " + name)
		}
	}
	if err := validateBaseURL("github.api_url", c.GitHub.APIURL); err != nil {
		return err
	}
	return validateBaseURL("github.html_url", c.GitHub.HTMLURL)
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid(key + " must be an absolute http(s) URL")
	}
	return nil
}

// metricName reports whether s is usable as a Prometheus name part.
func metricName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func ascending(b []float64) bool {
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			return false
		}
	}
	return true
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
