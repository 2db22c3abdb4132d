package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/portfolio/internal/adapters/cache"
	"github.com/okian/portfolio/internal/adapters/github"
	"github.com/okian/portfolio/internal/adapters/http/api"
	"github.com/okian/portfolio/internal/adapters/http/site"
	"github.com/okian/portfolio/internal/adapters/http/swagger"
	"github.com/okian/portfolio/internal/adapters/mail"
	app "github.com/okian/portfolio/internal/app"
	"github.com/okian/portfolio/internal/config"
	"github.com/okian/portfolio/internal/domain/activity"
	"github.com/okian/portfolio/internal/domain/contact"
	"github.com/okian/portfolio/internal/domain/dedupe"
	"github.com/okian/portfolio/pkg/logger"
	"github.com/okian/portfolio/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	writeTimeoutSlack = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
		metrics.WithConstLabels(cfg.Metrics.ConstLabels),
		metrics.WithHistogramBuckets(cfg.Metrics.HTTPBuckets),
	)

	if cfg.GitHub.Account == "" {
		loggerInstance.Warn(ctx, "github.account is not set; /activity will return an empty list")
	}

	client := github.NewClient(
		github.WithBaseURL(cfg.GitHub.APIURL),
		github.WithToken(cfg.GitHub.Token),
		github.WithPageSize(cfg.GitHub.PageSize),
		github.WithUserAgent(cfg.GitHub.UserAgent),
	)
	var fetcher activity.Fetcher = activity.NewNormalizer(client, cfg.GitHub.HTMLURL)
	if cfg.Activity.CacheTTL > 0 {
		fetcher = cache.New(fetcher,
			cache.WithTTL(cfg.Activity.CacheTTL),
			cache.WithFetchTimeout(cfg.Activity.RequestTimeout),
		)
	}

	svcOpts := []app.Option{
		app.WithLogger(logger.Named("service")),
		app.WithFetcher(fetcher),
		app.WithNotifier(newNotifier(ctx, cfg, loggerInstance)),
		app.WithAccount(cfg.GitHub.Account),
		app.WithLimit(cfg.Activity.Limit),
	}
	if cfg.Contact.DedupeWindow > 0 {
		svcOpts = append(svcOpts, app.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithWindow(cfg.Contact.DedupeWindow))))
	}
	svc := app.New(svcOpts...)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Landing page at /, API docs at /api-docs
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithRequestTimeout(cfg.Activity.RequestTimeout),
		api.WithCacheTTL(cfg.Activity.CacheTTL),
		api.WithLogger(logger.Named("api")),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.RequestIDMiddleware(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.Activity.RequestTimeout + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("account", cfg.GitHub.Account),
			logger.Int("limit", cfg.Activity.Limit),
			logger.Duration("cache_ttl", cfg.Activity.CacheTTL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		loggerInstance.Error(ctx, "HTTP server failed", logger.Error(errors.Join(api.ErrServe, err)))
		stop()
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newNotifier selects SMTP delivery when it is fully configured and logs
// submissions otherwise.
func newNotifier(ctx context.Context, cfg *config.Config, l logger.Logger) contact.Notifier {
	if cfg.SMTP.Enabled() {
		l.Info(ctx, "contact delivery via smtp",
			logger.String("smtp_host", cfg.SMTP.Host),
			logger.Int("smtp_port", cfg.SMTP.Port),
		)
		return mail.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password,
			cfg.Contact.Recipient, logger.Named("mail"), mail.WithFrom(cfg.SMTP.From))
	}
	l.Info(ctx, "contact delivery via log")
	return mail.NewLogNotifier(logger.Named("mail"), cfg.Contact.DeliveryDelay)
}
