// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/portfolio/internal/domain/activity"
	"github.com/okian/portfolio/internal/domain/contact"
	"github.com/okian/portfolio/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Activity returns the feed for the configured account and limit.
	Activity(ctx context.Context) (activity.Feed, error)

	// SubmitContact validates and delivers a contact form post. The state is
	// always renderable; a non-nil error selects the status code.
	SubmitContact(ctx context.Context, s contact.Submission) (contact.State, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	activityHandler *ActivityHandler
	contactHandler  *ContactHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	requestTimeout time.Duration
	cacheTTL       time.Duration
	logger         logger.Logger
}

// WithRequestTimeout bounds each activity fetch.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// WithCacheTTL advertises the activity cache lifetime to clients. Zero
// leaves responses without a Cache-Control header.
func WithCacheTTL(d time.Duration) Option {
	return func(o *serverOptions) {
		if d >= 0 {
			o.cacheTTL = d
		}
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{requestTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("api")
	}

	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		activityHandler: NewActivityHandler(deps, o.requestTimeout, o.cacheTTL, o.logger),
		contactHandler:  NewContactHandler(deps, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/activity", MetricsMiddleware(s.activityHandler.HandleGetActivity, "activity"))
	mux.HandleFunc("/contact", MetricsMiddleware(s.contactHandler.HandlePostContact, "contact"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "")
}
