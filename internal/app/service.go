// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/portfolio/internal/domain/activity"
	"github.com/okian/portfolio/internal/domain/contact"
	"github.com/okian/portfolio/internal/domain/dedupe"
	"github.com/okian/portfolio/pkg/logger"
	"github.com/okian/portfolio/pkg/metrics"
)

// cacheStats is implemented by fetchers that keep hit/miss counters.
type cacheStats interface {
	Stats() (hits, misses int64)
}

// Service implements the API dependencies for the portfolio backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	fetcher   activity.Fetcher
	notifier  contact.Notifier
	validator *contact.Validator
	deduper   dedupe.Deduper

	// Configuration
	account string
	limit   int

	// State
	startedAt        time.Time
	activityRequests int64
	activityFailures map[string]int64
	lastSuccess      time.Time
	contactResults   map[string]int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetcher sets the activity source, usually a cache in front of the normalizer.
func WithFetcher(f activity.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithNotifier sets how valid contact submissions are delivered.
func WithNotifier(n contact.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithValidator replaces the default contact form validator.
func WithValidator(v *contact.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithDeduper acknowledges repeated identical submissions without
// delivering them again.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.deduper = d
	}
}

// WithAccount sets the account shown on the site.
func WithAccount(account string) Option {
	return func(s *Service) {
		s.account = account
	}
}

// WithLimit sets how many activity items the site shows.
func WithLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		limit:            5,
		startedAt:        time.Now(),
		activityFailures: make(map[string]int64),
		contactResults:   make(map[string]int64),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.validator == nil {
		s.validator = contact.NewValidator()
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s
}

// Activity returns the feed for the configured account and limit.
func (s *Service) Activity(ctx context.Context) (activity.Feed, error) {
	return s.FetchRecentActivity(ctx, s.account, s.limit)
}

// FetchRecentActivity returns at most limit recent public activity items for account.
func (s *Service) FetchRecentActivity(ctx context.Context, account string, limit int) (activity.Feed, error) {
	if s.fetcher == nil {
		return activity.Feed{}, ErrNoFetcher
	}

	start := time.Now()
	feed, err := s.fetcher.FetchRecentActivity(ctx, account, limit)
	outcome := activity.KindLabel(err)
	metrics.RecordActivityFetch(outcome)

	s.mu.Lock()
	s.activityRequests++
	if err != nil {
		s.activityFailures[outcome]++
	} else {
		s.lastSuccess = time.Now()
	}
	s.mu.Unlock()

	if err != nil {
		var fe *activity.FetchError
		fields := []logger.Field{
			logger.String("account", account),
			logger.String("kind", outcome),
			logger.Error(err),
		}
		if errors.As(err, &fe) && fe.StatusCode != 0 {
			fields = append(fields, logger.Int("status", fe.StatusCode))
		}
		// the HTTP handler reports the failure at error level
		s.logger.Debug(ctx, "fetch recent activity failed", fields...)
		return activity.Feed{}, err
	}

	metrics.RecordActivityItems(len(feed.Items))
	metrics.UpdateActivityLastSuccess(time.Now().Unix())
	s.logger.Debug(ctx, "fetched recent activity",
		logger.String("account", feed.Account),
		logger.Int("items", len(feed.Items)),
		logger.Duration("took", time.Since(start)),
	)
	return feed, nil
}

// SubmitContact validates and delivers a contact form submission. The
// returned state is always ready to render; the error tells the caller
// whether validation (ErrInvalidSubmission) or delivery (ErrDeliveryFailed)
// went wrong.
func (s *Service) SubmitContact(ctx context.Context, sub contact.Submission) (contact.State, error) {
	if fieldErrs := s.validator.Validate(sub); !fieldErrs.Empty() {
		s.recordContact("invalid")
		return contact.State{
			Success: false,
			Message: contact.MsgValidationFailed,
			Errors:  &fieldErrs,
		}, ErrInvalidSubmission
	}

	if s.notifier == nil {
		s.recordContact("failed")
		s.logger.Error(ctx, "contact submission dropped", logger.Error(ErrNoNotifier))
		return contact.State{Message: contact.MsgDeliveryFailed}, fmt.Errorf("%w: %w", ErrDeliveryFailed, ErrNoNotifier)
	}

	key := contact.Fingerprint(sub)
	if s.deduper != nil && s.deduper.SeenAndRecord(ctx, key) {
		s.recordContact("duplicate")
		s.logger.Info(ctx, "duplicate contact submission acknowledged", logger.String("email", sub.Email))
		return contact.State{Success: true, Message: contact.MsgDelivered}, nil
	}

	if err := s.notifier.Notify(ctx, sub); err != nil {
		// allow the visitor to retry the same message
		if s.deduper != nil {
			s.deduper.Unrecord(ctx, key)
		}
		s.recordContact("failed")
		s.logger.Error(ctx, "contact delivery failed", logger.Error(err))
		return contact.State{Message: contact.MsgDeliveryFailed}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	s.recordContact("delivered")
	return contact.State{Success: true, Message: contact.MsgDelivered}, nil
}

func (s *Service) recordContact(result string) {
	metrics.RecordContactSubmission(result)
	s.mu.Lock()
	s.contactResults[result]++
	s.mu.Unlock()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failures := make(map[string]int64, len(s.activityFailures))
	for k, v := range s.activityFailures {
		failures[k] = v
	}
	contacts := make(map[string]int64, len(s.contactResults))
	for k, v := range s.contactResults {
		contacts[k] = v
	}

	stats := map[string]interface{}{
		"account":            s.account,
		"limit":              s.limit,
		"uptimeSeconds":      int64(time.Since(s.startedAt).Seconds()),
		"activityRequests":   s.activityRequests,
		"activityFailures":   failures,
		"contactSubmissions": contacts,
	}
	if !s.lastSuccess.IsZero() {
		stats["lastSuccess"] = s.lastSuccess.UTC().Format(time.RFC3339)
	}
	if cs, ok := s.fetcher.(cacheStats); ok {
		hits, misses := cs.Stats()
		stats["cacheHits"] = hits
		stats["cacheMisses"] = misses
	}
	if s.deduper != nil {
		stats["contactDedupeSize"] = s.deduper.Size()
	}

	return stats
}
