// Package github fetches public account events from the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/portfolio/internal/domain/activity"
	"github.com/okian/portfolio/pkg/logger"
	"github.com/okian/portfolio/pkg/metrics"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultPageSize  = 10
	defaultUserAgent = "portfolio-activity/1.0"
	acceptHeader     = "application/vnd.github.v3+json"

	// Upper bound on a response body; a page of 100 events is far below it.
	maxBodyBytes = 8 << 20
)

// Client lists public events. It keeps no per-request state and is safe
// for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
	userAgent  string
	logger     logger.Logger
}

// NewClient constructs a Client with defaults overridden by opts.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		pageSize:  defaultPageSize,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient()
	}
	if c.logger == nil {
		c.logger = logger.Named("github")
	}
	return c
}

// ListPublicEvents performs a single GET /users/{account}/events/public.
// Errors are *activity.FetchError values; nothing is retried.
func (c *Client) ListPublicEvents(ctx context.Context, account string) ([]activity.RawEvent, error) {
	endpoint := fmt.Sprintf("%s/users/%s/events/public?per_page=%d", c.baseURL, url.PathEscape(account), c.pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, activity.NetworkFailure(err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordUpstreamLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, activity.NetworkFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug(ctx, "events response",
		logger.String("account", account),
		logger.Int("status", resp.StatusCode),
		logger.String("ratelimit_remaining", resp.Header.Get("X-RateLimit-Remaining")),
		logger.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, activity.UpstreamUnavailable(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, activity.NetworkFailure(err)
	}
	if len(body) > maxBodyBytes {
		return nil, activity.MalformedResponse(fmt.Errorf("body exceeds %d bytes", maxBodyBytes))
	}

	events, err := activity.DecodeEvents(body)
	if err != nil {
		return nil, activity.MalformedResponse(err)
	}
	return events, nil
}
