package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/portfolio/internal/domain/activity"
	"github.com/okian/portfolio/pkg/logger"
)

// activityFailedMessage is the only error text clients ever see for /activity.
const activityFailedMessage = "Failed to fetch GitHub activity"

// ActivityHandler serves the recent activity feed.
type ActivityHandler struct {
	deps     Dependencies
	timeout  time.Duration
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(deps Dependencies, timeout, cacheTTL time.Duration, l logger.Logger) *ActivityHandler {
	return &ActivityHandler{deps: deps, timeout: timeout, cacheTTL: cacheTTL, logger: l}
}

// HandleGetActivity handles GET /activity requests.
func (h *ActivityHandler) HandleGetActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	feed, err := h.deps.Activity(ctx)
	if err != nil {
		h.logger.Error(r.Context(), "activity request failed",
			logger.String("request_id", RequestIDFromContext(r.Context())),
			logger.String("kind", activity.KindLabel(err)),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, activityFailedMessage)
		return
	}
	if feed.Items == nil {
		feed.Items = []activity.Item{}
	}

	if h.cacheTTL > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int64(h.cacheTTL/time.Second)))
	}
	writeJSON(w, http.StatusOK, feed)
}
