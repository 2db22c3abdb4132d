// Package mail delivers contact form submissions.
package mail

import (
	"context"
	"time"

	"github.com/okian/portfolio/internal/domain/contact"
	"github.com/okian/portfolio/pkg/logger"
)

// LogNotifier records submissions in the service log. It is the default
// when no SMTP server is configured.
type LogNotifier struct {
	logger logger.Logger
	delay  time.Duration
}

// NewLogNotifier waits delay before acknowledging each submission.
func NewLogNotifier(l logger.Logger, delay time.Duration) *LogNotifier {
	return &LogNotifier{logger: l, delay: delay}
}

// Notify implements contact.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, s contact.Submission) error {
	n.logger.Info(ctx, "contact form submission",
		logger.String("name", s.Name),
		logger.String("email", s.Email),
		logger.String("message", s.Message),
	)
	if n.delay <= 0 {
		return nil
	}
	t := time.NewTimer(n.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
