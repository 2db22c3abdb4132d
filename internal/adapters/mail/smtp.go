package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/okian/portfolio/internal/domain/contact"
	"github.com/okian/portfolio/pkg/logger"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails each submission to a fixed recipient.
type SMTPNotifier struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	recipient string
	send      SendFunc
	logger    logger.Logger
}

// SMTPOption applies a configuration option to the SMTPNotifier.
type SMTPOption func(*SMTPNotifier)

// WithSendFunc replaces smtp.SendMail, for tests.
func WithSendFunc(f SendFunc) SMTPOption {
	return func(n *SMTPNotifier) {
		if f != nil {
			n.send = f
		}
	}
}

// WithFrom sets the envelope sender; the username is used otherwise.
func WithFrom(from string) SMTPOption {
	return func(n *SMTPNotifier) {
		if from != "" {
			n.from = from
		}
	}
}

// NewSMTPNotifier authenticates with PLAIN auth against host:port.
func NewSMTPNotifier(host string, port int, username, password, recipient string, l logger.Logger, opts ...SMTPOption) *SMTPNotifier {
	n := &SMTPNotifier{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		from:      username,
		recipient: recipient,
		send:      smtp.SendMail,
		logger:    l,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify implements contact.Notifier. net/smtp has no context support, so
// ctx only short-circuits an already cancelled request.
func (n *SMTPNotifier) Notify(ctx context.Context, s contact.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	addr := net.JoinHostPort(n.host, strconv.Itoa(n.port))
	if err := n.send(addr, auth, n.from, []string{n.recipient}, n.compose(s)); err != nil {
		n.logger.Error(ctx, "contact mail failed", logger.String("smtp_addr", addr), logger.Error(err))
		return fmt.Errorf("send contact mail: %w", err)
	}
	n.logger.Info(ctx, "contact mail sent", logger.String("email", s.Email))
	return nil
}

func (n *SMTPNotifier) compose(s contact.Submission) []byte {
	name := headerSafe(s.Name)
	var b strings.Builder
	b.WriteString("To: " + n.recipient + "\r\n")
	b.WriteString("From: " + n.from + "\r\n")
	b.WriteString("Reply-To: " + headerSafe(s.Email) + "\r\n")
	b.WriteString("Subject: Portfolio Contact: " + name + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "New contact form submission from your portfolio:\r\n\r\nName: %s\r\nEmail: %s\r\nMessage:\r\n%s\r\n",
		name, headerSafe(s.Email), s.Message)
	return []byte(b.String())
}

// headerSafe strips line breaks so user input cannot add headers.
func headerSafe(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
