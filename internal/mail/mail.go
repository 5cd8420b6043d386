// Package mail delivers transactional email.
package mail

import (
	"context"
	"fmt"
	"html"
	"log/slog"
)

// Message is a single HTML email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationMessage builds the signup confirmation email for link.
func VerificationMessage(from, to, link string) Message {
	escaped := html.EscapeString(link)
	body := fmt.Sprintf(`<div style="font-family:system-ui,-apple-system,Arial,sans-serif">
  <h2>Verify your email</h2>
  <p>Click the link below to verify your email and complete signup:</p>
  <p><a href="%s">%s</a></p>
  <p>This link expires in 24 hours.</p>
</div>`, escaped, escaped)
	return Message{
		From:    from,
		To:      []string{to},
		Subject: "Verify your email",
		HTML:    body,
	}
}

// LogSender writes messages to the log instead of sending them. It is used when no provider key
// is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "mail")}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent, no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"html", msg.HTML,
	)
	return nil
}
