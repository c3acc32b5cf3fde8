// Package notify delivers operator notifications for new submissions.
// When no mail credentials are configured, delivery degrades to a logged
// acknowledgment and the caller still observes success.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Message is one notification to deliver.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a notification. Implementations must treat delivery
// as best-effort from the caller's perspective.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the process log. It is the fallback
// when mail is not configured.
type LogNotifier struct{}

// NewLogNotifier creates the log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the notification and always succeeds.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("notification (log only): %s", msg.Subject)
	return nil
}

// SMTPConfig holds mail delivery settings. All fields are required for
// the SMTP path to be enabled.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Enabled reports whether the config is complete enough to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.From != "" && len(c.To) > 0
}

// SMTPNotifier delivers notifications as plain-text email.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTPNotifier creates a mail notifier from a complete config.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// Send delivers the message to every configured recipient.
func (n *SMTPNotifier) Send(_ context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		n.cfg.From, strings.Join(n.cfg.To, ", "), msg.Subject, msg.Body)

	if err := smtp.SendMail(addr, auth, n.cfg.From, n.cfg.To, []byte(body)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// FromConfig picks the SMTP path when configured and the log fallback
// otherwise.
func FromConfig(cfg SMTPConfig) Notifier {
	if cfg.Enabled() {
		return NewSMTPNotifier(cfg)
	}
	log.Printf("mail not configured, notifications will be log only")
	return NewLogNotifier()
}
