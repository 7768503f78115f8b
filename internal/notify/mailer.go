// Package notify delivers outbound email and webhook notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/support-desk/internal/config"
)

// ErrMailerDisabled is returned when no SMTP host is configured.
var ErrMailerDisabled = errors.New("smtp delivery disabled")

// Email is a single outbound message.
type Email struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer sends emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer delivers email through gomail.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer builds a mailer. An empty host yields a mailer whose Send returns ErrMailerDisabled.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	mailer := &SMTPMailer{cfg: cfg}
	if strings.TrimSpace(cfg.Host) != "" {
		mailer.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return mailer
}

// Enabled reports whether a transport is configured.
func (m *SMTPMailer) Enabled() bool {
	return m != nil && m.dialer != nil
}

// Send delivers the email synchronously.
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.buildMessage(email)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// ResetLink renders the password reset URL for a token.
func (m *SMTPMailer) ResetLink(token string) string {
	return fmt.Sprintf("%s/auth/reset-password?token=%s", strings.TrimRight(m.cfg.BaseURL, "/"), token)
}

func (m *SMTPMailer) buildMessage(email Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromAddress, m.cfg.FromName)
	msg.SetHeader("To", email.To)
	if email.ReplyTo != "" {
		msg.SetHeader("Reply-To", email.ReplyTo)
	}
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Body)
	msg.AddAlternative("text/html", renderHTML(email.Body))
	return msg
}

func renderHTML(body string) string {
	escaped := html.EscapeString(body)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
	return "<html>\n<body>\n<p>" + escaped + "</p>\n</body>\n</html>\n"
}
