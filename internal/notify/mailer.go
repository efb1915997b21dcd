package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Mailer delivers a plain-text message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a relay configured from the environment.
type SMTPMailer struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

// NewSMTPMailer builds a mailer for the given relay. user/password may be
// empty for an open relay.
func NewSMTPMailer(addr, from, user, password string) *SMTPMailer {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer logs messages instead of delivering them. Used when no relay is
// configured, and in tests.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer { return &LogMailer{logger: logger} }

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Infow("mail (not delivered, no relay configured)", "to", to, "subject", subject, "body", body)
	return nil
}

// MailerFromEnv returns an SMTPMailer when SMTP_ADDR is set, a LogMailer
// otherwise.
func MailerFromEnv(logger *zap.SugaredLogger) Mailer {
	addr := os.Getenv("SMTP_ADDR")
	if addr == "" {
		return NewLogMailer(logger)
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "no-reply@biblioteca.local"
	}
	return NewSMTPMailer(addr, from, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"))
}
