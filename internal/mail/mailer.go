package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"expensetracker/internal/log"
)

const resetSubject = "Password Reset Request"

// Mailer delivers account mail.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendPasswordReset mails the reset link to the user.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(resetMessage(m.cfg.From, to, link)); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

func resetMessage(from, to, link string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", resetSubject)
	msg.SetBody("text/plain", "Click the link to reset your password: "+link)
	return msg
}

// LogMailer logs the recipient instead of sending mail. The reset link is only
// written at debug level. Used when no SMTP host is configured.
type LogMailer struct {
	logger *log.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *log.Logger) *LogMailer {
	return &LogMailer{logger: logger.WithComponent(log.ComponentMail)}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	m.logger.InfoContext(ctx, "password reset mail not sent, smtp disabled", "to", to)
	m.logger.DebugContext(ctx, "password reset link", "to", to, "link", link)
	return nil
}

// New picks the SMTP mailer when a host is configured and the log mailer otherwise.
func New(cfg SMTPConfig, logger *log.Logger) Mailer {
	if cfg.Host == "" {
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}
