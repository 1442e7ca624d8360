package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/reporthere/reporthere/internal/models"
)

// Sender delivers a rendered email to a recipient. Implementations
// return a provider message ID on success.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
	Name() string
}

// SMTPConfig configures the SMTP sender. Loaded from the mail config
// file or flags.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SMTPSender delivers mail over SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Name returns the sender name.
func (s *SMTPSender) Name() string { return "smtp" }

// Send delivers a single message. The returned ID is generated locally;
// SMTP has no provider message ID to report.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) (string, error) {
	var msg strings.Builder
	msg.WriteString("From: " + s.cfg.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}

	return models.NewID().String(), nil
}

// LogSender logs messages instead of delivering them. Used in
// development and tests.
type LogSender struct{}

// Name returns the sender name.
func (s *LogSender) Name() string { return "log" }

// Send logs the message and reports success.
func (s *LogSender) Send(ctx context.Context, to, subject, html string) (string, error) {
	id := models.NewID().String()
	log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("message_id", id).
		Int("html_bytes", len(html)).
		Msg("Email send (log sender)")
	return id, nil
}
