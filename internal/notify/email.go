package notify

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"pixmonitor/internal/config"
)

// EmailSender delivers alerts over SMTP, for deployments where WhatsApp is
// not an option.
type EmailSender struct {
	cfg config.SMTPConfig
}

var _ Sender = (*EmailSender)(nil)

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send delivers a plain text email. SMTP has no delivery id, so the
// recipient address is returned for logging.
func (s *EmailSender) Send(_ context.Context, msg Message) (string, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	dialer := gomail.NewDialer(s.cfg.Server, s.cfg.Port, s.cfg.User, s.cfg.Pass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", s.cfg.To, err)
	}

	return fmt.Sprintf("smtp:%s", s.cfg.To), nil
}
