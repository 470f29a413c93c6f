package service

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/voxsentry/voxsentry/config"
)

// Mailer delivers out-of-band notifications. Delivery is best-effort: the
// workflows that send mail never fail because a send failed.
type Mailer interface {
	Send(to, subject, body string) error
}

// NewMailer returns an SMTP mailer when SMTP is configured and a log-only
// mailer otherwise, so development setups still surface the links.
func NewMailer(cfg config.SMTPConfig) Mailer {
	if cfg.Configured() {
		return &smtpMailer{cfg: cfg}
	}
	return logMailer{}
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.cfg.From, to, subject, body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	return smtp.SendMail(m.cfg.Addr(), auth, m.cfg.From, []string{to}, []byte(msg))
}

type logMailer struct{}

func (logMailer) Send(to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"body":    body,
	}).Info("SMTP not configured, logging email instead")
	return nil
}
