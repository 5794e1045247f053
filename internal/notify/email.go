package notify

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// EmailSender delivers reminders over SMTP as a fallback channel alongside
// push. The recipient address is the user identifier, which is an email
// address in this system.
type EmailSender struct {
	cfg    Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailSender(cfg Config, logger *logrus.Logger) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		logger: logger,
		send:   func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (s *EmailSender) SendReminder(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		return fmt.Errorf("send reminder email to %s: %w", to, err)
	}

	s.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("reminder email sent")
	return nil
}
