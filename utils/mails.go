package utils

import (
	"fmt"
	"net/smtp"
)

// Mailer sends rendered messages over SMTP. Callers that must never fail on
// a mail problem are expected to log the returned error and move on.
type Mailer struct {
	From     string
	Password string
	Host     string
	Port     string
}

func NewMailer(password string) *Mailer {
	return &Mailer{
		From:     "contact@soundbridge.live",
		Password: password,
		Host:     "smtp.gmail.com",
		Port:     "587",
	}
}

func (m *Mailer) Send(email string, message []byte) error {
	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)

	if err := smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{email}, message); err != nil {
		return fmt.Errorf("send mail to %s: %w", email, err)
	}
	return nil
}
