// utils/mailer.go
package utils

import (
	"fmt"
	"net/smtp"
	"os"
)

// EmailSender is the narrow interface services depend on; tests swap in a
// recording fake.
type EmailSender interface {
	SendEmail(to, subject, htmlBody string) error
}

// SMTPMailer sends HTML mail through a plain SMTP relay configured from the
// environment (SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD).
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

func (m *SMTPMailer) SendEmail(to, subject, htmlBody string) error {
	if to == "" || subject == "" || htmlBody == "" {
		return fmt.Errorf("email, subject and body are required")
	}

	from := m.From
	if from == "" {
		from = m.Username
	}

	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		htmlBody + "\r\n")

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}
