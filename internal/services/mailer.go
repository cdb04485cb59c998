package services

import (
	"fmt"
	"net/smtp"

	apperr "onlyz-dating-server/internal/errors"
)

// Mailer delivers outbound mail. Every caller in this package treats delivery
// as fire-and-forget: a returned error is logged and swallowed at the call
// site, never propagated and never allowed to roll back the triggering
// transaction.
type Mailer interface {
	Send(recipient, subject, body string) error
}

// SMTPMailer sends plain-text mail over SMTP. When no username is configured
// the mailer is disabled and Send is a silent no-op.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

func (m *SMTPMailer) Send(recipient, subject, body string) error {
	if m.username == "" {
		return nil
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.from, recipient, subject, body,
	))

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{recipient}, msg); err != nil {
		return fmt.Errorf("%w: smtp send: %v", apperr.ErrExternal, err)
	}
	return nil
}
