package documents

import (
	"bytes"
	"io"

	mail "gopkg.in/mail.v2"

	"gasflow/config"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Name string
	Data []byte
}

// Mailer sends one message with optional attachments.
type Mailer interface {
	Send(to, subject, body string, attachments ...Attachment) error
}

// SMTPMailer delivers through the configured SMTP relay.
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	return &SMTPMailer{dialer: d, from: cfg.From}
}

func (m *SMTPMailer) Send(to, subject, body string, attachments ...Attachment) error {
	msg := buildMessage(m.from, to, subject, body, attachments)
	return m.dialer.DialAndSend(msg)
}

func buildMessage(from, to, subject, body string, attachments []Attachment) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	for _, a := range attachments {
		data := a.Data
		msg.Attach(a.Name, mail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(data))
			return err
		}))
	}
	return msg
}
