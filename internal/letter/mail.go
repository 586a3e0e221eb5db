package letter

import (
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// ErrNoRecipient is returned when neither a recipient nor a default exists.
var ErrNoRecipient = errors.New("letter: no recipient")

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends letters and digests over SMTP.
type Mailer struct {
	sender    Sender
	from      string
	defaultTo string
}

// NewMailer creates a mailer that dials host:port with the given credentials.
func NewMailer(host string, port int, username, password, from, defaultTo string) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(host, port, username, password), from, defaultTo)
}

// NewMailerWithSender creates a mailer around an existing sender.
func NewMailerWithSender(s Sender, from, defaultTo string) *Mailer {
	return &Mailer{sender: s, from: from, defaultTo: defaultTo}
}

// Send mails body as plain text. attachPath, when set, is attached.
// An empty to falls back to the configured default recipient.
func (m *Mailer) Send(to, subject, body, attachPath string) error {
	if to == "" {
		to = m.defaultTo
	}
	if to == "" {
		return ErrNoRecipient
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if attachPath != "" {
		msg.Attach(attachPath)
	}

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}
