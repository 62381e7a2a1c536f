package mailer

import (
	"context"
	"errors"
	"io"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("mail has no recipient")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Attachment is a file shown inline in the HTML body, referenced as
// cid:<Name>.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	To      []string
	Subject string
	HTML    string
	Inline  []Attachment
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type smtpSender struct {
	d    *gomail.Dialer
	from string
}

func NewSMTPSender(cfg Config) Sender {
	return &smtpSender{
		d:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from: cfg.From,
	}
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	m, err := build(s.from, msg)
	if err != nil {
		return err
	}

	// gomail has no context support; a cancelled caller stops waiting but
	// the dial finishes in the background.
	errCh := make(chan error, 1)
	go func() { errCh <- s.d.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func build(from string, msg Message) (*gomail.Message, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipient
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	for _, a := range msg.Inline {
		data := a.Data
		m.Embed(a.Name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}

	return m, nil
}
