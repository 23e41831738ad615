package notifier

import (
	"context"
	"fmt"

	"github.com/goliatone/go-accounts"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridClient is the part of *sendgrid.Client used here
type SendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid sends messages through the SendGrid v3 API
type SendGrid struct {
	client SendGridClient
	from   *mail.Email
}

var _ accounts.Notifier = (*SendGrid)(nil)

// NewSendGrid creates a SendGrid sender
func NewSendGrid(apiKey, from, fromName string) *SendGrid {
	return NewSendGridWithClient(sendgrid.NewSendClient(apiKey), from, fromName)
}

// NewSendGridWithClient creates a SendGrid sender on an existing client
func NewSendGridWithClient(client SendGridClient, from, fromName string) *SendGrid {
	return &SendGrid{
		client: client,
		from:   mail.NewEmail(fromName, from),
	}
}

func (s *SendGrid) Send(ctx context.Context, msg accounts.Message) error {
	message := s.build(msg)

	res, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return sendError("sendgrid", err)
	}
	if res.StatusCode >= 400 {
		return sendError("sendgrid", fmt.Errorf("status %d: %s", res.StatusCode, res.Body))
	}
	return nil
}

func (s *SendGrid) build(msg accounts.Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.To))
	m.AddPersonalizations(p)

	m.AddContent(mail.NewContent("text/plain", msg.Text))
	if msg.HasHTML() {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	return m
}
