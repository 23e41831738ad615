package notifier

import (
	"context"

	"github.com/goliatone/go-accounts"
	"github.com/resend/resend-go/v2"
)

// ResendEmails is the part of the resend emails service used here
type ResendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend sends messages through the Resend API
type Resend struct {
	emails ResendEmails
	from   string
}

var _ accounts.Notifier = (*Resend)(nil)

// NewResend creates a Resend sender
func NewResend(apiKey, from string) *Resend {
	return NewResendWithClient(resend.NewClient(apiKey).Emails, from)
}

// NewResendWithClient creates a Resend sender on an existing emails service
func NewResendWithClient(emails ResendEmails, from string) *Resend {
	return &Resend{emails: emails, from: from}
}

func (s *Resend) Send(ctx context.Context, msg accounts.Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}

	if _, err := s.emails.SendWithContext(ctx, params); err != nil {
		return sendError("resend", err)
	}
	return nil
}
