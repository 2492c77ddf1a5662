// Package email sends transactional checkout email.
package email

import (
	"context"
	"fmt"

	resend "github.com/resend/resend-go/v3"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender returns a Resend-backed sender, or a no-op sender when no API
// key is configured so checkout keeps working in local setups.
func NewSender(apiKey, from string) Sender {
	if apiKey == "" {
		return NoopSender{}
	}
	return &ResendSender{from: from, client: resend.NewClient(apiKey)}
}

// ResendSender delivers mail through the Resend API.
type ResendSender struct {
	from   string
	client *resend.Client
}

func (s *ResendSender) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}
	if s.client == nil {
		return fmt.Errorf("resend client not configured")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
	}
	if msg.HTML != "" {
		params.Html = msg.HTML
	}
	if msg.Text != "" {
		params.Text = msg.Text
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email body is empty")
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	return nil
}

// NoopSender discards outgoing mail.
type NoopSender struct{}

func (NoopSender) Send(context.Context, *Message) error { return nil }
