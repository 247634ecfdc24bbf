package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// MailClient is the part of the sendgrid client used to send email
type MailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridEmail sends email through sendgrid
type SendGridEmail struct {
	client   MailClient
	fromName string
	from     string
}

// NewSendGridEmail builds a sender from an api key
func NewSendGridEmail(apiKey, from string) *SendGridEmail {
	return NewSendGridEmailWithClient(sendgrid.NewSendClient(apiKey), from)
}

// NewSendGridEmailWithClient builds a sender over an existing client
func NewSendGridEmailWithClient(client MailClient, from string) *SendGridEmail {
	return &SendGridEmail{client: client, fromName: "SOS Dispatch", from: from}
}

// SendEmail sends a single html email with a plain text alternative
func (s *SendGridEmail) SendEmail(ctx context.Context, toName, toEmail, subject, plainText, html string) error {
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Debugw("email sent", "to", toEmail, "subject", subject)
	return nil
}
