// internal/common/email/sender.go
package email

import (
	"context"
	"fmt"

	"push-workers/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the subset of the SES API the sender uses; defined here so
// tests can substitute a fake.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Sender delivers rendered email through SES.
type Sender struct {
	client    SESService
	fromEmail string
}

func NewSender(ctx context.Context, region, fromEmail string) (*Sender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Sender{client: ses.NewFromConfig(cfg), fromEmail: fromEmail}, nil
}

// NewSenderWithClient wires an explicit SES client (tests).
func NewSenderWithClient(client SESService, fromEmail string) *Sender {
	return &Sender{client: client, fromEmail: fromEmail}
}

// Send submits the email and returns the SES message id. Any failure is a
// retryable dispatch error.
func (s *Sender) Send(ctx context.Context, to, subject, body string) (string, error) {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return "", errors.NewDispatchFailedError(err)
	}

	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}
	return messageID, nil
}
