// internal/common/push/dispatcher.go
package push

import (
	"context"
	"encoding/json"
	"fmt"

	"push-workers/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Message is one rendered push ready for dispatch to a device token.
type Message struct {
	DeviceToken    string
	Title          string
	Body           string
	ImageURL       string
	ActionLink     string
	NotificationID string
}

// SNSService is the subset of the SNS API the dispatcher uses; defined
// here so tests can substitute a fake.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Dispatcher delivers push messages through SNS platform endpoints. The
// device token registered with the directory is the endpoint ARN.
type Dispatcher struct {
	client SNSService
}

func NewDispatcher(ctx context.Context, region string) (*Dispatcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Dispatcher{client: sns.NewFromConfig(cfg)}, nil
}

// NewDispatcherWithClient wires an explicit SNS client (tests).
func NewDispatcherWithClient(client SNSService) *Dispatcher {
	return &Dispatcher{client: client}
}

// gcmEnvelope is the FCM-side payload SNS forwards to the device.
type gcmEnvelope struct {
	Notification gcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type gcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

// Send publishes the message and returns the provider message id. Any
// failure is a retryable dispatch error.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) (string, error) {
	data := map[string]string{
		"notification_id": msg.NotificationID,
	}
	if msg.ActionLink != "" {
		data["action_link"] = msg.ActionLink
	}

	gcm, err := json.Marshal(gcmEnvelope{
		Notification: gcmNotification{
			Title: msg.Title,
			Body:  msg.Body,
			Image: msg.ImageURL,
		},
		Data: data,
	})
	if err != nil {
		return "", errors.NewDispatchFailedError(fmt.Errorf("marshal GCM payload: %w", err))
	}

	payload, err := json.Marshal(map[string]string{
		"default": msg.Body,
		"GCM":     string(gcm),
	})
	if err != nil {
		return "", errors.NewDispatchFailedError(fmt.Errorf("marshal SNS payload: %w", err))
	}

	out, err := d.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(msg.DeviceToken),
		Message:          aws.String(string(payload)),
		MessageStructure: aws.String("json"),
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
