// internal/workers/delivery/email-deliver/models.go
package emaildeliver

// Input is the job payload pulled off the email queue; the producer uses
// the same contract for every channel.
type Input struct {
	NotificationID string            `json:"notification_id"`
	UserID         string            `json:"user_id"`
	TemplateCode   string            `json:"template_code"`
	Variables      map[string]string `json:"variables,omitempty"`
}

const (
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
)

// Output is returned to the broker on job completion.
type Output struct {
	NotificationID string `json:"notificationId"`
	Outcome        string `json:"outcome"`
	Reason         string `json:"reason,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	ProcessedAt    string `json:"processedAt"`
}
