// internal/workers/delivery/push-deliver/models.go
package pushdeliver

// Input is the job payload pulled off the push queue. Field names match
// the producer's wire contract.
type Input struct {
	NotificationID string            `json:"notification_id"`
	UserID         string            `json:"user_id"`
	TemplateCode   string            `json:"template_code"`
	Variables      map[string]string `json:"variables,omitempty"`
}

// Outcome values surfaced in the worker output.
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
