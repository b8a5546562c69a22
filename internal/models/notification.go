// internal/models/notification.go
package models

// DeliveryStatus is the per-notification flag kept in the idempotency
// store. Transitions are monotone: absent -> PROCESSING -> terminal, where
// FAILED re-enters PROCESSING on redelivery.
type DeliveryStatus string

const (
	StatusProcessing DeliveryStatus = "PROCESSING"
	StatusDelivered  DeliveryStatus = "DELIVERED"
	StatusSkipped    DeliveryStatus = "SKIPPED"
	StatusFailed     DeliveryStatus = "FAILED"
)

// Terminal reports whether no further delivery work may happen for the id.
// FAILED is not terminal: the broker redelivers failed jobs.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusSkipped
}

// RenderedContent is the render service's output for one job. Derived
// per-attempt, never persisted.
type RenderedContent struct {
	Subject    string `json:"rendered_subject"`
	Body       string `json:"rendered_body"`
	ImageURL   string `json:"rendered_image_url,omitempty"`
	ActionLink string `json:"rendered_action_link,omitempty"`
}

// StatusUpdate is the fire-and-forget report sent upstream after a
// terminal outcome.
type StatusUpdate struct {
	NotificationID string `json:"notification_id"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

// Report status strings understood by the gateway.
const (
	ReportDelivered = "delivered"
	ReportSkipped   = "skipped"
	ReportFailed    = "failed"
)
