// internal/common/gateway/reporter.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"push-workers/internal/common/httpx"
	"push-workers/internal/common/logger"
	"push-workers/internal/models"

	"github.com/google/uuid"
)

// Reporter posts final delivery outcomes back to the API gateway. The call
// is fire-and-forget: failures are logged and swallowed, never surfaced to
// the job's own outcome.
type Reporter struct {
	baseURL    string
	channel    string
	httpClient *httpx.Client
	logger     logger.Logger
}

// NewReporter builds a reporter for one delivery channel; the gateway
// exposes a status route per channel, e.g. /api/v1/push/status/.
func NewReporter(baseURL, channel string, timeout time.Duration, log logger.Logger) *Reporter {
	return &Reporter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		channel:    channel,
		httpClient: httpx.NewClient(timeout),
		logger:     log,
	}
}

// Report sends {notification_id, status, error?}. The returned error is
// informational only; callers are expected to log and continue.
func (r *Reporter) Report(ctx context.Context, notificationID, status, errMsg string) error {
	update := models.StatusUpdate{
		NotificationID: notificationID,
		Status:         status,
		Error:          errMsg,
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal status update: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/%s/status/", r.baseURL, r.channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("failed to report status", map[string]interface{}{
			"notificationId": notificationID,
			"status":         status,
			"error":          err.Error(),
		})
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		r.logger.Warn("status update rejected by gateway", map[string]interface{}{
			"notificationId": notificationID,
			"status":         status,
			"httpStatus":     resp.StatusCode,
		})
		return fmt.Errorf("gateway rejected status update: %d", resp.StatusCode)
	}

	return nil
}
