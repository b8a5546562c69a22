// internal/common/render/client.go
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"push-workers/internal/common/errors"
	"push-workers/internal/common/httpx"
	"push-workers/internal/models"
)

// NotificationType selects which template variant the render service
// resolves for a template code.
const (
	TypePush  = "push"
	TypeEmail = "email"
)

// Request is the render service's input contract.
type Request struct {
	NotificationType string            `json:"notification_type"`
	TemplateCode     string            `json:"template_code"`
	Variables        map[string]string `json:"variables,omitempty"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client renders notification content from stored templates.
type Client struct {
	baseURL    string
	httpClient *httpx.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpx.NewClient(timeout),
	}
}

// Render resolves and renders a template. Every failure mode here is
// retryable: a render outage must not permanently drop the notification.
func (c *Client) Render(ctx context.Context, renderReq *Request) (*models.RenderedContent, error) {
	url := c.baseURL + "/api/v1/templates/render"

	payload, err := json.Marshal(renderReq)
	if err != nil {
		return nil, errors.NewRenderFailedError(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, errors.NewRenderFailedError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewRenderFailedError(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewRenderFailedError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewRenderFailedError(
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewRenderFailedError(fmt.Errorf("unmarshal envelope: %w", err))
	}

	if !envelope.Success {
		reason := envelope.Error
		if reason == "" {
			reason = envelope.Message
		}
		return nil, errors.NewRenderFailedError(fmt.Errorf("render rejected: %s", reason))
	}
	if len(envelope.Data) == 0 {
		return nil, errors.NewRenderFailedError(fmt.Errorf("rendered data came back empty"))
	}

	var content models.RenderedContent
	if err := json.Unmarshal(envelope.Data, &content); err != nil {
		return nil, errors.NewRenderFailedError(fmt.Errorf("unmarshal rendered content: %w", err))
	}

	return &content, nil
}
