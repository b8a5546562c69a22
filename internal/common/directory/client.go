// internal/common/directory/client.go
package directory

import (
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

// Client fetches user records from the user directory service.
type Client struct {
	baseURL    string
	httpClient *httpx.Client
}

// apiResponse is the directory's generic response envelope.
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: httpx.NewClient(timeout),
	}
}

// FetchUser looks up a user by id. A directory "not found" answer comes
// back as a USER_NOT_FOUND terminal skip; anything else (transport error,
// 5xx, malformed envelope) is a retryable DIRECTORY_UNAVAILABLE.
func (c *Client) FetchUser(ctx context.Context, userID string) (*models.User, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewDirectoryUnavailableError(fmt.Errorf("build request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewDirectoryUnavailableError(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewDirectoryUnavailableError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewUserNotFoundError(userID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewDirectoryUnavailableError(
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewDirectoryUnavailableError(fmt.Errorf("unmarshal envelope: %w", err))
	}

	// success=false or an empty data block is the directory's way of
	// saying the user does not exist.
	if !envelope.Success || len(envelope.Data) == 0 {
		return nil, errors.NewUserNotFoundError(userID)
	}

	var user models.User
	if err := json.Unmarshal(envelope.Data, &user); err != nil {
		return nil, errors.NewDirectoryUnavailableError(fmt.Errorf("unmarshal user: %w", err))
	}

	return &user, nil
}
