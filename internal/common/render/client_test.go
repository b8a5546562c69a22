// internal/common/render/client_test.go
package render

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"push-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Render_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/templates/render", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, TypePush, req.NotificationType)
		assert.Equal(t, "welcome", req.TemplateCode)
		assert.Equal(t, map[string]string{"name": "Ada"}, req.Variables)

		_, _ = w.Write([]byte(`{"success":true,"data":{` +
			`"rendered_subject":"Hi Ada","rendered_body":"Welcome",` +
			`"rendered_image_url":"https://cdn.example.com/w.png",` +
			`"rendered_action_link":"https://app.example.com/start"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	content, err := client.Render(context.Background(), &Request{
		NotificationType: TypePush,
		TemplateCode:     "welcome",
		Variables:        map[string]string{"name": "Ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi Ada", content.Subject)
	assert.Equal(t, "Welcome", content.Body)
	assert.Equal(t, "https://cdn.example.com/w.png", content.ImageURL)
	assert.Equal(t, "https://app.example.com/start", content.ActionLink)
}

func TestClient_Render_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"template not found", http.StatusNotFound, `{"success":false,"error":"unknown template"}`},
		{"service error", http.StatusInternalServerError, `oops`},
		{"rejected render", http.StatusOK, `{"success":false,"error":"missing variable"}`},
		{"empty data", http.StatusOK, `{"success":true}`},
		{"malformed body", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, 2*time.Second)
			_, err := client.Render(context.Background(), &Request{
				NotificationType: TypePush,
				TemplateCode:     "welcome",
			})

			// Every render failure mode is the same retryable code.
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeRenderFailed, errors.AsStandard(err).Code)
			assert.True(t, errors.IsRetryable(err))
		})
	}
}
