// internal/common/gateway/reporter_test.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"push-workers/internal/common/logger"
	"push-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_Report(t *testing.T) {
	var got models.StatusUpdate
	var requestID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/push/status/", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		requestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reporter := NewReporter(srv.URL, "push", 2*time.Second, logger.NewTestLogger(t))
	err := reporter.Report(context.Background(), "n1", models.ReportSkipped, "no_token")
	require.NoError(t, err)

	assert.Equal(t, "n1", got.NotificationID)
	assert.Equal(t, "skipped", got.Status)
	assert.Equal(t, "no_token", got.Error)
	assert.NotEmpty(t, requestID, "each report carries a correlation id")
}

func TestReporter_Report_OmitsEmptyError(t *testing.T) {
	var raw map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	}))
	defer srv.Close()

	reporter := NewReporter(srv.URL, "push", 2*time.Second, logger.NewTestLogger(t))
	require.NoError(t, reporter.Report(context.Background(), "n1", models.ReportDelivered, ""))

	_, present := raw["error"]
	assert.False(t, present)
}

func TestReporter_Report_GatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	reporter := NewReporter(srv.URL, "push", 2*time.Second, logger.NewTestLogger(t))
	err := reporter.Report(context.Background(), "n1", models.ReportDelivered, "")
	assert.Error(t, err)
}

func TestReporter_Report_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	reporter := NewReporter(srv.URL, "push", time.Second, logger.NewTestLogger(t))
	err := reporter.Report(context.Background(), "n1", models.ReportFailed, "boom")
	assert.Error(t, err)
}
