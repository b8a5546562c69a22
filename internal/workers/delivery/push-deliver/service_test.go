// internal/workers/delivery/push-deliver/service_test.go
package pushdeliver

import (
	"context"
	"fmt"
	"testing"

	"push-workers/internal/common/errors"
	"push-workers/internal/common/logger"
	"push-workers/internal/common/push"
	"push-workers/internal/common/render"
	"push-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Fakes
// ==========================

type fakeStore struct {
	status     models.DeliveryStatus
	found      bool
	getErr     error
	claim      bool
	claimErr   error
	setErr     error
	getCalls   int
	claimCalls int
	setCalls   []models.DeliveryStatus
}

func (f *fakeStore) GetStatus(ctx context.Context, notificationID string) (models.DeliveryStatus, bool, error) {
	f.getCalls++
	return f.status, f.found, f.getErr
}

func (f *fakeStore) SetStatus(ctx context.Context, notificationID string, status models.DeliveryStatus) error {
	f.setCalls = append(f.setCalls, status)
	return f.setErr
}

func (f *fakeStore) MarkProcessing(ctx context.Context, notificationID string) (bool, error) {
	f.claimCalls++
	return f.claim, f.claimErr
}

type fakeDirectory struct {
	user  *models.User
	err   error
	calls int
}

func (f *fakeDirectory) FetchUser(ctx context.Context, userID string) (*models.User, error) {
	f.calls++
	return f.user, f.err
}

type fakeRenderer struct {
	content *models.RenderedContent
	err     error
	calls   int
	lastReq *render.Request
}

func (f *fakeRenderer) Render(ctx context.Context, req *render.Request) (*models.RenderedContent, error) {
	f.calls++
	f.lastReq = req
	return f.content, f.err
}

type fakeDispatcher struct {
	messageID string
	err       error
	calls     int
	lastMsg   *push.Message
}

func (f *fakeDispatcher) Send(ctx context.Context, msg *push.Message) (string, error) {
	f.calls++
	f.lastMsg = msg
	return f.messageID, f.err
}

type reportCall struct {
	notificationID string
	status         string
	errMsg         string
}

type fakeReporter struct {
	err   error
	calls []reportCall
}

func (f *fakeReporter) Report(ctx context.Context, notificationID, status, errMsg string) error {
	f.calls = append(f.calls, reportCall{notificationID, status, errMsg})
	return f.err
}

// ==========================
// Test Helper Functions
// ==========================

type fixtures struct {
	store      *fakeStore
	directory  *fakeDirectory
	renderer   *fakeRenderer
	dispatcher *fakeDispatcher
	reporter   *fakeReporter
}

func boolPtr(v bool) *bool { return &v }

func eligibleUser() *models.User {
	return &models.User{
		ID:        "u1",
		Name:      "Ada",
		Email:     "ada@example.com",
		PushToken: "tok1",
		Preferences: &models.UserPreferences{
			Push:  boolPtr(true),
			Email: boolPtr(true),
		},
	}
}

func createTestService(t *testing.T, f *fixtures) *Service {
	t.Helper()
	return NewService(ServiceDependencies{
		Store:      f.store,
		Directory:  f.directory,
		Renderer:   f.renderer,
		Dispatcher: f.dispatcher,
		Reporter:   f.reporter,
		Logger:     logger.NewTestLogger(t),
	})
}

func defaultFixtures() *fixtures {
	return &fixtures{
		store:      &fakeStore{claim: true},
		directory:  &fakeDirectory{user: eligibleUser()},
		renderer:   &fakeRenderer{content: &models.RenderedContent{Subject: "Hi Ada", Body: "Welcome"}},
		dispatcher: &fakeDispatcher{messageID: "msg-1"},
		reporter:   &fakeReporter{},
	}
}

func createServiceInput() *Input {
	return &Input{
		NotificationID: "n1",
		UserID:         "u1",
		TemplateCode:   "welcome",
		Variables:      map[string]string{"name": "Ada"},
	}
}

// ==========================
// Happy Path
// ==========================

func TestService_Execute_Delivered(t *testing.T) {
	f := defaultFixtures()
	svc := createTestService(t, f)

	output, err := svc.Execute(context.Background(), createServiceInput())
	require.NoError(t, err)

	assert.Equal(t, "n1", output.NotificationID)
	assert.Equal(t, OutcomeDelivered, output.Outcome)
	assert.Equal(t, "msg-1", output.MessageID)
	assert.NotEmpty(t, output.ProcessedAt)

	// Rendered content reached the dispatcher with the user's token.
	require.NotNil(t, f.dispatcher.lastMsg)
	assert.Equal(t, "tok1", f.dispatcher.lastMsg.DeviceToken)
	assert.Equal(t, "Hi Ada", f.dispatcher.lastMsg.Title)
	assert.Equal(t, "Welcome", f.dispatcher.lastMsg.Body)

	// Render was asked for the push variant with the job's variables.
	require.NotNil(t, f.renderer.lastReq)
	assert.Equal(t, render.TypePush, f.renderer.lastReq.NotificationType)
	assert.Equal(t, "welcome", f.renderer.lastReq.TemplateCode)
	assert.Equal(t, map[string]string{"name": "Ada"}, f.renderer.lastReq.Variables)

	// DELIVERED was persisted and reported.
	assert.Equal(t, []models.DeliveryStatus{models.StatusDelivered}, f.store.setCalls)
	require.Len(t, f.reporter.calls, 1)
	assert.Equal(t, models.ReportDelivered, f.reporter.calls[0].status)
}

// ==========================
// Idempotency
// ==========================

func TestService_Execute_DuplicateTerminalStatus(t *testing.T) {
	tests := []struct {
		name   string
		status models.DeliveryStatus
	}{
		{"already delivered", models.StatusDelivered},
		{"already skipped", models.StatusSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFixtures()
			f.store.status = tt.status
			f.store.found = true
			svc := createTestService(t, f)

			output, err := svc.Execute(context.Background(), createServiceInput())
			require.NoError(t, err)

			assert.Equal(t, OutcomeSkipped, output.Outcome)
			assert.Equal(t, "duplicate", output.Reason)

			// A duplicate makes no collaborator calls and writes nothing.
			assert.Zero(t, f.directory.calls)
			assert.Zero(t, f.renderer.calls)
			assert.Zero(t, f.dispatcher.calls)
			assert.Zero(t, f.store.claimCalls)
			assert.Empty(t, f.store.setCalls)
			assert.Empty(t, f.reporter.calls)
		})
	}
}

func TestService_Execute_FailedStatusReprocesses(t *testing.T) {
	f := defaultFixtures()
	f.store.status = models.StatusFailed
	f.store.found = true
	svc := createTestService(t, f)

	output, err := svc.Execute(context.Background(), createServiceInput())
	require.NoError(t, err)

	assert.Equal(t, OutcomeDelivered, output.Outcome)
	assert.Equal(t, 1, f.dispatcher.calls)
}

func TestService_Execute_ClaimLost(t *testing.T) {
	f := defaultFixtures()
	f.store.claim = false
	svc := createTestService(t, f)

	output, err := svc.Execute(context.Background(), createServiceInput())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, output.Outcome)
	assert.Equal(t, "duplicate", output.Reason)
	assert.Zero(t, f.directory.calls)
	assert.Zero(t, f.dispatcher.calls)
	assert.Empty(t, f.reporter.calls)
}

func TestService_Execute_StoreUnavailableRetries(t *testing.T) {
	f := defaultFixtures()
	f.store.getErr = fmt.Errorf("connection refused")
	svc := createTestService(t, f)

	_, err := svc.Execute(context.Background(), createServiceInput())
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
	assert.Zero(t, f.directory.calls)
}

// ==========================
// Eligibility Gates
// ==========================

func TestService_Execute_Skips(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(f *fixtures)
		expectedReason string
	}{
		{
			name: "user not found",
			mutate: func(f *fixtures) {
				f.directory.user = nil
				f.directory.err = errors.NewUserNotFoundError("u1")
			},
			expectedReason: "user_not_found",
		},
		{
			name: "push preference disabled",
			mutate: func(f *fixtures) {
				f.directory.user.Preferences.Push = boolPtr(false)
			},
			expectedReason: "preference_disabled",
		},
		{
			name: "preferences omitted entirely",
			mutate: func(f *fixtures) {
				f.directory.user.Preferences = nil
			},
			expectedReason: "preference_disabled",
		},
		{
			name: "no push token",
			mutate: func(f *fixtures) {
				f.directory.user.PushToken = ""
			},
			expectedReason: "no_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFixtures()
			tt.mutate(f)
			svc := createTestService(t, f)

			output, err := svc.Execute(context.Background(), createServiceInput())
			require.NoError(t, err)

			assert.Equal(t, OutcomeSkipped, output.Outcome)
			assert.Equal(t, tt.expectedReason, output.Reason)

			// Gates run strictly before render and dispatch.
			assert.Zero(t, f.renderer.calls)
			assert.Zero(t, f.dispatcher.calls)

			// SKIPPED is terminal: persisted and reported with the reason.
			assert.Equal(t, []models.DeliveryStatus{models.StatusSkipped}, f.store.setCalls)
			require.Len(t, f.reporter.calls, 1)
			assert.Equal(t, models.ReportSkipped, f.reporter.calls[0].status)
			assert.Equal(t, tt.expectedReason, f.reporter.calls[0].errMsg)
		})
	}
}

// ==========================
// Retryable Failures
// ==========================

func TestService_Execute_RetryableFailures(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(f *fixtures)
		expectedCode errors.ErrorCode
		dispatched   bool
	}{
		{
			name: "directory unavailable",
			mutate: func(f *fixtures) {
				f.directory.user = nil
				f.directory.err = errors.NewDirectoryUnavailableError(fmt.Errorf("503"))
			},
			expectedCode: errors.ErrCodeDirectoryUnavailable,
		},
		{
			name: "render failed",
			mutate: func(f *fixtures) {
				f.renderer.content = nil
				f.renderer.err = errors.NewRenderFailedError(fmt.Errorf("template engine down"))
			},
			expectedCode: errors.ErrCodeRenderFailed,
		},
		{
			name: "dispatch failed",
			mutate: func(f *fixtures) {
				f.dispatcher.messageID = ""
				f.dispatcher.err = errors.NewDispatchFailedError(fmt.Errorf("provider 500"))
			},
			expectedCode: errors.ErrCodeDispatchFailed,
			dispatched:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFixtures()
			tt.mutate(f)
			svc := createTestService(t, f)

			_, err := svc.Execute(context.Background(), createServiceInput())
			require.Error(t, err)

			stdErr := errors.AsStandard(err)
			assert.Equal(t, tt.expectedCode, stdErr.Code)
			assert.True(t, stdErr.Retryable)

			// FAILED is recorded so a redelivery can re-claim the id.
			assert.Equal(t, []models.DeliveryStatus{models.StatusFailed}, f.store.setCalls)
			require.Len(t, f.reporter.calls, 1)
			assert.Equal(t, models.ReportFailed, f.reporter.calls[0].status)
			assert.NotEmpty(t, f.reporter.calls[0].errMsg)

			if !tt.dispatched {
				assert.Zero(t, f.dispatcher.calls)
			}
		})
	}
}

func TestService_Execute_RenderPrecedesDispatch(t *testing.T) {
	f := defaultFixtures()
	f.renderer.content = nil
	f.renderer.err = errors.NewRenderFailedError(fmt.Errorf("boom"))
	svc := createTestService(t, f)

	_, err := svc.Execute(context.Background(), createServiceInput())
	require.Error(t, err)
	assert.Equal(t, 1, f.renderer.calls)
	assert.Zero(t, f.dispatcher.calls)
}

// ==========================
// Finalization Edge Cases
// ==========================

func TestService_Execute_DeliveredStatusWriteFailureStillAcks(t *testing.T) {
	// The push went out. A failed status write afterwards must not turn
	// into a retry; that would deliver the same push twice.
	f := defaultFixtures()
	f.store.setErr = fmt.Errorf("redis down")
	svc := createTestService(t, f)

	output, err := svc.Execute(context.Background(), createServiceInput())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, output.Outcome)
	assert.Equal(t, 1, f.dispatcher.calls)
}

func TestService_Execute_StatusReportFailureIsSwallowed(t *testing.T) {
	f := defaultFixtures()
	f.reporter.err = fmt.Errorf("gateway 502")
	svc := createTestService(t, f)

	output, err := svc.Execute(context.Background(), createServiceInput())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, output.Outcome)
}
