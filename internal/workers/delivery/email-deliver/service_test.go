// internal/workers/delivery/email-deliver/service_test.go
package emaildeliver

import (
	"context"
	"fmt"
	"testing"

	"push-workers/internal/common/errors"
	"push-workers/internal/common/logger"
	"push-workers/internal/common/render"
	"push-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Fakes
// ==========================

type fakeStore struct {
	status   models.DeliveryStatus
	found    bool
	claim    bool
	setCalls []models.DeliveryStatus
}

func (f *fakeStore) GetStatus(ctx context.Context, notificationID string) (models.DeliveryStatus, bool, error) {
	return f.status, f.found, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, notificationID string, status models.DeliveryStatus) error {
	f.setCalls = append(f.setCalls, status)
	return nil
}

func (f *fakeStore) MarkProcessing(ctx context.Context, notificationID string) (bool, error) {
	return f.claim, nil
}

type fakeDirectory struct {
	user *models.User
	err  error
}

func (f *fakeDirectory) FetchUser(ctx context.Context, userID string) (*models.User, error) {
	return f.user, f.err
}

type fakeRenderer struct {
	content *models.RenderedContent
	err     error
	lastReq *render.Request
}

func (f *fakeRenderer) Render(ctx context.Context, req *render.Request) (*models.RenderedContent, error) {
	f.lastReq = req
	return f.content, f.err
}

type fakeSender struct {
	messageID string
	err       error
	calls     int
	lastTo    string
	lastSubj  string
	lastBody  string
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	f.calls++
	f.lastTo = to
	f.lastSubj = subject
	f.lastBody = body
	return f.messageID, f.err
}

type fakeReporter struct {
	statuses []string
}

func (f *fakeReporter) Report(ctx context.Context, notificationID, status, errMsg string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

// ==========================
// Test Helper Functions
// ==========================

func boolPtr(v bool) *bool { return &v }

type fixtures struct {
	store     *fakeStore
	directory *fakeDirectory
	renderer  *fakeRenderer
	sender    *fakeSender
	reporter  *fakeReporter
}

func defaultFixtures() *fixtures {
	return &fixtures{
		store: &fakeStore{claim: true},
		directory: &fakeDirectory{user: &models.User{
			ID:    "u1",
			Email: "ada@example.com",
			Preferences: &models.UserPreferences{
				Push:  boolPtr(true),
				Email: boolPtr(true),
			},
		}},
		renderer: &fakeRenderer{content: &models.RenderedContent{Subject: "Hi Ada", Body: "Welcome"}},
		sender:   &fakeSender{messageID: "ses-1"},
		reporter: &fakeReporter{},
	}
}

func createTestService(t *testing.T, f *fixtures) *Service {
	t.Helper()
	return NewService(ServiceDependencies{
		Store:     f.store,
		Directory: f.directory,
		Renderer:  f.renderer,
		Sender:    f.sender,
		Reporter:  f.reporter,
		Logger:    logger.NewTestLogger(t),
	})
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
// Tests
// ==========================

func TestService_Execute_Delivered(t *testing.T) {
	f := defaultFixtures()
	svc := createTestService(t, f)

	output, err := svc.Execute(context.Background(), createServiceInput())
	require.NoError(t, err)

	assert.Equal(t, OutcomeDelivered, output.Outcome)
	assert.Equal(t, "ses-1", output.MessageID)
	assert.Equal(t, "ada@example.com", f.sender.lastTo)
	assert.Equal(t, "Hi Ada", f.sender.lastSubj)
	assert.Equal(t, "Welcome", f.sender.lastBody)
	assert.Equal(t, render.TypeEmail, f.renderer.lastReq.NotificationType)
	assert.Equal(t, []models.DeliveryStatus{models.StatusDelivered}, f.store.setCalls)
	assert.Equal(t, []string{models.ReportDelivered}, f.reporter.statuses)
}

func TestService_Execute_Duplicate(t *testing.T) {
	f := defaultFixtures()
	f.store.status = models.StatusDelivered
	f.store.found = true
	svc := createTestService(t, f)

	output, err := svc.Execute(context.Background(), createServiceInput())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, output.Outcome)
	assert.Equal(t, "duplicate", output.Reason)
	assert.Zero(t, f.sender.calls)
	assert.Empty(t, f.reporter.statuses)
}

func TestService_Execute_EmailGates(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(f *fixtures)
		expectedReason string
	}{
		{
			name: "email preference disabled",
			mutate: func(f *fixtures) {
				f.directory.user.Preferences.Email = boolPtr(false)
			},
			expectedReason: "preference_disabled",
		},
		{
			name: "no email address",
			mutate: func(f *fixtures) {
				f.directory.user.Email = ""
			},
			expectedReason: "no_email",
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
			assert.Zero(t, f.sender.calls)
			assert.Nil(t, f.renderer.lastReq)
			assert.Equal(t, []models.DeliveryStatus{models.StatusSkipped}, f.store.setCalls)
		})
	}
}

func TestService_Execute_SendFailureRetries(t *testing.T) {
	f := defaultFixtures()
	f.sender.messageID = ""
	f.sender.err = errors.NewDispatchFailedError(fmt.Errorf("ses throttled"))
	svc := createTestService(t, f)

	_, err := svc.Execute(context.Background(), createServiceInput())
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
	assert.Equal(t, []models.DeliveryStatus{models.StatusFailed}, f.store.setCalls)
	assert.Equal(t, []string{models.ReportFailed}, f.reporter.statuses)
}
