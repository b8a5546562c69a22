// internal/workers/delivery/push-deliver/service.go
package pushdeliver

import (
	"context"
	"time"

	"push-workers/internal/common/errors"
	"push-workers/internal/common/idempotency"
	"push-workers/internal/common/logger"
	"push-workers/internal/common/metrics"
	"push-workers/internal/common/push"
	"push-workers/internal/common/render"
	"push-workers/internal/models"
)

const channel = "push"

// Collaborator capabilities, injected at construction so tests can
// substitute fakes.

type UserDirectory interface {
	FetchUser(ctx context.Context, userID string) (*models.User, error)
}

type TemplateRenderer interface {
	Render(ctx context.Context, req *render.Request) (*models.RenderedContent, error)
}

type PushDispatcher interface {
	Send(ctx context.Context, msg *push.Message) (string, error)
}

type StatusReporter interface {
	Report(ctx context.Context, notificationID, status, errMsg string) error
}

type ServiceDependencies struct {
	Store      idempotency.Store
	Directory  UserDirectory
	Renderer   TemplateRenderer
	Dispatcher PushDispatcher
	Reporter   StatusReporter
	Logger     logger.Logger
}

// Service drives one push delivery attempt through the pipeline: dedup
// check, processing claim, user lookup, eligibility gates, render,
// dispatch, terminal status write, status report.
type Service struct {
	store      idempotency.Store
	directory  UserDirectory
	renderer   TemplateRenderer
	dispatcher PushDispatcher
	reporter   StatusReporter
	logger     logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	return &Service{
		store:      deps.Store,
		directory:  deps.Directory,
		renderer:   deps.Renderer,
		dispatcher: deps.Dispatcher,
		reporter:   deps.Reporter,
		logger:     deps.Logger,
	}
}

// Execute processes one job. A nil error means the job must be
// acknowledged (delivered or terminally skipped); a non-nil error is
// always retryable and must be failed back to the broker.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"notificationId": input.NotificationID,
		"userId":         input.UserID,
	})

	// 1. Dedup check: a recorded terminal status means a prior attempt
	// finished; redelivery is acknowledged with no side effects.
	status, found, err := s.store.GetStatus(ctx, input.NotificationID)
	if err != nil {
		return nil, errors.NewExternalServiceError("idempotency-store", err)
	}
	if found && status.Terminal() {
		log.Warn("duplicate or completed job, skipping", map[string]interface{}{
			"status": string(status),
		})
		metrics.DuplicateJobs.WithLabelValues(channel).Inc()
		return s.skippedOutput(input.NotificationID, "duplicate"), nil
	}

	// 2. Claim the id before any side effect that could be duplicated.
	// Losing the claim means a concurrent attempt owns this notification.
	claimed, err := s.store.MarkProcessing(ctx, input.NotificationID)
	if err != nil {
		return nil, errors.NewExternalServiceError("idempotency-store", err)
	}
	if !claimed {
		log.Warn("notification already in flight, skipping", nil)
		metrics.DuplicateJobs.WithLabelValues(channel).Inc()
		return s.skippedOutput(input.NotificationID, "duplicate"), nil
	}

	// 3. Fetch user. Not-found is a terminal skip; transport failure retries.
	user, err := s.directory.FetchUser(ctx, input.UserID)
	if err != nil {
		if errors.IsTerminalSkip(err) {
			return s.skip(ctx, log, input.NotificationID, err)
		}
		return nil, s.fail(ctx, log, input.NotificationID, err)
	}

	// 4. Eligibility gates, strictly before render and dispatch: no render
	// call and no token use for an ineligible user.
	if !user.PushEnabled() {
		return s.skip(ctx, log, input.NotificationID,
			errors.NewPreferenceDisabledError(input.UserID, channel))
	}
	if user.PushToken == "" {
		return s.skip(ctx, log, input.NotificationID,
			errors.NewNoPushTokenError(input.UserID))
	}

	// 5. Render.
	content, err := s.renderer.Render(ctx, &render.Request{
		NotificationType: render.TypePush,
		TemplateCode:     input.TemplateCode,
		Variables:        input.Variables,
	})
	if err != nil {
		return nil, s.fail(ctx, log, input.NotificationID, err)
	}

	// 6. Dispatch.
	messageID, err := s.dispatcher.Send(ctx, &push.Message{
		DeviceToken:    user.PushToken,
		Title:          content.Subject,
		Body:           content.Body,
		ImageURL:       content.ImageURL,
		ActionLink:     content.ActionLink,
		NotificationID: input.NotificationID,
	})
	if err != nil {
		return nil, s.fail(ctx, log, input.NotificationID, err)
	}

	// 7. Finalize. The push is out: a failed status write here must not
	// trigger redelivery, that would double-deliver.
	if err := s.store.SetStatus(ctx, input.NotificationID, models.StatusDelivered); err != nil {
		log.Error("failed to record DELIVERED status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.report(ctx, log, input.NotificationID, models.ReportDelivered, "")

	log.Info("notification delivered", map[string]interface{}{
		"messageId": messageID,
	})

	return &Output{
		NotificationID: input.NotificationID,
		Outcome:        OutcomeDelivered,
		MessageID:      messageID,
		ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// skip records a terminal SKIPPED status, reports it upstream, and returns
// an acknowledgeable output.
func (s *Service) skip(ctx context.Context, log logger.Logger, notificationID string, cause error) (*Output, error) {
	reason := errors.SkipReason(cause)
	log.Warn("skipping notification", map[string]interface{}{
		"reason": reason,
	})

	if err := s.store.SetStatus(ctx, notificationID, models.StatusSkipped); err != nil {
		log.Error("failed to record SKIPPED status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.report(ctx, log, notificationID, models.ReportSkipped, reason)

	return s.skippedOutput(notificationID, reason), nil
}

// fail records FAILED, reports upstream, and hands the retryable error
// back so the handler withholds acknowledgment.
func (s *Service) fail(ctx context.Context, log logger.Logger, notificationID string, cause error) error {
	stdErr := errors.AsStandard(cause)
	log.WithError(cause).Error("delivery attempt failed", map[string]interface{}{
		"errorCode": string(stdErr.Code),
	})

	if err := s.store.SetStatus(ctx, notificationID, models.StatusFailed); err != nil {
		log.Error("failed to record FAILED status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.report(ctx, log, notificationID, models.ReportFailed, stdErr.Message)

	return cause
}

// report is fire-and-forget: failures are counted and logged only.
func (s *Service) report(ctx context.Context, log logger.Logger, notificationID, status, errMsg string) {
	if err := s.reporter.Report(ctx, notificationID, status, errMsg); err != nil {
		metrics.StatusReportFailures.WithLabelValues(channel).Inc()
		log.Error("status report failed", map[string]interface{}{
			"status": status,
			"error":  err.Error(),
		})
	}
}

func (s *Service) skippedOutput(notificationID, reason string) *Output {
	return &Output{
		NotificationID: notificationID,
		Outcome:        OutcomeSkipped,
		Reason:         reason,
		ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
	}
}
