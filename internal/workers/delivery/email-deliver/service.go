// internal/workers/delivery/email-deliver/service.go
package emaildeliver

import (
	"context"
	"time"

	"push-workers/internal/common/errors"
	"push-workers/internal/common/idempotency"
	"push-workers/internal/common/logger"
	"push-workers/internal/common/metrics"
	"push-workers/internal/common/render"
	"push-workers/internal/models"
)

const channel = "email"

type UserDirectory interface {
	FetchUser(ctx context.Context, userID string) (*models.User, error)
}

type TemplateRenderer interface {
	Render(ctx context.Context, req *render.Request) (*models.RenderedContent, error)
}

// EmailSender submits one rendered email and returns the provider message id.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

type StatusReporter interface {
	Report(ctx context.Context, notificationID, status, errMsg string) error
}

type ServiceDependencies struct {
	Store     idempotency.Store
	Directory UserDirectory
	Renderer  TemplateRenderer
	Sender    EmailSender
	Reporter  StatusReporter
	Logger    logger.Logger
}

// Service is the email counterpart of the push pipeline: same dedup,
// claim, lookup, gate, render, send, record, report sequence with email
// eligibility rules.
type Service struct {
	store     idempotency.Store
	directory UserDirectory
	renderer  TemplateRenderer
	sender    EmailSender
	reporter  StatusReporter
	logger    logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	return &Service{
		store:     deps.Store,
		directory: deps.Directory,
		renderer:  deps.Renderer,
		sender:    deps.Sender,
		reporter:  deps.Reporter,
		logger:    deps.Logger,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"notificationId": input.NotificationID,
		"userId":         input.UserID,
	})

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

	claimed, err := s.store.MarkProcessing(ctx, input.NotificationID)
	if err != nil {
		return nil, errors.NewExternalServiceError("idempotency-store", err)
	}
	if !claimed {
		log.Warn("notification already in flight, skipping", nil)
		metrics.DuplicateJobs.WithLabelValues(channel).Inc()
		return s.skippedOutput(input.NotificationID, "duplicate"), nil
	}

	user, err := s.directory.FetchUser(ctx, input.UserID)
	if err != nil {
		if errors.IsTerminalSkip(err) {
			return s.skip(ctx, log, input.NotificationID, err)
		}
		return nil, s.fail(ctx, log, input.NotificationID, err)
	}

	if !user.EmailEnabled() {
		return s.skip(ctx, log, input.NotificationID,
			errors.NewPreferenceDisabledError(input.UserID, channel))
	}
	if user.Email == "" {
		return s.skip(ctx, log, input.NotificationID,
			errors.NewNoEmailAddressError(input.UserID))
	}

	content, err := s.renderer.Render(ctx, &render.Request{
		NotificationType: render.TypeEmail,
		TemplateCode:     input.TemplateCode,
		Variables:        input.Variables,
	})
	if err != nil {
		return nil, s.fail(ctx, log, input.NotificationID, err)
	}

	messageID, err := s.sender.Send(ctx, user.Email, content.Subject, content.Body)
	if err != nil {
		return nil, s.fail(ctx, log, input.NotificationID, err)
	}

	if err := s.store.SetStatus(ctx, input.NotificationID, models.StatusDelivered); err != nil {
		log.Error("failed to record DELIVERED status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.report(ctx, log, input.NotificationID, models.ReportDelivered, "")

	log.Info("email delivered", map[string]interface{}{
		"messageId": messageID,
	})

	return &Output{
		NotificationID: input.NotificationID,
		Outcome:        OutcomeDelivered,
		MessageID:      messageID,
		ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

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
