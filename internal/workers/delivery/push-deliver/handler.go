// internal/workers/delivery/push-deliver/handler.go
package pushdeliver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"push-workers/internal/common/errors"
	"push-workers/internal/common/logger"
	"push-workers/internal/common/metrics"
	"push-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "push-deliver"
)

type Handler struct {
	config  *Config
	service *Service
	obs     *observability.Observability
	logger  logger.Logger
}

func NewHandler(config *Config, service *Service, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		service: service,
		obs:     obs,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Handle adapts the pipeline to the broker's job protocol: complete on
// delivered/skipped outcomes (acknowledge), fail with decremented retries
// on retryable errors (redeliver; at zero retries the broker raises an
// incident, the dead-letter path).
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":  job.Key,
		"retries": job.Retries,
	})

	if err := validateJobPayload(job.Variables); err != nil {
		// A malformed payload can never succeed; dead-letter it instead
		// of burning redeliveries.
		h.throwError(client, job, "INVALID_JOB_PAYLOAD", err.Error())
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.throwError(client, job, "INVALID_JOB_PAYLOAD", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.service.Execute(ctx, &input)

	h.obs.RecordJobDuration(ctx, channel, time.Since(start))
	metrics.DeliveryDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	if err != nil {
		stdErr := errors.AsStandard(err)
		metrics.DeliveryFailures.WithLabelValues(channel, string(stdErr.Code)).Inc()
		h.obs.RecordJobProcessed(ctx, channel, "failed")
		h.failJob(client, job, stdErr)
		return
	}

	metrics.DeliveriesTotal.WithLabelValues(channel, output.Outcome).Inc()
	h.obs.RecordJobProcessed(ctx, channel, output.Outcome)
	h.completeJob(client, job, output)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// failJob withholds acknowledgment so the broker redelivers. The retry
// ceiling lives in the deployed process model; this handler only counts
// the attempt down.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *errors.StandardError) {
	retries := job.Retries - 1
	if retries < 0 {
		retries = 0
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"errorCode":        string(stdErr.Code),
		"errorMessage":     stdErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"remainingRetries": retries,
		"errorCategory":    errors.GetErrorCategory(stdErr.Code),
	})

	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		RetryBackoff(h.config.RetryBackoff).
		ErrorMessage(fmt.Sprintf("[%s] %s", stdErr.Code, stdErr.Message)).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) throwError(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job rejected", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Execute exposes the pipeline for direct invocation in tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}
