// Package errors provides standardized error handling for the delivery
// pipeline: a closed taxonomy of collaborator failure modes and the
// skip/retry classification the orchestrator and the broker handler share.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Terminal skips: the job is acknowledged without delivery.
	ErrCodeDuplicateJob       ErrorCode = "DUPLICATE_JOB"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodePreferenceDisabled ErrorCode = "PREFERENCE_DISABLED"
	ErrCodeNoPushToken        ErrorCode = "NO_PUSH_TOKEN"
	ErrCodeNoEmailAddress     ErrorCode = "NO_EMAIL_ADDRESS"

	// Retryable failures: the broker redelivers the job.
	ErrCodeDirectoryUnavailable ErrorCode = "DIRECTORY_UNAVAILABLE"
	ErrCodeRenderFailed         ErrorCode = "RENDER_FAILED"
	ErrCodeDispatchFailed       ErrorCode = "DISPATCH_FAILED"

	// Non-fatal: logged and swallowed.
	ErrCodeStatusReportFailed ErrorCode = "STATUS_REPORT_FAILED"

	// Generic transport plumbing.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewDuplicateJobError marks a redelivered job whose status is already
// terminal. Info-level short-circuit, never an actual failure.
func NewDuplicateJobError(notificationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateJob,
		Message:   "Notification already processed",
		Details:   fmt.Sprintf("notificationId: %s", notificationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserNotFoundError creates a non-retryable directory error.
func NewUserNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserNotFound,
		Message:   "User not found in directory",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreferenceDisabledError creates a non-retryable eligibility error.
func NewPreferenceDisabledError(userID, channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferenceDisabled,
		Message:   fmt.Sprintf("User has %s notifications disabled", channel),
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoPushTokenError creates a non-retryable eligibility error.
func NewNoPushTokenError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoPushToken,
		Message:   "User has no push token registered",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoEmailAddressError creates a non-retryable eligibility error.
func NewNoEmailAddressError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoEmailAddress,
		Message:   "User has no email address on record",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryUnavailableError creates a retryable directory transport error.
func NewDirectoryUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryUnavailable,
		Message:   "User directory lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRenderFailedError creates a retryable render error. Template-not-found
// is included here: a transient render-service outage must not drop the
// notification, so the whole render failure mode retries.
func NewRenderFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRenderFailed,
		Message:   "Template render failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError creates a retryable dispatch error.
func NewDispatchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Notification dispatch failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStatusReportFailedError creates a non-fatal reporting error. Callers
// log it and move on; it never affects the job outcome.
func NewStatusReportFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStatusReportFailed,
		Message:   "Status report failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError creates a retryable error for a named collaborator.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service error: %s", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a retryable timeout error for a named collaborator.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Timeout waiting for %s", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification
// ==========================

// AsStandard normalizes any error to a StandardError. Unclassified errors
// default to a retryable internal failure: fail-safe toward retry rather
// than silent drop.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether the job should be failed back to the broker
// for redelivery.
func IsRetryable(err error) bool {
	return AsStandard(err).Retryable
}

// IsTerminalSkip reports whether the error ends processing without delivery
// and without retry.
func IsTerminalSkip(err error) bool {
	switch AsStandard(err).Code {
	case ErrCodeUserNotFound, ErrCodePreferenceDisabled, ErrCodeNoPushToken, ErrCodeNoEmailAddress:
		return true
	}
	return false
}

// SkipReason maps a terminal-skip error to the reason string reported
// upstream and returned in the worker output.
func SkipReason(err error) string {
	switch AsStandard(err).Code {
	case ErrCodeDuplicateJob:
		return "duplicate"
	case ErrCodeUserNotFound:
		return "user_not_found"
	case ErrCodePreferenceDisabled:
		return "preference_disabled"
	case ErrCodeNoPushToken:
		return "no_token"
	case ErrCodeNoEmailAddress:
		return "no_email"
	}
	return ""
}

// GetRetryCount returns how many broker retries a failure classification is
// worth. Terminal codes get zero; the broker ceiling itself stays with the
// deployed process model.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDirectoryUnavailable, ErrCodeRenderFailed, ErrCodeDispatchFailed,
		ErrCodeExternalService, ErrCodeTimeout, ErrCodeInternal:
		return 3
	}
	return 0
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeDuplicateJob:
		return "duplicate"
	case ErrCodeUserNotFound, ErrCodePreferenceDisabled, ErrCodeNoPushToken, ErrCodeNoEmailAddress:
		return "skip"
	case ErrCodeDirectoryUnavailable, ErrCodeRenderFailed, ErrCodeDispatchFailed:
		return "retryable"
	case ErrCodeStatusReportFailed:
		return "report"
	default:
		return "transport"
	}
}
