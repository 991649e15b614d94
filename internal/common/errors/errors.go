// Package errors provides standardized error handling for the overdue watchdog.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStateLoadFailed        ErrorCode = "STATE_LOAD_FAILED"
	ErrCodeProfileLookupFailed    ErrorCode = "PROFILE_LOOKUP_FAILED"
	ErrCodeContactLookupFailed    ErrorCode = "CONTACT_LOOKUP_FAILED"
	ErrCodeAlertFlagUpdateFailed  ErrorCode = "ALERT_FLAG_UPDATE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInvalidTriggerInput    ErrorCode = "INVALID_TRIGGER_INPUT"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// Sentinels matched with errors.Is against a StandardError of the same code.
var (
	ErrStateLoadFailed        = &StandardError{Code: ErrCodeStateLoadFailed}
	ErrProfileLookupFailed    = &StandardError{Code: ErrCodeProfileLookupFailed}
	ErrContactLookupFailed    = &StandardError{Code: ErrCodeContactLookupFailed}
	ErrAlertFlagUpdateFailed  = &StandardError{Code: ErrCodeAlertFlagUpdateFailed}
	ErrNotificationSendFailed = &StandardError{Code: ErrCodeNotificationSendFailed}
	ErrInvalidTriggerInput    = &StandardError{Code: ErrCodeInvalidTriggerInput}
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches on code so callers can compare against the package sentinels.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewStateLoadFailedError is the only error class that aborts a whole run.
func NewStateLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateLoadFailed,
		Message:   "Failed to load watchdog states",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewProfileLookupFailedError(subjectID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileLookupFailed,
		Message:   "Profile lookup failed",
		Details:   fmt.Sprintf("subjectId: %s, error: %s", subjectID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"subjectId": subjectID},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewContactLookupFailedError(subjectID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeContactLookupFailed,
		Message:   "Emergency contact lookup failed",
		Details:   fmt.Sprintf("subjectId: %s, error: %s", subjectID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"subjectId": subjectID},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewAlertFlagUpdateFailedError(subjectID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlertFlagUpdateFailed,
		Message:   "Failed to mark subject as alerted",
		Details:   fmt.Sprintf("subjectId: %s, error: %s", subjectID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"subjectId": subjectID},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError wraps one failed delivery. It is logged, never retried within a run.
func NewNotificationSendFailedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidTriggerInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTriggerInput,
		Message:   "Invalid trigger input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStateLoadFailed:
		return 3
	default:
		return 0
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// IsRetryable reports whether err carries a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}
