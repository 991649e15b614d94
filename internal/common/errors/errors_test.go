package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_IsMatchesOnCode(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("run: %w", NewStateLoadFailedError(cause))

	assert.True(t, stderrors.Is(err, ErrStateLoadFailed))
	assert.False(t, stderrors.Is(err, ErrContactLookupFailed))
	assert.True(t, stderrors.Is(err, cause))
}

func TestNormalize(t *testing.T) {
	std := NewProfileLookupFailedError("user-1", stderrors.New("timeout"))
	assert.Same(t, std, Normalize(fmt.Errorf("wrapped: %w", std)))

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"state load is retried", NewStateLoadFailedError(stderrors.New("db down")), 3},
		{"invalid input is thrown", NewInvalidTriggerInputError("now: bad format"), 0},
		{"internal is thrown", NewInternalError(stderrors.New("panic")), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			require.NotNil(t, bpmn)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAlertFlagUpdateFailedError("user-1", stderrors.New("x"))))
	assert.False(t, IsRetryable(NewNotificationSendFailedError("twilio", stderrors.New("x"))))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}
