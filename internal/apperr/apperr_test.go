package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := New(KindNoKey, "no API key configured")
	assert.Equal(t, "no_key: no API key configured", err.Error())
}

func TestError_MessageWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindNetworkError, "embedding request failed", cause)
	assert.Equal(t, "network_error: embedding request failed: connection refused", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestKindOf(t *testing.T) {
	err := New(KindRateLimitExceeded, "retries exhausted").WithStatus(429)
	assert.Equal(t, KindRateLimitExceeded, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := New(KindKeyInvalid, "unauthorized").WithStatus(401)
	outer := fmt.Errorf("analyze job: %w", inner)
	assert.Equal(t, KindKeyInvalid, KindOf(outer))
	assert.True(t, IsKind(outer, KindKeyInvalid))
}

func TestIs_MatchesOnKind(t *testing.T) {
	err := Newf(KindDimensionMismatch, "got %d want %d", 512, 768)
	assert.True(t, errors.Is(err, New(KindDimensionMismatch, "")))
	assert.False(t, errors.Is(err, New(KindParseError, "")))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindNetworkError, true},
		{KindRateLimitExceeded, true},
		{KindServerError, true},
		{KindWorkerBusy, false},
		{KindNoKey, false},
		{KindInvalidInput, false},
		{KindInvalidResponse, false},
		{KindDimensionMismatch, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.Retryable(), "kind %s", tt.kind)
		assert.Equal(t, tt.want, Retryable(New(tt.kind, "x")), "kind %s", tt.kind)
	}
}

func TestRetryable_PlainError(t *testing.T) {
	assert.False(t, Retryable(errors.New("plain")))
}

func TestWithRetryAfter(t *testing.T) {
	err := New(KindRateLimitExceeded, "slow down").WithRetryAfter(2 * time.Second).WithStatus(429)
	assert.Equal(t, 2*time.Second, err.RetryAfter)
	assert.Equal(t, 429, err.Status)
}
