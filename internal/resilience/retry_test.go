package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), RetryConfig{Attempts: 2, BaseDelay: time.Millisecond}, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesTransientOnce(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), RetryConfig{Attempts: 2, BaseDelay: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewTransientError(errors.New("rate limited"), 429)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 2, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{Attempts: 2, BaseDelay: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("unavailable"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoVal_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{Attempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("invalid request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ContextCancelStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, RetryConfig{Attempts: 5, BaseDelay: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("flaky"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_WrapsDoVal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{Attempts: 2, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return NewTransientError(errors.New("try again"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("invalid input")))
	assert.True(t, IsTransient(NewTransientError(errors.New("overloaded"), 503)))
	assert.True(t, IsTransient(fmt.Errorf("api call: %w", NewTransientError(errors.New("rate limited"), 429))))
	assert.True(t, IsTransient(fmt.Errorf("write tcp: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)))
	assert.True(t, IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}))
	assert.True(t, IsTransient(errors.New("read: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("net/http: TLS handshake timeout")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 409, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, 500, te.StatusCode)
	assert.Equal(t, "root cause", te.Error())
}
