package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, Backoff(0, 0, 1))
	assert.Equal(t, time.Second, Backoff(250*time.Millisecond, 5*time.Second, 3))
	assert.Equal(t, 5*time.Second, Backoff(250*time.Millisecond, 5*time.Second, 10))
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	cfg := LoadConfig()
	assert.False(t, cfg.Enabled())

	c, err := NewClient(context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "localhost:7233")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	cfg := LoadConfig()

	assert.True(t, cfg.Enabled())
	assert.Equal(t, "stupid-neko", cfg.Namespace)
	assert.Equal(t, "progression", cfg.TaskQueue)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestTLSRequiresCertAndKey(t *testing.T) {
	_, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"})
	assert.Error(t, err)
}

func TestClassifyRPC(t *testing.T) {
	assert.NoError(t, classifyRPC(nil))
	assert.False(t, errors.Is(classifyRPC(status.Error(codes.Unavailable, "down")), ErrNotRetryable))
	assert.False(t, errors.Is(classifyRPC(context.DeadlineExceeded), ErrNotRetryable))
	assert.ErrorIs(t, classifyRPC(status.Error(codes.PermissionDenied, "no")), ErrNotRetryable)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	cfg := Config{DialBackoff: time.Millisecond, DialBackoffMax: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), logger.Nop(), cfg, "dial", time.Minute, func(context.Context) error {
		calls++
		return classifyRPC(status.Error(codes.InvalidArgument, "bad"))
	})
	assert.ErrorIs(t, err, ErrNotRetryable)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	cfg := Config{DialBackoff: time.Millisecond, DialBackoffMax: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), logger.Nop(), cfg, "dial", time.Minute, func(context.Context) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "starting")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{DialBackoff: time.Hour, DialBackoffMax: time.Hour}
	calls := 0
	err := Retry(ctx, logger.Nop(), cfg, "dial", time.Hour, func(context.Context) error {
		calls++
		cancel()
		return status.Error(codes.Unavailable, "down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
