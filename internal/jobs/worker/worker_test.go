package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type countingHandler struct {
	typ   string
	runs  atomic.Int32
	panic bool
}

func (h *countingHandler) Type() string { return h.typ }

func (h *countingHandler) Run(context.Context) (runtime.Result, error) {
	h.runs.Add(1)
	if h.panic {
		panic("handler exploded")
	}
	return runtime.Result{"ok": true}, nil
}

func newRegistry(t *testing.T, hs ...runtime.Handler) *runtime.Registry {
	t.Helper()
	reg := runtime.NewRegistry()
	for _, h := range hs {
		require.NoError(t, reg.Register(h))
	}
	return reg
}

func TestSchedulerTicksUntilCancelled(t *testing.T) {
	fast := &countingHandler{typ: "fast"}
	idle := &countingHandler{typ: "idle"}
	boom := &countingHandler{typ: "boom", panic: true}
	reg := newRegistry(t, fast, idle, boom)

	s := NewScheduler(logger.Nop(), reg, nil, map[string]time.Duration{
		"fast": 5 * time.Millisecond,
		"boom": 5 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool { return fast.runs.Load() >= 3 && boom.runs.Load() >= 3 },
		2*time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()

	assert.Zero(t, idle.runs.Load())
}

func TestSchedulerRejectsUnknownInterval(t *testing.T) {
	s := NewScheduler(nil, newRegistry(t), nil, map[string]time.Duration{"ghost": time.Second})
	assert.Error(t, s.Start(context.Background()))
}

func TestRunOnce(t *testing.T) {
	h := &countingHandler{typ: "sessionize_batch"}
	s := NewScheduler(nil, newRegistry(t, h), nil, nil)

	res, err := s.RunOnce(context.Background(), "sessionize_batch")
	require.NoError(t, err)
	assert.Equal(t, true, res["ok"])
	assert.EqualValues(t, 1, h.runs.Load())

	_, err = s.RunOnce(context.Background(), "nope")
	assert.Error(t, err)
}
