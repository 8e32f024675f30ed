package sweeps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	jobrt "github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	Registry *jobrt.Registry
	Metrics  *observability.Metrics

	// HeartbeatEvery defaults to 10s.
	HeartbeatEvery time.Duration
}

func (a *Activities) RunSweep(ctx context.Context, in SweepInput) (SweepResult, error) {
	res := SweepResult{JobType: in.JobType}
	if a == nil || a.Registry == nil {
		return res, fmt.Errorf("sweeps: activity not configured")
	}
	h, ok := a.Registry.Get(in.JobType)
	if !ok {
		return res, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no handler registered for job_type=%s", in.JobType), "unknown_job_type", nil)
	}

	stop := a.startHeartbeat(ctx)
	defer stop()

	out, err := jobrt.Execute(ctx, h, a.Log, a.Metrics)
	res.Result = out
	if err != nil {
		var pe *jobrt.PanicError
		if errors.As(err, &pe) {
			return res, temporal.NewNonRetryableApplicationError(err.Error(), "panic", err)
		}
		return res, err
	}
	return res, nil
}

func (a *Activities) startHeartbeat(ctx context.Context) func() {
	if !activity.IsActivity(ctx) {
		return func() {}
	}
	every := a.HeartbeatEvery
	if every <= 0 {
		every = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
