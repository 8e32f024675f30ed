package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	jobrt "github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
	"github.com/Joshykins/stupid-neko-sub001/internal/temporalx"
	"github.com/Joshykins/stupid-neko-sub001/internal/temporalx/sweeps"
)

// Runner polls the progression task queue and keeps one schedule per sweep.
type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc        temporalsdkclient.Client
	registry  *jobrt.Registry
	metrics   *observability.Metrics
	intervals map[string]time.Duration
}

func NewRunner(
	log *logger.Logger,
	cfg temporalx.Config,
	tc temporalsdkclient.Client,
	registry *jobrt.Registry,
	metrics *observability.Metrics,
	intervals map[string]time.Duration,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if registry == nil {
		return nil, fmt.Errorf("temporal worker missing job registry")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		log:       log.With("component", "TemporalWorker"),
		cfg:       cfg,
		tc:        tc,
		registry:  registry,
		metrics:   metrics,
		intervals: intervals,
	}, nil
}

// Start launches the worker, retrying until DialMaxWait elapses, and then
// reconciles schedules. The worker stops when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	err := temporalx.Retry(ctx, r.log, cfg, "worker start", cfg.DialMaxWait, func(ctx context.Context) error {
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "error", err)
			}
		}
		return startErr
	})
	if err != nil {
		return fmt.Errorf("temporal worker %s: %w", cfg.TaskQueue, err)
	}
	r.log.Info("Temporal worker started", "task_queue", cfg.TaskQueue)

	return sweeps.EnsureSchedules(ctx, r.log, r.tc.ScheduleClient(), cfg.TaskQueue, r.intervals)
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &sweeps.Activities{
		Log:      r.log,
		Registry: r.registry,
		Metrics:  r.metrics,
	}
	w.RegisterWorkflowWithOptions(sweeps.ProgressionSweepWorkflow, workflow.RegisterOptions{Name: sweeps.WorkflowName})
	w.RegisterActivityWithOptions(acts.RunSweep, activity.RegisterOptions{Name: sweeps.ActivityRunSweep})
	return w
}
