package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// Scheduler runs every registered handler on its own ticker. Loops never
// overlap with themselves: a slow run delays the next tick rather than
// stacking up.
type Scheduler struct {
	log       *logger.Logger
	registry  *runtime.Registry
	metrics   *observability.Metrics
	intervals map[string]time.Duration

	wg sync.WaitGroup
}

func NewScheduler(baseLog *logger.Logger, registry *runtime.Registry, metrics *observability.Metrics, intervals map[string]time.Duration) *Scheduler {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Scheduler{
		log:       baseLog.With("component", "JobScheduler"),
		registry:  registry,
		metrics:   metrics,
		intervals: intervals,
	}
}

// Start launches one loop per job type that has a positive interval. Job
// types without an interval are left idle.
func (s *Scheduler) Start(ctx context.Context) error {
	for jobType := range s.intervals {
		if _, ok := s.registry.Get(jobType); !ok {
			return fmt.Errorf("no handler registered for job_type=%s", jobType)
		}
	}
	started := 0
	for _, jobType := range s.registry.Types() {
		interval := s.intervals[jobType]
		if interval <= 0 {
			s.log.Info("Job disabled (no interval)", "job_type", jobType)
			continue
		}
		h, _ := s.registry.Get(jobType)
		s.wg.Add(1)
		go s.runLoop(ctx, h, interval)
		started++
	}
	s.log.Info("Starting job scheduler", "loops", started)
	return nil
}

// Wait blocks until every loop has observed context cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunOnce executes a single job type immediately.
func (s *Scheduler) RunOnce(ctx context.Context, jobType string) (runtime.Result, error) {
	h, ok := s.registry.Get(jobType)
	if !ok {
		return nil, fmt.Errorf("no handler registered for job_type=%s", jobType)
	}
	return runtime.Execute(ctx, h, s.log, s.metrics)
}

func (s *Scheduler) runLoop(ctx context.Context, h runtime.Handler, interval time.Duration) {
	defer s.wg.Done()
	log := s.log.With("job_type", h.Type())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Job loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			log.Info("Job loop stopped")
			return
		case <-ticker.C:
			if _, err := runtime.Execute(ctx, h, log, s.metrics); err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}
