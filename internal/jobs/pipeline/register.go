// Package pipeline wires the progression background jobs into a registry.
package pipeline

import (
	"time"

	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline/sessionize_batch"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline/stale_activity_sweep"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline/vacation_nudge"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type Intervals struct {
	Sessionize time.Duration
	StaleSweep time.Duration
	Nudge      time.Duration
}

// ByType keys the intervals by job type for the schedulers.
func (i Intervals) ByType() map[string]time.Duration {
	return map[string]time.Duration{
		sessionize_batch.JobType:     i.Sessionize,
		stale_activity_sweep.JobType: i.StaleSweep,
		vacation_nudge.JobType:       i.Nudge,
	}
}

// NewRegistry registers the sessionizer batch, the stale sweep and the
// vacation nudge against uc.
func NewRegistry(log *logger.Logger, uc *progression.Usecases, batchLimit int) (*runtime.Registry, error) {
	if batchLimit <= 0 {
		batchLimit = uc.Rules().Sessionizer.DefaultBatchLimit
	}
	reg := runtime.NewRegistry()
	if err := reg.Register(
		sessionize_batch.New(log, uc, batchLimit),
		stale_activity_sweep.New(log, uc),
		vacation_nudge.New(log, uc),
	); err != nil {
		return nil, err
	}
	return reg, nil
}
