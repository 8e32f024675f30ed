package stale_activity_sweep

import (
	"context"

	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/sessionizer"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const JobType = "stale_activity_sweep"

type Sweeper interface {
	SweepStale(ctx context.Context) (sessionizer.SweepResult, error)
}

type Pipeline struct {
	log     *logger.Logger
	sweeper Sweeper
}

func New(baseLog *logger.Logger, sweeper Sweeper) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("job", JobType),
		sweeper: sweeper,
	}
}

func (p *Pipeline) Type() string { return JobType }
