package vacation_nudge

import (
	"context"

	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const JobType = "vacation_nudge"

type Nudger interface {
	NudgeAll(ctx context.Context) (progression.NudgeSummary, error)
}

type Pipeline struct {
	log    *logger.Logger
	nudger Nudger
}

func New(baseLog *logger.Logger, nudger Nudger) *Pipeline {
	return &Pipeline{
		log:    baseLog.With("job", JobType),
		nudger: nudger,
	}
}

func (p *Pipeline) Type() string { return JobType }
