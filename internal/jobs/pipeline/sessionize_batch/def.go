package sessionize_batch

import (
	"context"

	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/sessionizer"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const JobType = "sessionize_batch"

type Batcher interface {
	ProcessBatch(ctx context.Context, limit int) (sessionizer.BatchResult, error)
}

type Pipeline struct {
	log     *logger.Logger
	batcher Batcher
	limit   int
}

func New(baseLog *logger.Logger, batcher Batcher, limit int) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("job", JobType),
		batcher: batcher,
		limit:   limit,
	}
}

func (p *Pipeline) Type() string { return JobType }
