package stale_activity_sweep

import (
	"context"

	jobrt "github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
)

func (p *Pipeline) Run(ctx context.Context) (jobrt.Result, error) {
	out, err := p.sweeper.SweepStale(ctx)
	if err != nil {
		return nil, err
	}
	if out.Scanned > 0 {
		p.log.Info("Stale activities swept",
			"scanned", out.Scanned,
			"completed", out.Completed,
			"discarded", out.Discarded,
			"deferred", out.Deferred,
		)
	}
	return jobrt.Result{
		"scanned":   out.Scanned,
		"completed": out.Completed,
		"discarded": out.Discarded,
		"deferred":  out.Deferred,
		"skipped":   out.Skipped,
		"failed":    out.Failed,
	}, nil
}
