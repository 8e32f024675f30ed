package vacation_nudge

import (
	"context"

	jobrt "github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
)

func (p *Pipeline) Run(ctx context.Context) (jobrt.Result, error) {
	out, err := p.nudger.NudgeAll(ctx)
	res := jobrt.Result{
		"candidates": out.Candidates,
		"bridged":    out.Bridged,
		"skipped":    out.Skipped,
		"failed":     out.Failed,
	}
	if err != nil {
		return res, err
	}
	if out.Bridged > 0 {
		p.log.Info("Vacation credits applied", "bridged", out.Bridged, "candidates", out.Candidates)
	}
	return res, nil
}
