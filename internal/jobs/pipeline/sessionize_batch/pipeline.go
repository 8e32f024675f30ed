package sessionize_batch

import (
	"context"

	jobrt "github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
)

func (p *Pipeline) Run(ctx context.Context) (jobrt.Result, error) {
	out, err := p.batcher.ProcessBatch(ctx, p.limit)
	if err != nil {
		return nil, err
	}
	if out.Groups > 0 {
		p.log.Info("Sessionizer batch processed",
			"groups", out.Groups,
			"events", out.Processed,
			"completed", out.CompletedActivities,
			"waiting_on_label", out.WaitingOnLabel,
			"failed", out.Failed,
		)
	}
	return jobrt.Result{
		"groups":               out.Groups,
		"processed":            out.Processed,
		"created_activities":   out.CreatedActivities,
		"completed_activities": out.CompletedActivities,
		"maintained":           out.Maintained,
		"waiting_on_label":     out.WaitingOnLabel,
		"off_target":           out.OffTarget,
		"orphaned":             out.Orphaned,
		"too_short":            out.TooShort,
		"dropped":              out.Dropped,
		"failed":               out.Failed,
	}, nil
}
