package progression

import (
	"context"
	"time"

	model "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/streak"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

type NudgeSummary struct {
	Candidates int `json:"candidates"`
	Bridged    int `json:"bridged"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// NudgeAll spends one vacation credit for every user who missed exactly
// yesterday and can afford it. Each user is handled in its own transaction.
func (u *Usecases) NudgeAll(ctx context.Context) (NudgeSummary, error) {
	now := u.deps.Now().UTC()
	ids, err := u.streaks.Candidates(dbctx.Context{Ctx: ctx}, now)
	if err != nil {
		return NudgeSummary{}, err
	}
	sum := NudgeSummary{Candidates: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		var res streak.NudgeResult
		err := u.deps.Writer.Write(ctx, "progression.vacation_nudge", func(dbc dbctx.Context) error {
			var err error
			res, err = u.streaks.Nudge(dbc, id, now)
			return err
		})
		if err != nil {
			sum.Failed++
			u.log.Warn("vacation nudge failed", "user_id", id, "error", err)
			continue
		}
		if !res.Bridged {
			sum.Skipped++
			continue
		}
		sum.Bridged++
		u.deps.Metrics.IncVacationUse(model.InitiatorSystem)
		u.deps.Metrics.IncStreakDecision(model.StreakDecisionVacationCover)
		u.publish(ctx, []model.Notification{{
			Type:   model.NotificationVacationUsed,
			UserID: id,
			Data: map[string]any{
				"covered_day":    res.BridgedDay.Format(time.DateOnly),
				"current_streak": res.CurrentStreak,
				"source":         model.InitiatorSystem,
			},
			At: now,
		}})
	}
	if sum.Candidates > 0 {
		u.log.Info("vacation nudge done", "candidates", sum.Candidates, "bridged", sum.Bridged, "failed", sum.Failed)
	}
	return sum, nil
}
