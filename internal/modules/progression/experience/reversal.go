package experience

import (
	"time"

	"github.com/google/uuid"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

type ReversalResult struct {
	ActivityID  uuid.UUID
	ReversedXP  int64
	DurationMs  int64
	Entry       *types.ExperienceLedgerEntry
	LevelsAfter int
}

// ReverseActivity deletes a completed activity and books the negative of exactly
// what the ledger recorded for it. XP is never recomputed from duration here.
func (l *Ledger) ReverseActivity(dbc dbctx.Context, userID, activityID uuid.UUID, at time.Time) (ReversalResult, error) {
	ctx, tx := dbc.Ctx, dbc.Tx
	act, err := l.deps.Activities.GetByID(ctx, tx, activityID)
	if err != nil {
		return ReversalResult{}, err
	}
	if act == nil || act.UserID != userID {
		return ReversalResult{}, progression.ErrActivityNotFound
	}
	switch act.State {
	case progression.ActivityStateDeleted:
		return ReversalResult{}, progression.ErrAlreadyReversed
	case progression.ActivityStateCompleted:
	default:
		return ReversalResult{}, progression.ErrActivityNotFound
	}

	entries, err := l.deps.ExperienceLedger.ListByActivity(ctx, tx, act.ID)
	if err != nil {
		return ReversalResult{}, err
	}
	if repos.HasReversal(entries) {
		return ReversalResult{}, progression.ErrAlreadyReversed
	}
	var sum int64
	for _, e := range entries {
		sum += e.DeltaExperience
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	res := ReversalResult{ActivityID: act.ID, ReversedXP: -sum, DurationMs: act.DurationMs}
	if len(entries) > 0 {
		award, err := l.ApplyExperience(dbc, Award{
			UserID:     userID,
			ProfileID:  entries[0].TargetLanguageProfileID,
			BaseDelta:  -sum,
			ActivityID: &act.ID,
			Kind:       progression.ExperienceKindReversal,
			OccurredAt: at,
		})
		if err != nil {
			return ReversalResult{}, err
		}
		res.Entry = award.Entry
		res.LevelsAfter = award.NewLevel.Level
	}

	ok, err := l.deps.Guard.UpdateByState(dbc, types.Activity{}.TableName(), act.ID,
		[]string{progression.ActivityStateCompleted},
		map[string]any{"state": progression.ActivityStateDeleted, "updated_at": at})
	if err != nil {
		return ReversalResult{}, err
	}
	if err := aggregates.RequireCASSuccess(ok, "activity left completed state during reversal"); err != nil {
		return ReversalResult{}, err
	}

	if act.TargetLanguageProfileID != nil {
		if err := l.deps.Profiles.AddDuration(ctx, tx, *act.TargetLanguageProfileID, -act.DurationMs); err != nil {
			return ReversalResult{}, err
		}
	}
	if err := l.deps.StreakDays.AddAggregates(ctx, tx, userID, rules.DayStart(act.StartedAt), -act.DurationMs, -sum, nil); err != nil {
		return ReversalResult{}, err
	}

	l.log.Info("activity reversed",
		"user_id", userID,
		"activity_id", act.ID,
		"reversed_xp", -sum,
		"duration_ms", act.DurationMs,
	)
	return res, nil
}
