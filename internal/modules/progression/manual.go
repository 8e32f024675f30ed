package progression

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	model "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/sessionizer"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/apierr"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

const maxManualDuration = 24 * time.Hour

type ManualActivityInput struct {
	Title      string     `json:"title"`
	DurationMs int64      `json:"duration_ms"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

type ManualActivityResult struct {
	Activity        *types.Activity `json:"activity"`
	ExperienceDelta int64           `json:"experience_delta"`
	StreakDecision  string          `json:"streak_decision"`
	CurrentStreak   int             `json:"current_streak"`
	LevelsGained    int             `json:"levels_gained"`
}

// RecordManualActivity books a self-reported session against the user's current
// target language. The session ends at OccurredAt (default now).
func (u *Usecases) RecordManualActivity(ctx context.Context, userID uuid.UUID, in ManualActivityInput) (ManualActivityResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return ManualActivityResult{}, apierr.BadRequest("invalid_manual_activity", "title required")
	}
	dur := time.Duration(in.DurationMs) * time.Millisecond
	if dur <= 0 || dur > maxManualDuration {
		return ManualActivityResult{}, apierr.BadRequest("invalid_manual_activity", "duration_ms must be in (0, %d]", maxManualDuration.Milliseconds())
	}
	now := u.deps.Now().UTC()
	end := now
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() && in.OccurredAt.Before(now) {
		end = in.OccurredAt.UTC()
	}

	var completion sessionizer.Completion
	err := u.deps.Writer.Write(ctx, "progression.manual_activity", func(dbc dbctx.Context) error {
		user, err := u.deps.Repos.Users.GetByIDForUpdate(dbc.Ctx, dbc.Tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return model.ErrMissingUser
		}
		if user.CurrentTargetLanguageProfileID == nil {
			return model.ErrMissingProfile
		}
		profile, err := u.deps.Repos.Profiles.GetByID(dbc.Ctx, dbc.Tx, *user.CurrentTargetLanguageProfileID)
		if err != nil {
			return err
		}
		if profile == nil {
			return model.ErrMissingProfile
		}
		completion, err = u.sessions.Complete(dbc, sessionizer.CompleteInput{
			User:       user,
			Profile:    profile,
			ContentKey: model.SourceManual + ":" + uuid.NewString(),
			Title:      title,
			Source:     model.SourceManual,
			Manual:     true,
			Start:      end.Add(-dur),
			End:        end,
		})
		return err
	})
	if err != nil {
		return ManualActivityResult{}, toAPIError(err, "manual_activity_failed")
	}

	res := ManualActivityResult{
		Activity:       completion.Activity,
		StreakDecision: completion.Credit.Decision,
		CurrentStreak:  completion.Credit.CurrentStreak,
	}
	u.deps.Metrics.IncStreakDecision(completion.Credit.Decision)
	if completion.Credit.VacationUsed() {
		u.deps.Metrics.IncVacationUse(model.InitiatorUser)
	}
	if completion.Award != nil {
		res.ExperienceDelta = completion.Award.Entry.DeltaExperience
		res.LevelsGained = completion.Award.LevelsGained
		u.deps.Metrics.ObserveExperience(res.ExperienceDelta, res.LevelsGained)
	}
	u.publish(ctx, completion.Notifications)
	u.log.Info("manual activity recorded",
		"user_id", userID,
		"activity_id", completion.Activity.ID,
		"duration_ms", completion.Activity.DurationMs,
		"xp", res.ExperienceDelta,
	)
	return res, nil
}

type DeleteActivityResult struct {
	ActivityID       uuid.UUID `json:"activity_id"`
	ReversedXP       int64     `json:"reversed_experience"`
	RemovedDuration  int64     `json:"removed_duration_ms"`
	LevelAfterDelete int       `json:"level_after_delete,omitempty"`
}

// DeleteActivity reverses exactly the XP the ledger booked for the activity and
// marks it deleted.
func (u *Usecases) DeleteActivity(ctx context.Context, userID, activityID uuid.UUID) (DeleteActivityResult, error) {
	if activityID == uuid.Nil {
		return DeleteActivityResult{}, apierr.BadRequest("invalid_activity_id", "activity id required")
	}
	now := u.deps.Now().UTC()
	var out DeleteActivityResult
	err := u.deps.Writer.Write(ctx, "progression.delete_activity", func(dbc dbctx.Context) error {
		rev, err := u.experience.ReverseActivity(dbc, userID, activityID, now)
		if err != nil {
			return err
		}
		out = DeleteActivityResult{
			ActivityID:       rev.ActivityID,
			ReversedXP:       rev.ReversedXP,
			RemovedDuration:  rev.DurationMs,
			LevelAfterDelete: rev.LevelsAfter,
		}
		return nil
	})
	if err != nil {
		return DeleteActivityResult{}, toAPIError(err, "delete_activity_failed")
	}
	return out, nil
}
