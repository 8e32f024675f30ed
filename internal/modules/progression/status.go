package progression

import (
	"context"
	"time"

	"github.com/google/uuid"

	model "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/leveling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/streak"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

type ProfileStatus struct {
	ProfileID               uuid.UUID `json:"profile_id"`
	LanguageCode            string    `json:"language_code"`
	Current                 bool      `json:"current"`
	TotalExperience         int64     `json:"total_experience"`
	TotalDurationLearningMs int64     `json:"total_duration_learning_ms"`
	leveling.Progress
}

type Status struct {
	UserID             uuid.UUID       `json:"user_id"`
	CurrentStreak      int             `json:"current_streak"`
	LongestStreak      int             `json:"longest_streak"`
	LastCreditedDay    *time.Time      `json:"last_credited_day,omitempty"`
	StreakMultiplier   float64         `json:"streak_multiplier"`
	Vacation           streak.Balance  `json:"vacation"`
	TotalExperience    int64           `json:"total_experience"`
	Profiles           []ProfileStatus `json:"profiles"`
	PendingEventsCount int64           `json:"pending_events"`
}

// Status projects the user's streak, vacation and per-language level state.
// The streak reads as lapsed once the last credited day is older than yesterday.
func (u *Usecases) Status(ctx context.Context, userID uuid.UUID) (Status, error) {
	dbc := dbctx.Context{Ctx: ctx}
	user, err := u.deps.Repos.Users.GetByID(ctx, nil, userID)
	if err != nil {
		return Status{}, toAPIError(err, "load_progress_failed")
	}
	if user == nil {
		return Status{}, toAPIError(model.ErrMissingUser, "load_progress_failed")
	}
	latest, err := u.deps.Repos.StreakDays.LatestCredited(ctx, nil, userID)
	if err != nil {
		return Status{}, toAPIError(err, "load_progress_failed")
	}
	balance, err := u.streaks.VacationBalance(dbc, user)
	if err != nil {
		return Status{}, toAPIError(err, "load_progress_failed")
	}
	profiles, err := u.deps.Repos.Profiles.ListByUser(ctx, nil, userID)
	if err != nil {
		return Status{}, toAPIError(err, "load_progress_failed")
	}
	pending, err := u.deps.Repos.RawEvents.CountByUser(ctx, nil, userID)
	if err != nil {
		return Status{}, toAPIError(err, "load_progress_failed")
	}

	current := streak.EffectiveStreak(latest, u.deps.Now())
	out := Status{
		UserID:             userID,
		CurrentStreak:      current,
		LongestStreak:      user.LongestStreak,
		StreakMultiplier:   u.streaks.Multiplier(current),
		Vacation:           balance,
		TotalExperience:    user.TotalExperience,
		PendingEventsCount: pending,
		Profiles:           make([]ProfileStatus, 0, len(profiles)),
	}
	if latest != nil {
		d := latest.DayStart.UTC()
		out.LastCreditedDay = &d
	}
	curve := u.experience.Curve()
	for _, p := range profiles {
		out.Profiles = append(out.Profiles, ProfileStatus{
			ProfileID:               p.ID,
			LanguageCode:            p.LanguageCode,
			Current:                 user.CurrentTargetLanguageProfileID != nil && *user.CurrentTargetLanguageProfileID == p.ID,
			TotalExperience:         p.TotalExperience,
			TotalDurationLearningMs: p.TotalDurationLearningMs,
			Progress:                curve.LevelFromXP(p.TotalExperience),
		})
	}
	return out, nil
}
