package sessionizer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/experience"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/streak"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

// Completion is everything one finalized session changed.
type Completion struct {
	Activity      *types.Activity
	Created       bool
	Credit        streak.CreditResult
	Award         *experience.AwardResult
	Notifications []progression.Notification
}

// CompleteInput describes a session ready to be frozen and credited.
// Activity is the persisted in-progress row to complete, or nil to create one.
type CompleteInput struct {
	User       *types.User
	Profile    *types.TargetLanguageProfile
	Activity   *types.Activity
	ContentKey string
	Title      string
	Source     string
	Manual     bool
	Start      time.Time
	End        time.Time
}

// Complete freezes the activity, credits the streak day of its start, awards XP
// for its duration and refreshes the denormalized aggregates. It runs inside the
// caller's transaction.
func (s *Service) Complete(dbc dbctx.Context, in CompleteInput) (Completion, error) {
	ctx, tx := dbc.Ctx, dbc.Tx
	start, end := in.Start.UTC(), in.End.UTC()
	if end.Before(start) {
		end = start
	}
	durationMs := end.Sub(start).Milliseconds()

	act := in.Activity
	created := act == nil
	if created {
		act = &types.Activity{
			UserID:     in.User.ID,
			ContentKey: in.ContentKey,
			StartedAt:  start,
		}
	} else if start.Before(act.StartedAt) {
		act.StartedAt = start
	}
	act.TargetLanguageProfileID = &in.Profile.ID
	act.State = progression.ActivityStateCompleted
	act.LanguageCode = in.Profile.LanguageCode
	act.DurationMs = durationMs
	act.IsManuallyTracked = in.Manual
	act.LastEventAt = end
	act.CompletedAt = &end
	if t := strings.TrimSpace(in.Title); t != "" {
		act.Title = t
	}
	if in.Source != "" {
		act.Source = in.Source
	}
	if created {
		if _, err := s.deps.Repos.Activities.Create(ctx, tx, act); err != nil {
			return Completion{}, err
		}
	} else if err := s.deps.Repos.Activities.Save(ctx, tx, act); err != nil {
		return Completion{}, err
	}

	credit, err := s.deps.Streaks.CreditActivity(dbc, in.User.ID, start, progression.InitiatorUser)
	if err != nil {
		return Completion{}, err
	}

	out := Completion{Activity: act, Created: created, Credit: credit}
	out.Notifications = append(out.Notifications, creditNotifications(in.User.ID, in.Profile.LanguageCode, credit, end)...)

	xp, err := s.deps.Experience.XPForDuration(dbc, in.User.ID, durationMs, in.Manual, end, act.ID)
	if err != nil {
		return Completion{}, err
	}
	var delta int64
	if xp > 0 {
		award, err := s.deps.Experience.ApplyExperience(dbc, experience.Award{
			UserID:           in.User.ID,
			ProfileID:        in.Profile.ID,
			BaseDelta:        xp,
			ActivityID:       &act.ID,
			ApplyStreakBonus: true,
			OccurredAt:       end,
		})
		if err != nil {
			return Completion{}, err
		}
		out.Award = &award
		delta = award.Entry.DeltaExperience
		out.Notifications = append(out.Notifications, award.Notifications(in.User.ID)...)
	}

	if err := s.deps.Repos.Profiles.AddDuration(ctx, tx, in.Profile.ID, durationMs); err != nil {
		return Completion{}, err
	}
	if err := s.deps.Repos.StreakDays.AddAggregates(ctx, tx, in.User.ID, rules.DayStart(start), durationMs, delta, &end); err != nil {
		return Completion{}, err
	}
	return out, nil
}

func creditNotifications(userID uuid.UUID, lang string, credit streak.CreditResult, at time.Time) []progression.Notification {
	if credit.Decision == progression.StreakDecisionAlreadyCredited {
		return nil
	}
	out := []progression.Notification{{
		Type:         progression.NotificationStreakCredited,
		UserID:       userID,
		LanguageCode: lang,
		Data: map[string]any{
			"day":            credit.DayStart.Format(time.DateOnly),
			"decision":       credit.Decision,
			"current_streak": credit.CurrentStreak,
			"longest_streak": credit.LongestStreak,
		},
		At: at,
	}}
	if credit.VacationUsed() {
		out = append(out, progression.Notification{
			Type:   progression.NotificationVacationUsed,
			UserID: userID,
			Data:   map[string]any{"covered_day": credit.BridgedDay.Format(time.DateOnly)},
			At:     at,
		})
	}
	return out
}
