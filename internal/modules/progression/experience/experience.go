// Package experience converts tracked time into XP and keeps the append-only
// experience ledger and its denormalized totals in step.
package experience

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/leveling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/streak"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type Deps struct {
	Log              *logger.Logger
	Rules            rules.Rules
	Guard            aggregates.CASGuard
	Users            repos.UserRepo
	Profiles         repos.TargetLanguageProfileRepo
	Activities       repos.ActivityRepo
	StreakDays       repos.StreakDayRepo
	ExperienceLedger repos.ExperienceLedgerRepo
}

type Ledger struct {
	deps  Deps
	curve leveling.Curve
	log   *logger.Logger
}

func New(deps Deps) *Ledger {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Ledger{
		deps:  deps,
		curve: leveling.NewCurve(deps.Rules.Leveling),
		log:   deps.Log.With("service", "ExperienceLedger"),
	}
}

func (l *Ledger) Curve() leveling.Curve { return l.curve }

// XPForDuration prices a session of durationMs ending at occurredAt. The day's
// other completed activities (excluding excludeID) count against the daily budget.
func (l *Ledger) XPForDuration(dbc dbctx.Context, userID uuid.UUID, durationMs int64, manual bool, occurredAt time.Time, excludeID uuid.UUID) (int64, error) {
	if durationMs < 60_000 {
		return 0, nil
	}
	day := rules.DayStart(occurredAt)
	usedMs, err := l.deps.Activities.SumCompletedDuration(dbc.Ctx, dbc.Tx, userID, day, day.AddDate(0, 0, 1), excludeID)
	if err != nil {
		return 0, err
	}
	return ComputeXP(durationMs, usedMs/60_000, manual, l.deps.Rules.Experience), nil
}

// ComputeXP is the pure pricing rule behind XPForDuration.
func ComputeXP(durationMs, sameDayMinutes int64, manual bool, cfg rules.Experience) int64 {
	minutes := durationMs / 60_000
	if minutes <= 0 {
		return 0
	}
	remaining := int64(cfg.DailyBudget/time.Minute) - sameDayMinutes
	if remaining < 0 {
		remaining = 0
	}
	if minutes > remaining {
		minutes = remaining
	}
	raw := float64(cfg.XPPerHour) / 60 * float64(minutes)
	if manual && raw > float64(cfg.ManualEntryMaxXP) {
		raw = float64(cfg.ManualEntryMaxXP)
	}
	xp := int64(math.Round(raw))
	if xp < 0 {
		return 0
	}
	return xp
}

// Award is one request to move a profile's XP total.
type Award struct {
	UserID           uuid.UUID
	ProfileID        uuid.UUID
	BaseDelta        int64
	ActivityID       *uuid.UUID
	ApplyStreakBonus bool
	Kind             string
	OccurredAt       time.Time
}

type AwardResult struct {
	Entry         *types.ExperienceLedgerEntry
	LanguageCode  string
	Multiplier    float64
	PreviousTotal int64
	PreviousLevel leveling.Progress
	NewLevel      leveling.Progress
	LevelsGained  int
}

// ApplyExperience appends one ledger entry on top of the profile's latest entry and
// moves the denormalized totals. A racing append loses on the (profile, sequence)
// index or on the total CAS and surfaces as a conflict for the writer to retry.
func (l *Ledger) ApplyExperience(dbc dbctx.Context, in Award) (AwardResult, error) {
	ctx, tx := dbc.Ctx, dbc.Tx
	profile, err := l.deps.Profiles.GetByID(ctx, tx, in.ProfileID)
	if err != nil {
		return AwardResult{}, err
	}
	if profile == nil || profile.UserID != in.UserID {
		return AwardResult{}, progression.ErrMissingProfile
	}
	user, err := l.deps.Users.GetByID(ctx, tx, in.UserID)
	if err != nil {
		return AwardResult{}, err
	}
	if user == nil {
		return AwardResult{}, progression.ErrMissingUser
	}

	latest, err := l.deps.ExperienceLedger.Latest(ctx, tx, profile.ID)
	if err != nil {
		return AwardResult{}, err
	}
	var previousTotal, seq int64
	if latest != nil {
		previousTotal = latest.RunningTotalAfter
		seq = latest.Sequence
	}
	if profile.TotalExperience != previousTotal {
		return AwardResult{}, aggregates.ConflictError(fmt.Sprintf(
			"profile %s total %d does not match ledger %d", profile.ID, profile.TotalExperience, previousTotal))
	}

	multiplier := 1.0
	finalDelta := in.BaseDelta
	applied := []progression.AppliedMultiplier{}
	if in.ApplyStreakBonus {
		multiplier = streak.Multiplier(user.CurrentStreak, l.deps.Rules.Experience)
		finalDelta = int64(math.Floor(float64(in.BaseDelta) * multiplier))
		applied = append(applied, progression.AppliedMultiplier{Kind: "streak", Value: multiplier})
	}
	multipliersJSON, err := json.Marshal(applied)
	if err != nil {
		return AwardResult{}, err
	}

	newTotal := previousTotal + finalDelta
	prevLevel := l.curve.LevelFromXP(previousTotal)
	newLevel := l.curve.LevelFromXP(newTotal)
	kind := in.Kind
	if kind == "" {
		kind = progression.ExperienceKindAward
	}
	at := in.OccurredAt.UTC()
	if in.OccurredAt.IsZero() {
		at = time.Now().UTC()
	}

	entry, err := l.deps.ExperienceLedger.Append(ctx, tx, &types.ExperienceLedgerEntry{
		UserID:                  in.UserID,
		TargetLanguageProfileID: profile.ID,
		Sequence:                seq + 1,
		ActivityID:              in.ActivityID,
		Kind:                    kind,
		BaseExperience:          in.BaseDelta,
		AppliedMultipliers:      datatypes.JSON(multipliersJSON),
		DeltaExperience:         finalDelta,
		RunningTotalAfter:       newTotal,
		PreviousLevel:           prevLevel.Level,
		NewLevel:                newLevel.Level,
		LevelsGained:            newLevel.Level - prevLevel.Level,
		OccurredAt:              at,
	})
	if err != nil {
		return AwardResult{}, err
	}

	ok, err := l.deps.Guard.UpdateByTotal(dbc, types.TargetLanguageProfile{}.TableName(), profile.ID, previousTotal, map[string]any{
		"total_experience": newTotal,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return AwardResult{}, err
	}
	if err := aggregates.RequireCASSuccess(ok, "profile total changed during experience append"); err != nil {
		return AwardResult{}, err
	}
	if err := l.deps.Users.AddTotalExperience(ctx, tx, in.UserID, finalDelta); err != nil {
		return AwardResult{}, err
	}

	l.log.Debug("experience applied",
		"user_id", in.UserID,
		"profile_id", profile.ID,
		"kind", kind,
		"delta", finalDelta,
		"total", newTotal,
		"levels_gained", entry.LevelsGained,
	)
	return AwardResult{
		Entry:         entry,
		LanguageCode:  profile.LanguageCode,
		Multiplier:    multiplier,
		PreviousTotal: previousTotal,
		PreviousLevel: prevLevel,
		NewLevel:      newLevel,
		LevelsGained:  entry.LevelsGained,
	}, nil
}

// Notifications lists what subscribers should hear about this award.
func (r AwardResult) Notifications(userID uuid.UUID) []progression.Notification {
	if r.Entry == nil || r.Entry.DeltaExperience == 0 {
		return nil
	}
	out := []progression.Notification{{
		Type:         progression.NotificationXPAwarded,
		UserID:       userID,
		LanguageCode: r.LanguageCode,
		Data: map[string]any{
			"delta":       r.Entry.DeltaExperience,
			"total":       r.Entry.RunningTotalAfter,
			"multiplier":  r.Multiplier,
			"activity_id": r.Entry.ActivityID,
		},
		At: r.Entry.OccurredAt,
	}}
	if r.LevelsGained > 0 {
		out = append(out, progression.Notification{
			Type:         progression.NotificationLevelUp,
			UserID:       userID,
			LanguageCode: r.LanguageCode,
			Data: map[string]any{
				"previous_level": r.PreviousLevel.Level,
				"new_level":      r.NewLevel.Level,
				"levels_gained":  r.LevelsGained,
			},
			At: r.Entry.OccurredAt,
		})
	}
	return out
}
