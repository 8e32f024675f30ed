package testutil

import (
	"context"
	"testing"
	"time"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedUser creates a user with a profile for languageCode selected as current.
func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, languageCode string) (*types.User, *types.TargetLanguageProfile) {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	p := &types.TargetLanguageProfile{
		ID:           uuid.New(),
		UserID:       u.ID,
		LanguageCode: languageCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	u.CurrentTargetLanguageProfileID = &p.ID
	if err := tx.WithContext(ctx).Model(u).Update("current_target_language_profile_id", p.ID).Error; err != nil {
		tb.Fatalf("seed current profile: %v", err)
	}
	return u, p
}

func SeedLabel(tb testing.TB, ctx context.Context, tx *gorm.DB, contentKey, stage, languageCode string) *types.ContentLabel {
	tb.Helper()
	l := &types.ContentLabel{
		ContentKey:   contentKey,
		Stage:        stage,
		LanguageCode: languageCode,
		MediaType:    "video",
		Title:        "title for " + contentKey,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed label: %v", err)
	}
	return l
}

func SeedEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, contentKey, activityType string, at time.Time) *types.RawActivityEvent {
	tb.Helper()
	e := &types.RawActivityEvent{
		ID:           uuid.New(),
		UserID:       userID,
		ContentKey:   contentKey,
		ActivityType: activityType,
		OccurredAt:   at.UTC(),
		Source:       "browser_extension",
		CreatedAt:    time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed event: %v", err)
	}
	return e
}

func SeedCreditedDay(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time, streakAfter int) *types.StreakDay {
	tb.Helper()
	now := time.Now().UTC()
	d := &types.StreakDay{
		ID:                      uuid.New(),
		UserID:                  userID,
		DayStart:                dayStart.UTC(),
		Credited:                true,
		CreditKind:              progression.CreditKindActivity,
		StreakLengthAfterCredit: streakAfter,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed streak day: %v", err)
	}
	return d
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }

func PtrTime(t time.Time) *time.Time { return &t }
