package progression

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type StreakDayRepo interface {
	GetByUserAndDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (*types.StreakDay, error)
	EnsureDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (*types.StreakDay, error)
	Save(ctx context.Context, tx *gorm.DB, day *types.StreakDay) error
	AddAggregates(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time, durationMs, xp int64, lastEventAt *time.Time) error
	LatestCredited(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakDay, error)
	LatestCreditedBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (*types.StreakDay, error)
	ListUsersLastCreditedOn(ctx context.Context, tx *gorm.DB, dayStart time.Time, limit int) ([]uuid.UUID, error)
	ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.StreakDay, error)
}

type streakDayRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStreakDayRepo(db *gorm.DB, baseLog *logger.Logger) StreakDayRepo {
	return &streakDayRepo{db: db, log: baseLog.With("repo", "StreakDayRepo")}
}

func (r *streakDayRepo) GetByUserAndDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (*types.StreakDay, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.StreakDay](t.WithContext(ctx).
		Where("user_id = ? AND day_start = ?", userID, dayStart.UTC()))
}

// EnsureDay inserts an uncredited row for the day if none exists and returns the stored row.
func (r *streakDayRepo) EnsureDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (*types.StreakDay, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	row := &types.StreakDay{
		ID:        uuid.New(),
		UserID:    userID,
		DayStart:  dayStart.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "day_start"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByUserAndDay(ctx, t, userID, dayStart)
}

func (r *streakDayRepo) Save(ctx context.Context, tx *gorm.DB, day *types.StreakDay) error {
	t := tx
	if t == nil {
		t = r.db
	}
	day.UpdatedAt = time.Now().UTC()
	return t.WithContext(ctx).Save(day).Error
}

// AddAggregates adjusts the tracked duration and XP of a day, creating the row if needed.
// Totals never go below zero.
func (r *streakDayRepo) AddAggregates(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time, durationMs, xp int64, lastEventAt *time.Time) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if _, err := r.EnsureDay(ctx, t, userID, dayStart); err != nil {
		return err
	}
	updates := map[string]any{
		"tracked_duration_ms": gorm.Expr("CASE WHEN tracked_duration_ms + ? < 0 THEN 0 ELSE tracked_duration_ms + ? END", durationMs, durationMs),
		"xp_gained":           gorm.Expr("CASE WHEN xp_gained + ? < 0 THEN 0 ELSE xp_gained + ? END", xp, xp),
		"updated_at":          time.Now().UTC(),
	}
	if lastEventAt != nil {
		updates["last_event_at"] = lastEventAt.UTC()
	}
	return t.WithContext(ctx).Model(&types.StreakDay{}).
		Where("user_id = ? AND day_start = ?", userID, dayStart.UTC()).
		Updates(updates).Error
}

func (r *streakDayRepo) LatestCredited(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakDay, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.StreakDay](t.WithContext(ctx).
		Where("user_id = ? AND credited = ?", userID, true).
		Order("day_start DESC"))
}

func (r *streakDayRepo) LatestCreditedBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (*types.StreakDay, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.StreakDay](t.WithContext(ctx).
		Where("user_id = ? AND credited = ? AND day_start < ?", userID, true, dayStart.UTC()).
		Order("day_start DESC"))
}

// ListUsersLastCreditedOn returns users whose most recent credited day is exactly dayStart.
func (r *streakDayRepo) ListUsersLastCreditedOn(ctx context.Context, tx *gorm.DB, dayStart time.Time, limit int) ([]uuid.UUID, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	limit = clampLimit(limit, 500, 5000)
	var ids []uuid.UUID
	err := t.WithContext(ctx).Model(&types.StreakDay{}).
		Select("user_id").
		Where("credited = ?", true).
		Group("user_id").
		Having("MAX(day_start) = ?", dayStart.UTC()).
		Order("user_id ASC").
		Limit(limit).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *streakDayRepo) ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.StreakDay, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.StreakDay
	if err := t.WithContext(ctx).
		Where("user_id = ? AND day_start >= ? AND day_start < ?", userID, from.UTC(), to.UTC()).
		Order("day_start ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
