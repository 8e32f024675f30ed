package progression

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type ActivityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.Activity) (*types.Activity, error)
	Save(ctx context.Context, tx *gorm.DB, a *types.Activity) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Activity, error)
	GetInProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID, contentKey string) (*types.Activity, error)
	ListStaleInProgress(ctx context.Context, tx *gorm.DB, lastEventBefore time.Time, limit int) ([]*types.Activity, error)
	SumCompletedDuration(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time, excludeID uuid.UUID) (int64, error)
	ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Activity, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) Create(ctx context.Context, tx *gorm.DB, a *types.Activity) (*types.Activity, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if err := t.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *activityRepo) Save(ctx context.Context, tx *gorm.DB, a *types.Activity) error {
	t := tx
	if t == nil {
		t = r.db
	}
	a.UpdatedAt = time.Now().UTC()
	return t.WithContext(ctx).Save(a).Error
}

func (r *activityRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Activity, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.Activity](t.WithContext(ctx).Where("id = ?", id))
}

func (r *activityRepo) GetInProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID, contentKey string) (*types.Activity, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.Activity](t.WithContext(ctx).
		Where("user_id = ? AND content_key = ? AND state = ?", userID, contentKey, progression.ActivityStateInProgress))
}

func (r *activityRepo) ListStaleInProgress(ctx context.Context, tx *gorm.DB, lastEventBefore time.Time, limit int) ([]*types.Activity, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	limit = clampLimit(limit, 200, 1000)
	var out []*types.Activity
	if err := t.WithContext(ctx).
		Where("state = ? AND last_event_at < ?", progression.ActivityStateInProgress, lastEventBefore.UTC()).
		Order("last_event_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SumCompletedDuration adds up durations of the user's completed activities whose
// completion falls in [from, to), skipping excludeID.
func (r *activityRepo) SumCompletedDuration(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time, excludeID uuid.UUID) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var total int64
	q := t.WithContext(ctx).Model(&types.Activity{}).
		Select("COALESCE(SUM(duration_ms), 0)").
		Where("user_id = ? AND state = ? AND completed_at >= ? AND completed_at < ?",
			userID, progression.ActivityStateCompleted, from.UTC(), to.UTC())
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *activityRepo) ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Activity, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	limit = clampLimit(limit, 20, 200)
	var out []*types.Activity
	if err := t.WithContext(ctx).
		Where("user_id = ? AND state <> ?", userID, progression.ActivityStateDeleted).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).Where("id = ?", id).Delete(&types.Activity{}).Error
}
