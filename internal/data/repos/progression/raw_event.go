package progression

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// EventGroupKey identifies one sessionization group.
type EventGroupKey struct {
	UserID     uuid.UUID
	ContentKey string
}

type RawActivityEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.RawActivityEvent) ([]*types.RawActivityEvent, error)
	ListPendingGroups(ctx context.Context, tx *gorm.DB, retryBefore time.Time, limit int) ([]EventGroupKey, error)
	ListByGroup(ctx context.Context, tx *gorm.DB, key EventGroupKey, limit int) ([]*types.RawActivityEvent, error)
	MarkWaitingOnLabeling(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, checkedAt time.Time) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type rawActivityEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRawActivityEventRepo(db *gorm.DB, baseLog *logger.Logger) RawActivityEventRepo {
	return &rawActivityEventRepo{db: db, log: baseLog.With("repo", "RawActivityEventRepo")}
}

func (r *rawActivityEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.RawActivityEvent) ([]*types.RawActivityEvent, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(events) == 0 {
		return []*types.RawActivityEvent{}, nil
	}
	now := time.Now().UTC()
	for _, e := range events {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
	if err := t.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ListPendingGroups returns up to limit distinct (user, content key) groups that
// hold processable events: never examined, or waiting on a label that was last
// checked before retryBefore. Groups are ordered by their oldest event.
func (r *rawActivityEventRepo) ListPendingGroups(ctx context.Context, tx *gorm.DB, retryBefore time.Time, limit int) ([]EventGroupKey, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	limit = clampLimit(limit, 100, 1000)

	type row struct {
		UserID     uuid.UUID
		ContentKey string
	}
	var rows []row
	err := t.WithContext(ctx).Model(&types.RawActivityEvent{}).
		Select("user_id, content_key, MIN(occurred_at) AS first_at").
		Where("is_waiting_on_labeling = ? OR label_checked_at IS NULL OR label_checked_at < ?", false, retryBefore.UTC()).
		Group("user_id, content_key").
		Order("first_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]EventGroupKey, 0, len(rows))
	for _, rr := range rows {
		out = append(out, EventGroupKey{UserID: rr.UserID, ContentKey: rr.ContentKey})
	}
	return out, nil
}

// ListByGroup returns the oldest events of the group in walk order, at most
// limit of them when limit > 0.
func (r *rawActivityEventRepo) ListByGroup(ctx context.Context, tx *gorm.DB, key EventGroupKey, limit int) ([]*types.RawActivityEvent, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(ctx).
		Where("user_id = ? AND content_key = ?", key.UserID, key.ContentKey).
		Order("occurred_at ASC, created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.RawActivityEvent
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rawActivityEventRepo) MarkWaitingOnLabeling(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, checkedAt time.Time) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(ctx).Model(&types.RawActivityEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"is_waiting_on_labeling": true,
			"label_checked_at":       checkedAt.UTC(),
		}).Error
}

func (r *rawActivityEventRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := t.WithContext(ctx).Where("id IN ?", ids).Delete(&types.RawActivityEvent{})
	return res.RowsAffected, res.Error
}

func (r *rawActivityEventRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(ctx).Model(&types.RawActivityEvent{}).
		Where("user_id = ?", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
