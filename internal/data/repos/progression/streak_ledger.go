package progression

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type StreakLedgerRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.StreakLedgerEntry) (*types.StreakLedgerEntry, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.StreakLedgerEntry, error)
}

type streakLedgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStreakLedgerRepo(db *gorm.DB, baseLog *logger.Logger) StreakLedgerRepo {
	return &streakLedgerRepo{db: db, log: baseLog.With("repo", "StreakLedgerRepo")}
}

func (r *streakLedgerRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.StreakLedgerEntry) (*types.StreakLedgerEntry, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := t.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *streakLedgerRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.StreakLedgerEntry, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	limit = clampLimit(limit, 50, 500)
	var out []*types.StreakLedgerEntry
	if err := t.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
