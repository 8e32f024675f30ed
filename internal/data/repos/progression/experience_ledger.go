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

type ExperienceLedgerRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.ExperienceLedgerEntry) (*types.ExperienceLedgerEntry, error)
	Latest(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.ExperienceLedgerEntry, error)
	ListByActivity(ctx context.Context, tx *gorm.DB, activityID uuid.UUID) ([]*types.ExperienceLedgerEntry, error)
	ListByProfile(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, limit int) ([]*types.ExperienceLedgerEntry, error)
	SumDelta(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (int64, error)
}

type experienceLedgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExperienceLedgerRepo(db *gorm.DB, baseLog *logger.Logger) ExperienceLedgerRepo {
	return &experienceLedgerRepo{db: db, log: baseLog.With("repo", "ExperienceLedgerRepo")}
}

// Append inserts the entry as-is. A duplicate (profile, sequence) fails with a
// unique violation, which the write path maps to a conflict and retries.
func (r *experienceLedgerRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ExperienceLedgerEntry) (*types.ExperienceLedgerEntry, error) {
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

func (r *experienceLedgerRepo) Latest(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.ExperienceLedgerEntry, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return firstOrNil[types.ExperienceLedgerEntry](t.WithContext(ctx).
		Where("target_language_profile_id = ?", profileID).
		Order("sequence DESC"))
}

func (r *experienceLedgerRepo) ListByActivity(ctx context.Context, tx *gorm.DB, activityID uuid.UUID) ([]*types.ExperienceLedgerEntry, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.ExperienceLedgerEntry
	if err := t.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("sequence ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *experienceLedgerRepo) ListByProfile(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, limit int) ([]*types.ExperienceLedgerEntry, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	limit = clampLimit(limit, 50, 500)
	var out []*types.ExperienceLedgerEntry
	if err := t.WithContext(ctx).
		Where("target_language_profile_id = ?", profileID).
		Order("sequence DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SumDelta recomputes the profile total from the ledger; used by consistency checks.
func (r *experienceLedgerRepo) SumDelta(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var total int64
	if err := t.WithContext(ctx).Model(&types.ExperienceLedgerEntry{}).
		Select("COALESCE(SUM(delta_experience), 0)").
		Where("target_language_profile_id = ?", profileID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// HasReversal reports whether entries already include a reversal.
func HasReversal(entries []*types.ExperienceLedgerEntry) bool {
	for _, e := range entries {
		if e != nil && e.Kind == progression.ExperienceKindReversal {
			return true
		}
	}
	return false
}
