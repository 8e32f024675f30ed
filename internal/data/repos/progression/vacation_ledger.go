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

// VacationTotals are the ledger sums that feed the balance computation.
type VacationTotals struct {
	Granted int
	Used    int
}

type VacationLedgerRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.VacationLedgerEntry) (*types.VacationLedgerEntry, error)
	Totals(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (VacationTotals, error)
	UseExistsForDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (bool, error)
}

type vacationLedgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVacationLedgerRepo(db *gorm.DB, baseLog *logger.Logger) VacationLedgerRepo {
	return &vacationLedgerRepo{db: db, log: baseLog.With("repo", "VacationLedgerRepo")}
}

func (r *vacationLedgerRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.VacationLedgerEntry) (*types.VacationLedgerEntry, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Amount <= 0 {
		entry.Amount = 1
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := t.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *vacationLedgerRepo) Totals(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (VacationTotals, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	type row struct {
		Kind  string
		Total int
	}
	var rows []row
	if err := t.WithContext(ctx).Model(&types.VacationLedgerEntry{}).
		Select("kind, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", userID).
		Group("kind").
		Scan(&rows).Error; err != nil {
		return VacationTotals{}, err
	}
	var out VacationTotals
	for _, rr := range rows {
		switch rr.Kind {
		case progression.VacationKindGrant:
			out.Granted += rr.Total
		case progression.VacationKindUse:
			out.Used += rr.Total
		}
	}
	return out, nil
}

func (r *vacationLedgerRepo) UseExistsForDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart time.Time) (bool, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(ctx).Model(&types.VacationLedgerEntry{}).
		Where("user_id = ? AND kind = ? AND covered_day_start = ?", userID, progression.VacationKindUse, dayStart.UTC()).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
