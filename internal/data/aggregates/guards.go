package aggregates

import (
	"strings"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CASGuard performs compare-and-set updates keyed on a row's current state.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByState applies updates only while the row's state is one of allowedStates.
// It reports whether a row was changed.
func (g CASGuard) UpdateByState(dbc dbctx.Context, table string, id uuid.UUID, allowedStates []string, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByState")
	}
	if len(allowedStates) == 0 {
		return false, ValidationError("allowedStates must not be empty")
	}
	res := db.Table(table).
		Where("id = ? AND state IN ?", id, allowedStates).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateByTotal applies updates only while the row still carries expectedTotal in
// total_experience. Ledger appends use it to detect a concurrent writer.
func (g CASGuard) UpdateByTotal(dbc dbctx.Context, table string, id uuid.UUID, expectedTotal int64, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByTotal")
	}
	res := db.Table(table).
		Where("id = ? AND total_experience = ?", id, expectedTotal).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
