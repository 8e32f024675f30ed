package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// OpenSQLite opens a sqlite database for local runs and tests. The pool holds
// one connection so in-memory databases stay coherent; callers must thread the
// active transaction through every query. A nil log discards SQL logging.
func OpenSQLite(log *logger.Logger, dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newSQLLog(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	pool.SetMaxOpenConns(1)
	return gdb, nil
}
