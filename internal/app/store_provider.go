package app

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/db"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type StoreBootstrapErrorCode string

const (
	StoreBootstrapErrorInvalidDriver StoreBootstrapErrorCode = "invalid_driver"
	StoreBootstrapErrorMissingDSN    StoreBootstrapErrorCode = "missing_dsn"
	StoreBootstrapErrorConnectFailed StoreBootstrapErrorCode = "connect_failed"
	StoreBootstrapErrorMigrateFailed StoreBootstrapErrorCode = "migrate_failed"
)

type StoreBootstrapError struct {
	Code   StoreBootstrapErrorCode
	Driver string
	Cause  error
}

func (e *StoreBootstrapError) Error() string {
	if e == nil {
		return "store bootstrap failed"
	}
	return fmt.Sprintf("store bootstrap failed (code=%s driver=%q): %v", e.Code, e.Driver, e.Cause)
}

func (e *StoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// openStore connects to the configured database and, unless disabled, brings
// the schema up to date. The returned closer releases the pool.
func openStore(log *logger.Logger, cfg Config) (*gorm.DB, func() error, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	log.Info("Selecting store", "driver", driver, "auto_migrate", cfg.AutoMigrate)

	var (
		gdb *gorm.DB
		err error
	)
	switch driver {
	case DriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, nil, storeError(log, StoreBootstrapErrorMissingDSN, driver, errors.New("postgres dsn is empty"))
		}
		gdb, err = db.OpenPostgres(log, cfg.PostgresDSN)
	case DriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, nil, storeError(log, StoreBootstrapErrorMissingDSN, driver, errors.New("SQLITE_PATH is empty"))
		}
		gdb, err = db.OpenSQLite(log, cfg.SQLitePath)
	default:
		return nil, nil, storeError(log, StoreBootstrapErrorInvalidDriver, driver, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}
	if err != nil {
		return nil, nil, storeError(log, StoreBootstrapErrorConnectFailed, driver, err)
	}

	closer := func() error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(gdb); err != nil {
			_ = closer()
			return nil, nil, storeError(log, StoreBootstrapErrorMigrateFailed, driver, err)
		}
	}
	return gdb, closer, nil
}

func storeError(log *logger.Logger, code StoreBootstrapErrorCode, driver string, cause error) error {
	err := &StoreBootstrapError{Code: code, Driver: driver, Cause: cause}
	log.Error("Store bootstrap failed", "driver", driver, "error_code", code, "error", cause)
	return err
}
