package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/envutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// PostgresDSN assembles the connection string from POSTGRES_* variables unless
// POSTGRES_DSN is set outright.
func PostgresDSN() string {
	if dsn := envutil.String("POSTGRES_DSN", ""); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		envutil.String("POSTGRES_USER", "postgres"),
		envutil.String("POSTGRES_PASSWORD", ""),
		envutil.String("POSTGRES_HOST", "localhost"),
		envutil.String("POSTGRES_PORT", "5432"),
		envutil.String("POSTGRES_NAME", "stupid_neko"),
		envutil.String("POSTGRES_SSLMODE", "disable"),
	)
}

// OpenPostgres connects and sizes the pool from POSTGRES_MAX_* settings.
func OpenPostgres(log *logger.Logger, dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newSQLLog(log),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	pool.SetMaxOpenConns(envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20))
	pool.SetMaxIdleConns(envutil.Int("POSTGRES_MAX_IDLE_CONNS", 5))
	pool.SetConnMaxLifetime(envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute))
	if log != nil {
		log.Info("postgres connected", "max_open_conns", pool.Stats().MaxOpenConnections)
	}
	return gdb, nil
}
