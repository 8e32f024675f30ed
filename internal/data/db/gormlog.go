package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// SQL slower than this is logged at warn.
const slowQuery = 500 * time.Millisecond

// sqlLog routes gorm's output through the service logger. Record-not-found is
// an expected outcome for ledger lookups and is never logged.
type sqlLog struct {
	log   *logger.Logger
	level gormLogger.LogLevel
	slow  time.Duration
}

func newSQLLog(log *logger.Logger) gormLogger.Interface {
	if log == nil {
		return gormLogger.Discard
	}
	return &sqlLog{log: log.With("component", "gorm"), level: gormLogger.Warn, slow: slowQuery}
}

func (l *sqlLog) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *sqlLog) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLog) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLog) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLog) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormLogger.Error:
		sql, rows := fc()
		l.log.Error("sql failed", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds(), "error", err)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormLogger.Warn:
		sql, rows := fc()
		l.log.Warn("slow sql", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds())
	case l.level >= gormLogger.Info:
		sql, rows := fc()
		l.log.Debug("sql", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds())
	}
}
