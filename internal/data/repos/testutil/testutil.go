package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/db"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

var dbSeq atomic.Int64

// Logger returns a warn-level logger. Repositories log through it in tests so
// unexpected store failures still surface in the test output.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	require.NoError(tb, err, "init logger")
	tb.Cleanup(log.Sync)
	return log
}

// DB returns a private in-memory sqlite database with the full progression
// schema. The pool holds one connection, so code running inside a transaction
// must use that transaction for every query.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', ' ', '#', '?', '&':
			return '_'
		}
		return r
	}, tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, dbSeq.Add(1))

	gdb, err := db.OpenSQLite(nil, dsn)
	require.NoError(tb, err, "open test db")
	tb.Cleanup(func() {
		if pool, err := gdb.DB(); err == nil {
			_ = pool.Close()
		}
	})
	require.NoError(tb, db.AutoMigrateAll(gdb), "migrate test db")
	return gdb
}

// Tx opens a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	require.NoError(tb, tx.Error, "begin tx")
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}
