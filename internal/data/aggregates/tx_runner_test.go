package aggregates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates/testutil"
	repotest "github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

func countLabels(t *testing.T, ctx context.Context, runner aggregates.TxRunner) int64 {
	t.Helper()
	var n int64
	require.NoError(t, runner.InTx(ctx, func(dbc dbctx.Context) error {
		return dbc.Tx.Model(&types.ContentLabel{}).Count(&n).Error
	}))
	return n
}

func TestGormTxRunnerCommitsAfterTransientBeginFailure(t *testing.T) {
	ctx := context.Background()
	db := repotest.DB(t)
	gormRunner := aggregates.NewGormTxRunner(db)
	runner := &testutil.ScriptedRunner{
		BeginErrs: []error{aggregates.RetryableError("database is locked")},
		Next:      gormRunner,
	}
	w := aggregates.NewWriter(aggregates.BaseDeps{DB: db, Runner: runner, RetryDelay: -1})

	err := w.Write(ctx, "labels.seed", func(dbc dbctx.Context) error {
		return dbc.Tx.Create(&types.ContentLabel{
			ContentKey:   "youtube:abc",
			Stage:        types.LabelStageCompleted,
			LanguageCode: "ja",
			UpdatedAt:    time.Now().UTC(),
		}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.Attempts())
	assert.Equal(t, int64(1), countLabels(t, ctx, gormRunner))
}

func TestGormTxRunnerRollsBackFailedBody(t *testing.T) {
	ctx := context.Background()
	db := repotest.DB(t)
	gormRunner := aggregates.NewGormTxRunner(db)
	w := aggregates.NewWriter(aggregates.BaseDeps{DB: db, RetryDelay: -1})

	boom := errors.New("ledger append failed")
	err := w.Write(ctx, "labels.seed", func(dbc dbctx.Context) error {
		if err := dbc.Tx.Create(&types.ContentLabel{
			ContentKey: "youtube:abc",
			Stage:      types.LabelStageQueued,
			UpdatedAt:  time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), countLabels(t, ctx, gormRunner))
}

func TestGormTxRunnerNilDB(t *testing.T) {
	err := aggregates.NewGormTxRunner(nil).InTx(context.Background(), func(dbctx.Context) error { return nil })
	assert.Error(t, err)
}
