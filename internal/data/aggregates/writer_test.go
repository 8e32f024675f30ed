package aggregates_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates/testutil"
	domainagg "github.com/Joshykins/stupid-neko-sub001/internal/domain/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

func TestWriterSurfacesCommitFailureAsInternal(t *testing.T) {
	runner := &testutil.ScriptedRunner{CommitErr: errors.New("commit failed")}
	hooks := &testutil.Hooks{}
	w := aggregates.NewWriter(aggregates.BaseDeps{Runner: runner, Hooks: hooks, RetryDelay: -1})

	err := w.Write(context.Background(), "sessionizer.finalize", func(_ dbctx.Context) error { return nil })
	assert.True(t, domainagg.IsCode(err, domainagg.CodeInternal), "got %v", err)
	assert.Equal(t, 1, runner.Rollbacks())
	assert.Zero(t, runner.Commits())
	assert.Equal(t, []string{string(domainagg.CodeInternal)}, hooks.Statuses())
}

func TestWriterGivesUpOnPersistentLock(t *testing.T) {
	locked := aggregates.RetryableError("database is locked")
	runner := &testutil.ScriptedRunner{BeginErrs: []error{locked, locked, locked}}
	hooks := &testutil.Hooks{}
	w := aggregates.NewWriter(aggregates.BaseDeps{Runner: runner, Hooks: hooks, MaxAttempts: 3, RetryDelay: -1})

	err := w.Write(context.Background(), "streak.credit", func(_ dbctx.Context) error { return nil })
	assert.True(t, domainagg.IsCode(err, domainagg.CodeRetryable), "got %v", err)
	assert.Equal(t, 3, runner.Attempts())
	assert.Equal(t, 3, hooks.Retries("streak.credit"))
}

func TestWriterRecoversAfterTransientLock(t *testing.T) {
	locked := aggregates.RetryableError("database is locked")
	runner := &testutil.ScriptedRunner{BeginErrs: []error{locked, locked}}
	hooks := &testutil.Hooks{}
	w := aggregates.NewWriter(aggregates.BaseDeps{Runner: runner, Hooks: hooks, MaxAttempts: 3, RetryDelay: -1})

	calls := 0
	err := w.Write(context.Background(), "experience.apply", func(_ dbctx.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, runner.Attempts())
	assert.Equal(t, 1, runner.Commits())
	assert.Equal(t, []string{string(domainagg.CodeRetryable), string(domainagg.CodeRetryable), "success"}, hooks.Statuses())
}
