package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/Joshykins/stupid-neko-sub001/internal/domain/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
	"gorm.io/gorm"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 25 * time.Millisecond
)

type BaseDeps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Runner      TxRunner
	Hooks       Hooks
	CASGuard    CASGuard
	MaxAttempts int
	RetryDelay  time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	if d.RetryDelay < 0 {
		d.RetryDelay = 0
	} else if d.RetryDelay == 0 {
		d.RetryDelay = defaultRetryDelay
	}
	return d
}

// Writer runs transactional write bodies with error mapping, hooks and retries.
type Writer struct {
	deps BaseDeps
}

func NewWriter(deps BaseDeps) *Writer {
	return &Writer{deps: deps.withDefaults()}
}

func (w *Writer) Guard() CASGuard { return w.deps.CASGuard }

// Write runs fn in a fresh transaction. Conflicts and retryable failures are
// retried up to MaxAttempts; fn must therefore be safe to re-run from scratch.
func (w *Writer) Write(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error {
	var err error
	for attempt := 1; attempt <= w.deps.MaxAttempts; attempt++ {
		err = executeWrite(ctx, w.deps, op, fn)
		if err == nil || !retryable(err) || attempt == w.deps.MaxAttempts {
			return err
		}
		w.deps.Log.Debug("aggregate write retry", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return MapError(op, ctx.Err())
		case <-time.After(time.Duration(attempt) * w.deps.RetryDelay):
		}
	}
	return err
}

func retryable(err error) bool {
	return domainagg.CodeOf(err).Retryable()
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
