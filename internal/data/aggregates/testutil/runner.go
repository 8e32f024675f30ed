package testutil

import (
	"context"
	"sync"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

// ScriptedRunner plays back one outcome per transaction attempt. Attempt i
// fails to begin with BeginErrs[i] when it is non-nil; attempts past the end of
// the script begin normally. CommitErr fails every commit after a clean body.
// When Next is set, clean attempts run the body inside it so tests can mix
// injected failures with a real sqlite transaction.
type ScriptedRunner struct {
	BeginErrs []error
	CommitErr error
	Next      aggregates.TxRunner

	mu        sync.Mutex
	attempts  int
	commits   int
	rollbacks int
}

var _ aggregates.TxRunner = (*ScriptedRunner)(nil)

func (r *ScriptedRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	i := r.attempts
	r.attempts++
	var beginErr error
	if i < len(r.BeginErrs) {
		beginErr = r.BeginErrs[i]
	}
	r.mu.Unlock()

	if beginErr != nil {
		return beginErr
	}

	body := func(dbc dbctx.Context) error {
		if fn == nil {
			return nil
		}
		if err := fn(dbc); err != nil {
			return err
		}
		return r.CommitErr
	}

	var err error
	if r.Next != nil {
		err = r.Next.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.rollbacks++
	} else {
		r.commits++
	}
	return err
}

func (r *ScriptedRunner) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *ScriptedRunner) Commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

func (r *ScriptedRunner) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}
