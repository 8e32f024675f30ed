package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Result is the summary a handler reports for one run. It ends up in logs and
// in Temporal activity results, so values must be JSON friendly.
type Result map[string]any

type Handler interface {
	Type() string
	Run(ctx context.Context) (Result, error)
}

var (
	ErrNilHandler       = errors.New("jobs: nil handler")
	ErrUnnamedHandler   = errors.New("jobs: handler has no job type")
	ErrDuplicateHandler = errors.New("jobs: job type already registered")
)

// HandlerFunc adapts a function to Handler under a fixed job type.
func HandlerFunc(jobType string, run func(ctx context.Context) (Result, error)) Handler {
	return funcHandler{jobType: jobType, run: run}
}

type funcHandler struct {
	jobType string
	run     func(ctx context.Context) (Result, error)
}

func (h funcHandler) Type() string                            { return h.jobType }
func (h funcHandler) Run(ctx context.Context) (Result, error) { return h.run(ctx) }

// Registry maps job types to handlers. It is safe for concurrent lookups
// while the scheduler and Temporal activities run.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register adds every handler or none: the first invalid or duplicate entry
// aborts the whole call.
func (r *Registry) Register(hs ...Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]Handler, len(hs))
	for _, h := range hs {
		if h == nil {
			return ErrNilHandler
		}
		t := strings.TrimSpace(h.Type())
		if t == "" {
			return ErrUnnamedHandler
		}
		_, dupExisting := r.handlers[t]
		_, dupStaged := staged[t]
		if dupExisting || dupStaged {
			return fmt.Errorf("%w: %s", ErrDuplicateHandler, t)
		}
		staged[t] = h
	}
	for t, h := range staged {
		r.handlers[t] = h
	}
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.handlers[jobType]
	r.mu.RUnlock()
	return h, ok
}

// Types lists registered job types in stable order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
