package testutil

import (
	"sync"
	"time"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
)

// Op is one observed ledger write.
type Op struct {
	Name     string
	Status   string
	Duration time.Duration
}

// Hooks records writer signals so tests can assert on ledger write outcomes.
type Hooks struct {
	mu        sync.Mutex
	ops       []Op
	conflicts map[string]int
	retries   map[string]int
}

var _ aggregates.Hooks = (*Hooks)(nil)

func (h *Hooks) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, Op{Name: name, Status: status, Duration: dur})
}

func (h *Hooks) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conflicts == nil {
		h.conflicts = map[string]int{}
	}
	h.conflicts[name]++
}

func (h *Hooks) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retries == nil {
		h.retries = map[string]int{}
	}
	h.retries[name]++
}

func (h *Hooks) Ops() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Op(nil), h.ops...)
}

// Statuses lists the status of every observed write in order.
func (h *Hooks) Statuses() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.ops))
	for _, op := range h.ops {
		out = append(out, op.Status)
	}
	return out
}

func (h *Hooks) Conflicts(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conflicts[name]
}

func (h *Hooks) Retries(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retries[name]
}
