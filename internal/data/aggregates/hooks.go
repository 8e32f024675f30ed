package aggregates

import (
	"strings"
	"time"

	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
)

// Hooks receives one signal per ledger write attempt. Operation names follow
// "<ledger>.<action>", e.g. "streak.credit" or "experience.reverse".
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

// NewObservabilityHooks reports ledger writes to the progression metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

type metricsHooks struct {
	m *observability.Metrics
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(OperationLabel(name), strings.TrimSpace(status), dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(OperationLabel(name)) }

func (h metricsHooks) IncRetry(name string) { h.m.IncAggregateRetry(OperationLabel(name)) }

// OperationLabel normalizes an operation name for use as a metric label. Names
// that do not follow "<ledger>.<action>" collapse to "other.<name>" so label
// cardinality stays bounded by the ledgers that exist.
func OperationLabel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "other.unknown"
	}
	ledger, action, ok := strings.Cut(name, ".")
	if !ok || ledger == "" || action == "" {
		return "other." + strings.Trim(name, ".")
	}
	return ledger + "." + action
}
