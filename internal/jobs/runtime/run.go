package runtime

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/ctxutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusPanicked  = "panicked"
)

// PanicError is returned by Execute when a handler panics.
type PanicError struct{ Val any }

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }

// Execute runs one handler invocation inside a span, converts panics into
// errors and reports the outcome to metrics. Both the in-process scheduler and
// the Temporal activity go through here.
func Execute(ctx context.Context, h Handler, log *logger.Logger, metrics *observability.Metrics) (res Result, err error) {
	if h == nil {
		return nil, fmt.Errorf("nil handler")
	}
	if log == nil {
		log = logger.Nop()
	}
	jobType := h.Type()
	ctx = ctxutil.WithJobType(ctx, jobType)
	ctx, span := observability.StartSpan(ctx, "job."+jobType, attribute.String("job.type", jobType))
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctxutil.GetTraceData(ctx).TraceID = sc.TraceID().String()
	}
	log = log.With(ctxutil.GetTraceData(ctx).LogFields()...)
	start := time.Now()
	status := StatusSucceeded

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Val: r}
			res = nil
			status = StatusPanicked
			log.Error("Job handler panic", "panic", r)
		}
		dur := time.Since(start)
		observability.EndSpan(span, err)
		metrics.ObserveJob(jobType, status, dur)
		if err != nil {
			log.Warn("Job run failed", "status", status, "duration_ms", dur.Milliseconds(), "error", err)
			return
		}
		log.Debug("Job run finished", "duration_ms", dur.Milliseconds(), "result", res)
	}()

	res, err = h.Run(ctx)
	if err != nil {
		status = StatusFailed
	}
	return res, err
}
