package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates log lines of one HTTP request or one background job run.
type TraceData struct {
	TraceID   string
	RequestID string
	JobType   string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// WithJobType tags ctx with a job type, keeping any trace and request ids
// already present.
func WithJobType(ctx context.Context, jobType string) context.Context {
	next := TraceData{JobType: jobType}
	if td := GetTraceData(ctx); td != nil {
		next.TraceID = td.TraceID
		next.RequestID = td.RequestID
	}
	return WithTraceData(ctx, &next)
}

// LogFields returns the non-empty ids as logger key/value pairs.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.JobType != "" {
		out = append(out, "job_type", td.JobType)
	}
	return out
}
