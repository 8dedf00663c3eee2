package logger

import "context"

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext carries fields that should be attached to every log line
// emitted on behalf of one block cache session.
type LogContext struct {
	TraceID    string
	SpanID     string
	Session    string
	Source     string
	Generation uint64
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// WithTrace returns a copy of lc with trace identifiers set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	clone.TraceID = traceID
	clone.SpanID = spanID
	return &clone
}

// appendContextFields prepends the LogContext fields in ctx to args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 10+len(args))
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.Session != "" {
		out = append(out, KeySession, lc.Session)
	}
	if lc.Source != "" {
		out = append(out, KeySource, lc.Source)
	}
	if lc.Generation != 0 {
		out = append(out, KeyGeneration, lc.Generation)
	}
	return append(out, args...)
}
