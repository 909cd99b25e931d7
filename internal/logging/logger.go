// Package logging is the structured, context-aware logger shared by the watch
// and the phone. Attributes can travel with a context (see ContextWith) so a
// note id or request id tagged once shows up in every line logged under it.
package logging

import "context"

// Logger takes key-value pairs after the message:
//
//	log.Info(ctx, "note enqueued", "note_id", id, "status", status)
type Logger interface {
	// Debug is for chatty diagnostics such as upload progress.
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for unusual but recoverable conditions: a retry, a dropped
	// transfer, an unreachable peer.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

type ctxAttrsKey struct{}

// ContextWith returns ctx carrying extra key-value pairs for every line logged
// with it. Pairs accumulate across nested calls.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev := contextAttrs(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

func contextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(ctxAttrsKey{}).([]any)
	return v
}
