// Package ctxutil carries request-scoped correlation values through a
// context.Context: which Job a call belongs to, and which row within it,
// so log lines and error messages can attribute without threading extra
// parameters through every call.
package ctxutil

import "context"

type ctxKey string

const (
	jobIDKey    ctxKey = "job_id"
	rowIndexKey ctxKey = "row_index"
)

// WithJobID stores the Job ID in the context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// JobIDFromCtx extracts the Job ID from the context.
// Returns an empty string if absent.
func JobIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey).(string)
	return id
}

// WithRowIndex stores the zero-based input row index in the context.
func WithRowIndex(ctx context.Context, rowIndex int64) context.Context {
	return context.WithValue(ctx, rowIndexKey, rowIndex)
}

// RowIndexFromCtx extracts the row index from the context.
// Returns (0, false) if absent.
func RowIndexFromCtx(ctx context.Context) (int64, bool) {
	idx, ok := ctx.Value(rowIndexKey).(int64)
	return idx, ok
}
