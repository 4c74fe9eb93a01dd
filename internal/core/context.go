package core

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxKeyRunID contextKey = "import_run_id"

// ContextWithRunID tags ctx with the batch run ID so log lines from one batch
// can be correlated.
func ContextWithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, id)
}

// RunIDFromContext returns the batch run ID, or uuid.Nil outside a batch.
func RunIDFromContext(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(ctxKeyRunID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}
