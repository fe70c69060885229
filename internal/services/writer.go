package services

import (
	"context"

	"ledger/internal/core"
)

// IdempotentWriter inserts records keyed by their client-supplied id. A
// repeated id yields the first stored record instead of an error.
type IdempotentWriter struct {
	store RecordStore
}

func NewIdempotentWriter(store RecordStore) *IdempotentWriter {
	return &IdempotentWriter{store: store}
}

// Create returns the stored record and whether this call inserted it. Any
// failure is a core.StorageError; it is not retried here.
func (w *IdempotentWriter) Create(ctx context.Context, e core.Expense) (core.Expense, bool, error) {
	stored, created, err := w.store.InsertOrGet(ctx, e)
	if err != nil {
		return core.Expense{}, false, core.NewStorageError("insert", err)
	}
	return stored, created, nil
}
