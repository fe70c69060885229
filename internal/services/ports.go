package services

import (
	"context"

	"ledger/internal/core"
)

// RecordStore is durable keyed storage for expense records with a
// uniqueness constraint on the record id.
type RecordStore interface {
	// InsertOrGet inserts e, assigning CreatedAt. If a record with the same
	// id already exists it is returned unchanged and created is false. The
	// collision must be resolved by the store's own constraint, atomically.
	InsertOrGet(ctx context.Context, e core.Expense) (stored core.Expense, created bool, err error)

	// Get returns core.ErrNotFound when no record has the id.
	Get(ctx context.Context, id string) (core.Expense, error)

	// Find returns every record matching p, ordered by sort.
	Find(ctx context.Context, p core.Predicate, sort core.SortKey) ([]core.Expense, error)

	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher announces newly created records to downstream consumers.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, id string) error
}
