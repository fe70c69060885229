package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/core"
)

// Ledger is the API façade: validation and idempotent creation on the write
// path, filter and sort resolution on the read path.
type Ledger struct {
	store     RecordStore
	writer    *IdempotentWriter
	publisher EventPublisher
}

// NewLedger wires the façade over store. publisher may be nil.
func NewLedger(store RecordStore, publisher EventPublisher) *Ledger {
	return &Ledger{
		store:     store,
		writer:    NewIdempotentWriter(store),
		publisher: publisher,
	}
}

// CreateExpense validates the draft and stores it. created is false when the
// id was already taken, in which case the original record is returned.
func (l *Ledger) CreateExpense(ctx context.Context, d core.Draft) (core.Expense, bool, error) {
	e, err := d.Validate()
	if err != nil {
		return core.Expense{}, false, err
	}

	stored, created, err := l.writer.Create(ctx, e)
	if err != nil {
		return core.Expense{}, false, err
	}

	if created {
		l.publishCreated(ctx, stored.ID)
	} else {
		slog.DebugContext(ctx, "Duplicate expense id, returning stored record", "expense_id", stored.ID)
	}
	return stored, created, nil
}

// ListExpenses returns the records matching f in the order given by sort.
func (l *Ledger) ListExpenses(ctx context.Context, f core.Filters, sort core.SortKey) ([]core.Expense, error) {
	p := core.ResolveFilters(f)
	out, err := l.store.Find(ctx, p, sort)
	if err != nil {
		return nil, core.NewStorageError("find", err)
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

// GetExpense looks a record up by id.
func (l *Ledger) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := l.store.Get(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Expense{}, err
	}
	if err != nil {
		return core.Expense{}, core.NewStorageError("get", err)
	}
	return e, nil
}

// Ping reports whether the store is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.store.Ping(ctx); err != nil {
		return core.NewStorageError("ping", err)
	}
	return nil
}

func (l *Ledger) publishCreated(ctx context.Context, id string) {
	if l.publisher == nil {
		return
	}
	// The record is already durable; a lost event only delays the mirror.
	if err := l.publisher.PublishExpenseCreated(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense created message", "expense_id", id, "error", err)
	}
}

// Close closes the store and, when it supports it, the publisher.
func (l *Ledger) Close() error {
	var errs []error

	if l.store != nil {
		if err := l.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := l.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	return errors.Join(errs...)
}
