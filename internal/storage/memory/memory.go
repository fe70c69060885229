// Package memory is a process-local record store used by tests and the
// memory data backend.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"ledger/internal/core"
)

type Store struct {
	mu    sync.RWMutex
	items map[string]core.Expense
	now   func() time.Time
	last  time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock uses now to stamp CreatedAt.
func NewWithClock(now func() time.Time) *Store {
	return &Store{items: make(map[string]core.Expense), now: now}
}

// InsertOrGet stores e under its id unless the id is taken. The map check
// and insert happen under one lock, which is this store's uniqueness
// constraint.
func (s *Store) InsertOrGet(_ context.Context, e core.Expense) (core.Expense, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[e.ID]; ok {
		return existing, false, nil
	}

	created := s.now().UTC()
	if created.Before(s.last) {
		created = s.last
	}
	s.last = created

	e.CreatedAt = created
	s.items[e.ID] = e
	return e, true, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) Find(_ context.Context, p core.Predicate, sort core.SortKey) ([]core.Expense, error) {
	s.mu.RLock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if p.Match(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, sort.Compare)
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
