package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func record(id, category string, date core.Date) core.Expense {
	return core.Expense{ID: id, Amount: 500, Category: category, Date: date}
}

func TestStoreInsertOrGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, created, err := s.InsertOrGet(ctx, record("X", "Food", core.NewDate(2024, 1, 1)))
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.CreatedAt.IsZero())

	retry := record("X", "Travel", core.NewDate(2025, 5, 5))
	again, created, err := s.InsertOrGet(ctx, retry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, again)
	assert.Len(t, s.items, 1)
}

func TestStoreInsertOrGet_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := New()

	const n = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		results = make([]core.Expense, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := record("same", fmt.Sprintf("cat-%d", i), core.NewDate(2024, 1, 1))
			got, created, err := s.InsertOrGet(ctx, e)
			assert.NoError(t, err)
			results[i] = got
			if created {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Len(t, s.items, 1)
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestStoreCreatedAtNonDecreasing(t *testing.T) {
	ctx := context.Background()
	clock := []time.Time{
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), // clock stepped back
	}
	i := 0
	s := NewWithClock(func() time.Time { t := clock[i]; i++; return t })

	a, _, _ := s.InsertOrGet(ctx, record("a", "Food", core.NewDate(2024, 1, 1)))
	b, _, _ := s.InsertOrGet(ctx, record("b", "Food", core.NewDate(2024, 1, 1)))
	assert.False(t, b.CreatedAt.Before(a.CreatedAt))
}

func TestStoreGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, _, err = s.InsertOrGet(ctx, record("a", "Food", core.NewDate(2024, 1, 1)))
	require.NoError(t, err)
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestStoreFind(t *testing.T) {
	ctx := context.Background()
	tick := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewWithClock(func() time.Time { tick = tick.Add(time.Second); return tick })

	for _, e := range []core.Expense{
		record("jan", "Food", core.NewDate(2023, 1, 1)),
		record("leap", "Food", core.NewDate(2024, 2, 29)),
		record("dec", "Rent", core.NewDate(2023, 12, 31)),
		record("mar", "Food", core.NewDate(2024, 3, 1)),
	} {
		_, _, err := s.InsertOrGet(ctx, e)
		require.NoError(t, err)
	}

	ids := func(es []core.Expense) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}

	all, err := s.Find(ctx, core.ResolveFilters(core.Filters{}), core.SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"mar", "dec", "leap", "jan"}, ids(all))

	y2023, err := s.Find(ctx, core.ResolveFilters(core.Filters{Year: 2023}), core.SortDateAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"jan", "dec"}, ids(y2023))

	feb, err := s.Find(ctx, core.ResolveFilters(core.Filters{Year: 2024, Month: time.February, Category: "Food"}), core.SortDateDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"leap"}, ids(feb))

	none, err := s.Find(ctx, core.ResolveFilters(core.Filters{Category: "Travel"}), core.SortNewest)
	require.NoError(t, err)
	assert.Empty(t, none)
}
