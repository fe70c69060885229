package core

import (
	"cmp"
	"strings"
)

// SortKey selects the ordering of list results.
type SortKey string

const (
	SortDateDesc SortKey = "date_desc"
	SortDateAsc  SortKey = "date_asc"
	// SortNewest orders by insertion time, newest first.
	SortNewest SortKey = ""
)

// Sortable columns, named as in the persisted layout.
const (
	ColumnDate      = "date"
	ColumnCreatedAt = "created_at"
	ColumnID        = "id"
)

// OrderTerm is one key of a multi-key ordering.
type OrderTerm struct {
	Column string
	Desc   bool
}

// ParseSortKey maps any unknown value to SortNewest.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case SortDateDesc, SortDateAsc:
		return k
	}
	return SortNewest
}

// OrderTerms is the total ordering for k, ending with id so that equal
// timestamps still sort the same way on every query.
func (k SortKey) OrderTerms() []OrderTerm {
	switch k {
	case SortDateDesc:
		return []OrderTerm{{ColumnDate, true}, {ColumnCreatedAt, true}, {ColumnID, true}}
	case SortDateAsc:
		return []OrderTerm{{ColumnDate, false}, {ColumnCreatedAt, false}, {ColumnID, false}}
	}
	return []OrderTerm{{ColumnCreatedAt, true}, {ColumnID, true}}
}

// Compare orders two records the way OrderTerms describes.
func (k SortKey) Compare(a, b Expense) int {
	for _, t := range k.OrderTerms() {
		var c int
		switch t.Column {
		case ColumnDate:
			c = a.Date.Compare(b.Date.Time)
		case ColumnCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case ColumnID:
			c = cmp.Compare(a.ID, b.ID)
		}
		if t.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
