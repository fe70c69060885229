// Package sqlbuild renders a list predicate and sort key as SQL clauses
// shared by the relational stores.
package sqlbuild

import (
	"strconv"
	"strings"

	"ledger/internal/core"
)

// Dialect describes how a database spells bind parameters.
type Dialect struct {
	// Placeholder returns the marker for the n-th parameter, starting at 1.
	Placeholder func(n int) string
	// DateCast is appended to placeholders compared against the date column.
	DateCast string
}

var (
	SQLite   = Dialect{Placeholder: func(int) string { return "?" }}
	Postgres = Dialect{Placeholder: func(n int) string { return "$" + strconv.Itoa(n) }, DateCast: "::date"}
)

// Clauses is the rendered filter and ordering. Where is empty when the
// predicate matches everything.
type Clauses struct {
	Where   string
	Args    []any
	OrderBy string
}

// Build renders p and sort for dialect d. Dates are compared as calendar
// days, so the temporal window becomes an inclusive BETWEEN on the date
// column.
func Build(d Dialect, p core.Predicate, sort core.SortKey) Clauses {
	var (
		conds []string
		args  []any
	)
	param := func(v any, cast string) string {
		args = append(args, v)
		return d.Placeholder(len(args)) + cast
	}

	if p.Category != "" {
		conds = append(conds, "category = "+param(p.Category, ""))
	}
	if first, last, ok := p.Window.Days(); ok {
		if first == last {
			conds = append(conds, "date = "+param(first.String(), d.DateCast))
		} else {
			lo := param(first.String(), d.DateCast)
			hi := param(last.String(), d.DateCast)
			conds = append(conds, "date BETWEEN "+lo+" AND "+hi)
		}
	}

	c := Clauses{Args: args, OrderBy: OrderBy(sort)}
	if len(conds) > 0 {
		c.Where = "WHERE " + strings.Join(conds, " AND ")
	}
	return c
}

// OrderBy renders the ORDER BY clause for sort.
func OrderBy(sort core.SortKey) string {
	terms := sort.OrderTerms()
	parts := make([]string, len(terms))
	for i, t := range terms {
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		parts[i] = t.Column + " " + dir
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
