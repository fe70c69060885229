// Package sheets defines the spreadsheet mirror ports.
package sheets

import (
	"context"

	"ledger/internal/core"
)

// RowAppender mirrors stored expenses into a spreadsheet.
type RowAppender interface {
	// AppendExpense adds e as a row unless a row with its id is already
	// present, and returns the row's range reference.
	AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
}
