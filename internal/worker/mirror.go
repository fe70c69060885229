// Package worker consumes expense events and mirrors records downstream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// ExpenseGetter reads a stored expense by id.
type ExpenseGetter interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
}

// Mirror copies newly created expenses into a spreadsheet.
type Mirror struct {
	expenses ExpenseGetter
	sheets   sheets.RowAppender
}

func NewMirror(expenses ExpenseGetter, appender sheets.RowAppender) *Mirror {
	return &Mirror{expenses: expenses, sheets: appender}
}

// HandleExpenseCreated appends the announced expense to the sheet. An id the
// store does not know is logged and skipped; other failures are returned so
// the message is retried.
func (m *Mirror) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	logger := slog.Default().With(
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpMirror,
		applog.FieldExpenseID, msg.ID)
	logger.InfoContext(ctx, "Processing expense created message")

	e, err := m.expenses.GetExpense(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		logger.WarnContext(ctx, "Expense not found in storage, skipping mirror")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := m.sheets.AppendExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("append expense to sheets: %w", err)
	}

	logger.InfoContext(ctx, "Mirrored expense to Google Sheets", "ref", ref)
	return nil
}
