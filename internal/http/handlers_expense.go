package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// handleCreateExpense answers 201 for a new record and 200 with the stored
// record when the id already exists.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draft := ParseDraft(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	e, created, err := s.ledger.CreateExpense(ctx, draft)
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate)
		return
	}

	s.events.LogExpenseStored(ctx, e.ID, e.Amount, e.Category, e.Date.String(), created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	NewJSONResponse().Status(status).Body(NewExpenseResponse(e)).Write(w)
}

// handleListExpenses never rejects a query; unusable filters are ignored.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filters, sort := ParseListQuery(r.URL.Query())

	expenses, err := s.ledger.ListExpenses(r.Context(), filters, sort)
	if err != nil {
		s.writeError(w, r, err, applog.OpList)
		return
	}

	out := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		out[i] = NewExpenseResponse(e)
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.ledger.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "get")
		return
	}
	NewJSONResponse().Body(NewExpenseResponse(e)).Write(w)
}

// writeError maps ledger errors to responses. Storage details stay in the
// log and never reach the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationErrorResponse(verr).Write(w)
	case errors.Is(err, core.ErrNotFound):
		ErrorResponse(http.StatusNotFound, "NotFound", "expense not found").Write(w)
	default:
		s.events.LogError(r.Context(), "Expense request failed", err, applog.ComponentExpense, op)
		ErrorResponse(http.StatusInternalServerError, core.ReasonStorage, "Internal server error").Write(w)
	}
}
