package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"ledger/internal/core"
)

// JSONResponse builds a JSON response with a fluent API.
type JSONResponse struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse starts a 200 response.
func NewJSONResponse() *JSONResponse {
	return &JSONResponse{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

func (b *JSONResponse) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorBody is the error payload. Error holds the machine-readable reason.
type ErrorBody struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func ErrorResponse(statusCode int, reason, message string) *JSONResponse {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: reason, Message: message})
}

// ValidationErrorResponse is a 400 carrying the rejection reason and field.
func ValidationErrorResponse(err *core.ValidationError) *JSONResponse {
	return NewJSONResponse().
		Status(http.StatusBadRequest).
		Body(ErrorBody{Error: err.Reason(), Field: err.Field, Message: err.Message})
}

// ExpenseResponse is the wire form of a stored expense.
type ExpenseResponse struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        core.Date `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewExpenseResponse(e core.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt.UTC(),
	}
}
