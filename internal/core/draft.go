package core

import (
	"encoding/json"
	"math"
	"strings"
)

// Draft is an unvalidated creation request. Amount holds whatever the
// client sent: json.Number, float64, an integer type, a string or nil.
type Draft struct {
	ID          string
	Amount      any
	Category    string
	Description string
	Date        string
}

// Validate checks the draft in order: required fields, amount, date.
// On success it returns the record to insert; CreatedAt is left for the
// store to assign.
func (d Draft) Validate() (Expense, error) {
	for _, f := range []struct {
		name  string
		empty bool
	}{
		{"id", blank(d.ID)},
		{"amount", amountAbsent(d.Amount)},
		{"category", blank(d.Category)},
		{"date", blank(d.Date)},
	} {
		if f.empty {
			return Expense{}, newValidationError(ErrMissingField, f.name,
				"missing required fields: id, amount, category, date")
		}
	}

	amount, ok := minorUnits(d.Amount)
	if !ok || amount <= 0 {
		return Expense{}, newValidationError(ErrInvalidAmount, "amount",
			"amount must be a positive integer number of minor units")
	}

	date, err := ParseDate(d.Date)
	if err != nil {
		return Expense{}, newValidationError(ErrInvalidDate, "date",
			"invalid date, use YYYY-MM-DD")
	}

	return Expense{
		ID:          d.ID,
		Amount:      amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        date,
	}, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func amountAbsent(v any) bool {
	switch a := v.(type) {
	case nil:
		return true
	case string:
		return blank(a)
	case json.Number:
		return a == ""
	}
	return false
}

// minorUnits accepts numeric values with an integral value that fits int64.
func minorUnits(v any) (int64, bool) {
	switch a := v.(type) {
	case int:
		return int64(a), true
	case int32:
		return int64(a), true
	case int64:
		return a, true
	case json.Number:
		if i, err := a.Int64(); err == nil {
			return i, true
		}
		f, err := a.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	case float64:
		return integral(a)
	}
	return 0, false
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
