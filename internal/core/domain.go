package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SuggestedCategories is the set offered by the client form. The ledger
// accepts any non-empty category.
var SuggestedCategories = []string{"Food", "Transport", "Utilities", "Entertainment", "Health", "Other"}

type (
	// Date is a calendar day with no time-of-day, held at UTC midnight.
	Date struct {
		time.Time
	}

	// Expense is a stored ledger entry. Amount is in minor currency units.
	Expense struct {
		ID          string
		Amount      int64
		Category    string
		Description string
		Date        Date
		CreatedAt   time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts exactly YYYY-MM-DD naming a real Gregorian day.
func ParseDate(s string) (Date, error) {
	if !datePattern.MatchString(s) {
		return Date{}, fmt.Errorf("date %q is not in YYYY-MM-DD format", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q is not a calendar day: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// In returns midnight of the same calendar day in loc.
func (d Date) In(loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
