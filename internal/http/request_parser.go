package http

import (
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

const maxBodyBytes = 1 << 20

// ParseDraft decodes a JSON object into a draft. A body that is not a JSON
// object yields an empty draft, which fails validation as missing fields.
// Field values are passed through untouched so validation sees exactly what
// the client sent; the id in particular is an opaque key.
func ParseDraft(body io.Reader) core.Draft {
	var fields map[string]any
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return core.Draft{}
	}

	return core.Draft{
		ID:          stringField(fields["id"]),
		Amount:      fields["amount"],
		Category:    stringField(fields["category"]),
		Description: stringField(fields["description"]),
		Date:        stringField(fields["date"]),
	}
}

// stringField accepts strings and bare numbers; anything else reads as empty.
func stringField(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	}
	return ""
}

// ParseListQuery reads category, specific_date, year, month and sort.
// Values that do not parse are treated as absent.
func ParseListQuery(q url.Values) (core.Filters, core.SortKey) {
	var f core.Filters

	f.Category = strings.TrimSpace(q.Get("category"))

	if v := strings.TrimSpace(q.Get("specific_date")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.SpecificDate = d
		}
	}
	if y, ok := intParam(q.Get("year"), 1, 9999); ok {
		f.Year = y
	}
	if m, ok := intParam(q.Get("month"), 1, 12); ok {
		f.Month = time.Month(m)
	}

	return f, core.ParseSortKey(q.Get("sort"))
}

func intParam(s string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
