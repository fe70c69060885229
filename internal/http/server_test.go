package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
)

type failingStore struct{}

var errDiskFull = errors.New("disk full: /var/lib/ledger")

func (failingStore) InsertOrGet(context.Context, core.Expense) (core.Expense, bool, error) {
	return core.Expense{}, false, errDiskFull
}
func (failingStore) Get(context.Context, string) (core.Expense, error) {
	return core.Expense{}, errDiskFull
}
func (failingStore) Find(context.Context, core.Predicate, core.SortKey) ([]core.Expense, error) {
	return nil, errDiskFull
}
func (failingStore) Ping(context.Context) error { return errDiskFull }
func (failingStore) Close() error               { return nil }

func newTestServer(t *testing.T, store services.RecordStore) *Server {
	t.Helper()
	srv := NewServer(":0", services.NewLedger(store, nil), Options{
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		RateLimitPerMinute: 1000,
		Logger:             applog.New(applog.Config{Output: io.Discard}),
	})
	t.Cleanup(srv.limiter.Stop)
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend is running", rec.Body.String())

	for _, path := range []string{"/healthz", "/readyz"} {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, path, "").Code, path)
	}

	cats := decode[[]string](t, do(t, srv, http.MethodGet, "/categories", ""))
	assert.Equal(t, core.SuggestedCategories, cats)
}

func TestReadyReportsStorageOutage(t *testing.T) {
	srv := newTestServer(t, failingStore{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodGet, "/readyz", "").Code)
}

func TestCreateExpense(t *testing.T) {
	srv := newTestServer(t, memory.New())
	body := `{"id":"X","amount":500,"category":"Food","description":"lunch","date":"2024-01-01"}`

	first := do(t, srv, http.MethodPost, "/expenses", body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	created := decode[map[string]any](t, first)
	assert.Equal(t, "X", created["id"])
	assert.Equal(t, float64(500), created["amount"])
	assert.Equal(t, "2024-01-01", created["date"])
	assert.NotEmpty(t, created["created_at"])

	// A retried request returns the same record with 200.
	again := do(t, srv, http.MethodPost, "/expenses", body)
	require.Equal(t, http.StatusOK, again.Code)
	assert.JSONEq(t, first.Body.String(), again.Body.String())

	// So does a retry carrying a different payload.
	changed := do(t, srv, http.MethodPost, "/expenses", `{"id":"X","amount":900,"category":"Rent","date":"2025-05-05"}`)
	require.Equal(t, http.StatusOK, changed.Code)
	assert.JSONEq(t, first.Body.String(), changed.Body.String())

	list := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/expenses", ""))
	assert.Len(t, list, 1)
}

func TestCreateExpense_FieldsAreNotRewritten(t *testing.T) {
	srv := newTestServer(t, memory.New())

	first := do(t, srv, http.MethodPost, "/expenses", `{"id":"X","amount":500,"category":"Food","date":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	// A padded id is a different idempotency key.
	padded := do(t, srv, http.MethodPost, "/expenses",
		`{"id":" X ","amount":900,"category":"Rent","description":" a\u0007b ","date":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, padded.Code, padded.Body.String())
	got := decode[ExpenseResponse](t, padded)
	assert.Equal(t, " X ", got.ID)
	assert.Equal(t, int64(900), got.Amount)
	assert.Equal(t, " a\u0007b ", got.Description)

	stored := do(t, srv, http.MethodGet, "/expenses/%20X%20", "")
	require.Equal(t, http.StatusOK, stored.Code)
	assert.Equal(t, " X ", decode[ExpenseResponse](t, stored).ID)
	assert.Len(t, decode[[]ExpenseResponse](t, do(t, srv, http.MethodGet, "/expenses", "")), 2)

	rec := do(t, srv, http.MethodPost, "/expenses", `{"id":"Y","amount":5,"category":"Food","date":" 2024-01-01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.ReasonInvalidDate, decode[ErrorBody](t, rec).Error)

	rec = do(t, srv, http.MethodPost, "/expenses", `{"id":"   ","amount":5,"category":"Food","date":"2024-01-01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.ReasonMissingField, decode[ErrorBody](t, rec).Error)
}

func TestCreateExpense_Validation(t *testing.T) {
	srv := newTestServer(t, memory.New())

	tests := []struct {
		name   string
		body   string
		reason string
		field  string
	}{
		{"empty object", `{}`, core.ReasonMissingField, "id"},
		{"not json", `amount=5`, core.ReasonMissingField, "id"},
		{"array body", `[1,2]`, core.ReasonMissingField, "id"},
		{"null amount", `{"id":"a","amount":null,"category":"Food","date":"2024-01-01"}`, core.ReasonMissingField, "amount"},
		{"blank category", `{"id":"a","amount":5,"category":"  ","date":"2024-01-01"}`, core.ReasonMissingField, "category"},
		{"zero amount", `{"id":"a","amount":0,"category":"Food","date":"2024-01-01"}`, core.ReasonInvalidAmount, "amount"},
		{"negative amount", `{"id":"a","amount":-5,"category":"Food","date":"2024-01-01"}`, core.ReasonInvalidAmount, "amount"},
		{"fractional amount", `{"id":"a","amount":12.5,"category":"Food","date":"2024-01-01"}`, core.ReasonInvalidAmount, "amount"},
		{"string amount", `{"id":"a","amount":"500","category":"Food","date":"2024-01-01"}`, core.ReasonInvalidAmount, "amount"},
		{"bad date format", `{"id":"a","amount":5,"category":"Food","date":"01/02/2024"}`, core.ReasonInvalidDate, "date"},
		{"impossible date", `{"id":"a","amount":5,"category":"Food","date":"2023-02-29"}`, core.ReasonInvalidDate, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/expenses", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[ErrorBody](t, rec)
			assert.Equal(t, tt.reason, body.Error)
			assert.Equal(t, tt.field, body.Field)
			assert.NotEmpty(t, body.Message)
		})
	}

	list := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/expenses", ""))
	assert.Empty(t, list, "rejected requests store nothing")
}

func TestStorageFailureIsOpaque(t *testing.T) {
	srv := newTestServer(t, failingStore{})

	for _, rec := range []*httptest.ResponseRecorder{
		do(t, srv, http.MethodPost, "/expenses", `{"id":"a","amount":5,"category":"Food","date":"2024-01-01"}`),
		do(t, srv, http.MethodGet, "/expenses", ""),
	} {
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode[ErrorBody](t, rec)
		assert.Equal(t, core.ReasonStorage, body.Error)
		assert.NotContains(t, rec.Body.String(), "disk full")
	}
}

func TestListExpenses(t *testing.T) {
	srv := newTestServer(t, memory.New())
	for _, body := range []string{
		`{"id":"jan","amount":100,"category":"Food","date":"2024-01-31"}`,
		`{"id":"leap","amount":200,"category":"Food","date":"2024-02-29"}`,
		`{"id":"rent","amount":300,"category":"Rent","date":"2024-02-01"}`,
		`{"id":"old","amount":400,"category":"Food","date":"2023-12-31"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/expenses", body).Code)
	}

	ids := func(target string) []string {
		rec := do(t, srv, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var out []string
		for _, e := range decode[[]ExpenseResponse](t, rec) {
			out = append(out, e.ID)
		}
		return out
	}

	assert.Equal(t, []string{"old", "rent", "leap", "jan"}, ids("/expenses"))
	assert.Equal(t, []string{"old", "jan", "rent", "leap"}, ids("/expenses?sort=date_asc"))
	assert.Equal(t, []string{"leap", "rent", "jan", "old"}, ids("/expenses?sort=date_desc"))
	assert.Equal(t, []string{"rent", "leap"}, ids("/expenses?year=2024&month=2"))
	assert.Equal(t, []string{"leap"}, ids("/expenses?year=2024&month=2&category=Food"))
	assert.Equal(t, []string{"old", "leap", "jan"}, ids("/expenses?category=Food"))
	assert.Equal(t, []string{"rent", "leap", "jan"}, ids("/expenses?category=All&year=2024"))
	assert.Equal(t, []string{"jan"}, ids("/expenses?specific_date=2024-01-31&year=2023"))
	assert.Equal(t, []string{"old"}, ids("/expenses?year=2023&month=All"))

	// Malformed filters are ignored.
	assert.Len(t, ids("/expenses?year=abc&month=13&specific_date=2024-02-30&sort=bogus"), 4)

	rec := do(t, srv, http.MethodGet, "/expenses?category=Travel", "")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetExpense(t *testing.T) {
	srv := newTestServer(t, memory.New())
	do(t, srv, http.MethodPost, "/expenses", `{"id":"a b","amount":5,"category":"Food","date":"2024-01-01"}`)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/expenses/a%20b", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/expenses/missing", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, memory.New())

	req := httptest.NewRequest(http.MethodOptions, "/expenses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(":0", services.NewLedger(memory.New(), nil), Options{
		RateLimitPerMinute: 2,
		Logger:             applog.New(applog.Config{Output: io.Discard}),
	})
	defer srv.limiter.Stop()

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/expenses", "").Code)
	}
	rec := do(t, srv, http.MethodGet, "/expenses", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Health checks are not limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
}

func TestMetricsCountRequests(t *testing.T) {
	srv := newTestServer(t, memory.New())
	do(t, srv, http.MethodGet, "/healthz", "")
	do(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, int64(2), srv.Metrics().TotalRequests)
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t, memory.New())
	big := bytes.Repeat([]byte("x"), maxBodyBytes+10)
	body := `{"id":"a","amount":5,"category":"Food","date":"2024-01-01","description":"` + string(big) + `"}`
	rec := do(t, srv, http.MethodPost, "/expenses", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
