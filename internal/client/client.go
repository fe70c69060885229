// Package client is a Go client for the ledger HTTP API. Requests that fail
// with a transport error or a 5xx are retried with exponential backoff; the
// server's idempotent create makes retrying a POST safe.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 10 * time.Second
)

// Config configures a Client. MaxRetries of zero means DefaultMaxRetries;
// a negative value disables retries.
type Config struct {
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each retry with the retry number (from 1),
	// the delay about to be slept and the error that caused it.
	OnRetry func(retry int, delay time.Duration, err error)
}

type Client struct {
	baseURL    string
	maxRetries int
	hc         *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	onRetry    func(retry int, delay time.Duration, err error)
}

// Expense is a record as returned by the API.
type Expense struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        core.Date `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewExpense is a creation request. ID is the idempotency key.
type NewExpense struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

// ListQuery holds list filters; zero values are omitted.
type ListQuery struct {
	Category     string
	SpecificDate string
	Year         int
	Month        int
	Sort         string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.SpecificDate != "" {
		v.Set("specific_date", q.SpecificDate)
	}
	if q.Year != 0 {
		v.Set("year", strconv.Itoa(q.Year))
	}
	if q.Month != 0 {
		v.Set("month", strconv.Itoa(q.Month))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Reason     string
	Field      string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("ledger api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ledger api: status %d: %s: %s", e.StatusCode, e.Reason, e.Message)
}

// Temporary reports whether the request may succeed if retried.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:    base,
		maxRetries: cfg.MaxRetries,
		hc:         cfg.HTTPClient,
		sleep:      cfg.Sleep,
		onRetry:    cfg.OnRetry,
	}
	switch {
	case c.maxRetries == 0:
		c.maxRetries = DefaultMaxRetries
	case c.maxRetries < 0:
		c.maxRetries = 0
	}
	if c.hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.hc = &http.Client{Timeout: timeout}
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	return c, nil
}

// Backoff is the delay before retry n (n >= 1): 2^n seconds.
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(1<<n) * time.Second
}

// CreateExpense submits e. created is false when the server already held a
// record with the same id; the returned record is then the stored one.
func (c *Client) CreateExpense(ctx context.Context, e NewExpense) (Expense, bool, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return Expense{}, false, fmt.Errorf("encode expense: %w", err)
	}

	var out Expense
	status, err := c.do(ctx, http.MethodPost, "/expenses", body, &out)
	if err != nil {
		return Expense{}, false, err
	}
	return out, status == http.StatusCreated, nil
}

func (c *Client) ListExpenses(ctx context.Context, q ListQuery) ([]Expense, error) {
	path := "/expenses"
	if v := q.values(); len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out []Expense
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Total sums the amounts of expenses in minor units.
func Total(expenses []Expense) int64 {
	var total int64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	for retry := 0; ; retry++ {
		status, err := c.attempt(ctx, method, path, body, out)
		if err == nil {
			return status, nil
		}
		if !retryable(ctx, err) || retry >= c.maxRetries {
			if retry > 0 {
				return status, fmt.Errorf("%s %s failed after %d attempts: %w", method, path, retry+1, err)
			}
			return status, err
		}

		delay := Backoff(retry + 1)
		if c.onRetry != nil {
			c.onRetry(retry+1, delay, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return status, err
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, &permanentError{op: "build request", err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Field   string `json:"field"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Reason = payload.Error
			apiErr.Field = payload.Field
			apiErr.Message = payload.Message
		}
		return resp.StatusCode, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, &permanentError{op: "decode response", err: err}
		}
	}
	return resp.StatusCode, nil
}

// permanentError fails the same way on every attempt.
type permanentError struct {
	op  string
	err error
}

func (e *permanentError) Error() string { return e.op + ": " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// retryable is true for 5xx answers and transport failures, unless the
// caller's context is done.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var pErr *permanentError
	return !errors.As(err, &pErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
