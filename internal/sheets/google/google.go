// Package google appends expenses to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
	ports "ledger/internal/sheets"
)

// Header is the first row of the mirror sheet; columns follow this order.
var Header = []any{"ID", "Date", "Category", "Description", "Amount", "Created At"}

// Cells are stored as sent. Parsed input would turn ids like "007" into
// numbers and evaluate descriptions starting with "=".
const valueInputOption = "RAW"

// Ids this process has already mirrored, with the range they landed in.
const (
	mirroredCacheSize = 4096
	mirroredCacheTTL  = time.Hour
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	mirrored      *cache.LRU[string]
}

var _ ports.RowAppender = (*Client)(nil)

// Options selects the spreadsheet and the service account credentials.
// CredentialsJSON takes precedence over CredentialsFile.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		applog.FieldComponent, applog.ComponentSheets,
		"sheet", sheetName)
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		mirrored:      cache.NewLRU[string](mirroredCacheSize, mirroredCacheTTL),
	}, nil
}

func credentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// AppendExpense adds e as a row unless column A already holds its id, and
// returns the range the row occupies.
func (c *Client) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	if c.mirrored != nil {
		if ref, ok := c.mirrored.Get(e.ID); ok {
			return ref, nil
		}
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}
	// Redelivered messages must not duplicate rows.
	if row, ok := rowOf(ids, e.ID); ok {
		slog.DebugContext(ctx, "Expense already mirrored",
			applog.FieldComponent, applog.ComponentSheets,
			applog.FieldExpenseID, e.ID,
			"row", row)
		ref := fmt.Sprintf("%s!A%d:F%d", c.sheetName, row, row)
		c.remember(e.ID, ref)
		return ref, nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(e)}}
	if len(ids) == 0 {
		vr.Values = append([][]any{Header}, vr.Values...)
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:F", vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.remember(e.ID, ref)
	return ref, nil
}

func (c *Client) remember(id, ref string) {
	if c.mirrored != nil {
		c.mirrored.Set(id, ref)
	}
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := c.sheetName + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out, nil
}

// rowOf returns the 1-based sheet row holding id.
func rowOf(ids []string, id string) (int, bool) {
	for i, v := range ids {
		if v == id {
			return i + 1, true
		}
	}
	return 0, false
}

// expenseRow renders e in Header order. Amounts are minor units shown with
// two decimals.
func expenseRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Category,
		e.Description,
		decimal.New(e.Amount, -2).StringFixed(2),
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
