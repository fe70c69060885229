// Package storage is the SQLite-backed record store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage/sqlbuild"

	_ "modernc.org/sqlite"
)

const selectColumns = `SELECT id, amount, category, description, date, created_at FROM expenses`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// DSN adds the pragmas the repository relies on to a database path.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath)
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertOrGet relies on the primary key: a conflicting insert returns no
// row, and the record already stored under the id is read back instead.
func (r *SQLiteRepository) InsertOrGet(ctx context.Context, e core.Expense) (core.Expense, bool, error) {
	createdAt := r.now().UTC().UnixMicro()

	var stamped int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO expenses (id, amount, category, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING created_at`,
		e.ID, e.Amount, e.Category, e.Description, e.Date.String(), createdAt,
	).Scan(&stamped)

	switch {
	case err == nil:
		e.CreatedAt = time.UnixMicro(stamped).UTC()
		slog.DebugContext(ctx, "Expense saved to SQLite", "expense_id", e.ID, "amount", e.Amount)
		return e, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := r.Get(ctx, e.ID)
		if err != nil {
			return core.Expense{}, false, fmt.Errorf("read existing expense %s: %w", e.ID, err)
		}
		return existing, false, nil
	default:
		return core.Expense{}, false, fmt.Errorf("insert expense: %w", err)
	}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) Find(ctx context.Context, p core.Predicate, sort core.SortKey) ([]core.Expense, error) {
	c := sqlbuild.Build(sqlbuild.SQLite, p, sort)
	rows, err := r.db.QueryContext(ctx, selectColumns+" "+c.Where+" "+c.OrderBy, c.Args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e         core.Expense
		date      string
		createdAt int64
	)
	if err := s.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &date, &createdAt); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s has malformed date %q: %w", e.ID, date, err)
	}
	e.Date = d
	e.CreatedAt = time.UnixMicro(createdAt).UTC()
	return e, nil
}
