// Package postgres is the PostgreSQL-backed record store.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ledger/internal/core"
	"ledger/internal/storage/sqlbuild"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const selectColumns = `SELECT id, amount, category, description, date, created_at FROM expenses`

type Repository struct {
	pool *pgxpool.Pool
}

// New runs migrations against dsn and opens a connection pool.
func New(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("PostgreSQL repository ready")
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the embedded schema through a database/sql handle.
func RunMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) InsertOrGet(ctx context.Context, e core.Expense) (core.Expense, bool, error) {
	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expenses (id, amount, category, description, date)
		 VALUES ($1, $2, $3, $4, $5::date)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING created_at`,
		e.ID, e.Amount, e.Category, e.Description, e.Date.String(),
	).Scan(&createdAt)

	switch {
	case err == nil:
		e.CreatedAt = createdAt.UTC()
		return e, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, err := r.Get(ctx, e.ID)
		if err != nil {
			return core.Expense{}, false, fmt.Errorf("read existing expense %s: %w", e.ID, err)
		}
		return existing, false, nil
	default:
		return core.Expense{}, false, fmt.Errorf("insert expense: %w", err)
	}
}

func (r *Repository) Get(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

func (r *Repository) Find(ctx context.Context, p core.Predicate, sort core.SortKey) ([]core.Expense, error) {
	c := sqlbuild.Build(sqlbuild.Postgres, p, sort)
	rows, err := r.pool.Query(ctx, selectColumns+" "+c.Where+" "+c.OrderBy, c.Args...)
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
	return out, rows.Err()
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e    core.Expense
		date time.Time
	)
	if err := row.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &date, &e.CreatedAt); err != nil {
		return core.Expense{}, err
	}
	e.Date = core.NewDate(date.Date())
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
