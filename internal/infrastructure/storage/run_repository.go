package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const runsTable = "cycle_runs"

var runColumns = []string{
	"run_id", "started_at", "finished_at", "accounts_total", "accounts_failed",
	"posts_collected", "items_classified", "categories", "delivered",
}

const createRunsTable = `CREATE TABLE IF NOT EXISTS cycle_runs (
    run_id           TEXT PRIMARY KEY,
    started_at       BIGINT NOT NULL,
    finished_at      BIGINT NOT NULL,
    accounts_total   INTEGER NOT NULL DEFAULT 0,
    accounts_failed  INTEGER NOT NULL DEFAULT 0,
    posts_collected  INTEGER NOT NULL DEFAULT 0,
    items_classified INTEGER NOT NULL DEFAULT 0,
    categories       TEXT NOT NULL DEFAULT '{}',
    delivered        INTEGER NOT NULL DEFAULT 0
)`

// RunRepository persists cycle reports into Postgres or SQLite.
type RunRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunRepository = (*RunRepository)(nil)

// Open picks the driver from the DSN: postgres:// and postgresql:// URLs use
// lib/pq, anything else is a SQLite path.
func Open(ctx context.Context, dsn string) (*RunRepository, error) {
	var placeholder sq.PlaceholderFormat = sq.Question
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, placeholder = "postgres", sq.Dollar
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	repo := NewRunRepository(db, placeholder)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewRunRepository wires a sql.DB implementation.
func NewRunRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *RunRepository {
	return &RunRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// EnsureSchema creates the audit table when missing.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create %s: %w", runsTable, err)
	}
	return nil
}

// Close releases the underlying pool.
func (r *RunRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveRun inserts the cycle report.
func (r *RunRepository) SaveRun(ctx context.Context, report domain.CycleReport) error {
	if r.db == nil {
		return nil
	}

	categories, err := json.Marshal(report.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if report.Categories == nil {
		categories = []byte("{}")
	}

	delivered := 0
	if report.Delivered {
		delivered = 1
	}

	query, args, err := r.builder.Insert(runsTable).
		Columns(runColumns...).
		Values(
			report.RunID,
			report.StartedAt.Unix(),
			report.FinishedAt.Unix(),
			report.AccountsTotal,
			report.AccountsFailed,
			report.PostsCollected,
			report.ItemsClassified,
			string(categories),
			delivered,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", report.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit reports, newest first.
func (r *RunRepository) RecentRuns(ctx context.Context, limit int) ([]domain.CycleReport, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query, args, err := r.builder.Select(runColumns...).
		From(runsTable).
		OrderBy("started_at DESC", "run_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var reports []domain.CycleReport
	for rows.Next() {
		var (
			report            domain.CycleReport
			started, finished int64
			categories        string
			delivered         int
		)
		if err := rows.Scan(
			&report.RunID, &started, &finished,
			&report.AccountsTotal, &report.AccountsFailed,
			&report.PostsCollected, &report.ItemsClassified,
			&categories, &delivered,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		report.StartedAt = time.Unix(started, 0).UTC()
		report.FinishedAt = time.Unix(finished, 0).UTC()
		report.Delivered = delivered != 0
		if err := json.Unmarshal([]byte(categories), &report.Categories); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode categories of %s: %w", report.RunID, err)
		}
		reports = append(reports, report)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return reports, nil
}
