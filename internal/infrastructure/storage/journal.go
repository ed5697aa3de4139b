package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// Dialect selects SQL placeholders and DDL for the journal backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const journalTable = "run_journal"

var journalColumns = []string{
	"workflow", "status", "started_at", "finished_at",
	"attempted", "succeeded", "skipped", "failed", "detail",
}

// SQLJournal records run summaries in SQLite or Postgres.
type SQLJournal struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

var _ ports.RunJournal = (*SQLJournal)(nil)

// OpenJournal opens the database for dialect and ensures the schema exists.
func OpenJournal(ctx context.Context, dialect Dialect, dsn string) (*SQLJournal, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("journal driver %q: %w", dialect, domain.ErrConfiguration)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	j := NewSQLJournal(db, dialect)
	if err := j.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// NewSQLJournal wires an existing sql.DB.
func NewSQLJournal(db *sql.DB, dialect Dialect) *SQLJournal {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == DialectPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SQLJournal{db: db, dialect: dialect, builder: builder}
}

// Migrate creates the journal table if needed.
func (j *SQLJournal) Migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if j.dialect == DialectPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	ddl := `CREATE TABLE IF NOT EXISTS ` + journalTable + ` (
		id ` + id + `,
		workflow TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		attempted INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		detail TEXT NOT NULL
	)`
	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Record appends one run summary.
func (j *SQLJournal) Record(ctx context.Context, summary domain.RunSummary) error {
	if j.db == nil {
		return nil
	}

	detail, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode run detail: %w", err)
	}
	totals := summary.Totals()

	query, args, err := j.builder.
		Insert(journalTable).
		Columns(journalColumns...).
		Values(
			summary.Workflow,
			string(summary.Status()),
			summary.StartedAt.UTC().Format(time.RFC3339Nano),
			summary.FinishedAt.UTC().Format(time.RFC3339Nano),
			totals.Attempted,
			totals.Succeeded,
			totals.Skipped,
			totals.Failed,
			string(detail),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (j *SQLJournal) Recent(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	query, args, err := j.builder.
		Select(append([]string{"id"}, journalColumns...)...).
		From(journalTable).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var result []domain.RunRecord
	for rows.Next() {
		var (
			rec               domain.RunRecord
			status            string
			started, finished string
		)
		if err := rows.Scan(&rec.ID, &rec.Workflow, &status, &started, &finished,
			&rec.Attempted, &rec.Succeeded, &rec.Skipped, &rec.Failed, &rec.Detail); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Status = domain.RunStatus(status)
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		result = append(result, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Close releases the database handle.
func (j *SQLJournal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
