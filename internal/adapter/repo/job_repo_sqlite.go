package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"fileconverter/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// JobRepositorySQLite is the default embedded job record store.
type JobRepositorySQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes or connects to the job database and applies the schema.
func OpenSQLite(path string) (*JobRepositorySQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &JobRepositorySQLite{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (r *JobRepositorySQLite) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (r *JobRepositorySQLite) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = r.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Create inserts a new job record.
func (r *JobRepositorySQLite) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := r.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, original_name, stored_name, output_name, size, category,
            input_format, output_format, status, progress, error_message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.OriginalName,
		job.StoredName,
		job.OutputName,
		job.Size,
		string(job.Category),
		job.InputFormat,
		job.OutputFormat,
		string(job.Status),
		job.Progress,
		job.ErrorMessage,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

const jobColumns = `id, original_name, stored_name, output_name, size, category,
    input_format, output_format, status, progress, error_message, created_at, updated_at`

// Get fetches a job by its identifier.
func (r *JobRepositorySQLite) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// Update applies a field patch to a job and returns the updated record.
func (r *JobRepositorySQLite) Update(ctx context.Context, id string, patch domain.JobPatch) (*domain.Job, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339Nano)}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *patch.Progress)
	}
	if patch.OutputName != nil {
		sets = append(sets, "output_name = ?")
		args = append(args, *patch.OutputName)
	}
	if patch.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *patch.ErrorMessage)
	}
	args = append(args, id)

	res, err := r.execWithRetry(ctx, `UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update job: rows affected: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

// List returns jobs most-recent-first, capped at limit.
func (r *JobRepositorySQLite) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Claim atomically transitions a pending or failed job into converting with
// progress reset to 5. The conditional update is the single gate against
// double dispatch: rows-affected zero means some other caller already moved
// the job, or it is completed.
func (r *JobRepositorySQLite) Claim(ctx context.Context, id string) (bool, *domain.Job, error) {
	res, err := r.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = 5, error_message = '', updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(domain.StatusConverting),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(domain.StatusPending),
		string(domain.StatusFailed),
	)
	if err != nil {
		return false, nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("claim job: rows affected: %w", err)
	}

	job, err := r.Get(ctx, id)
	if err != nil {
		return false, nil, err
	}
	return affected > 0, job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                  domain.Job
		category, status     string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&job.ID,
		&job.OriginalName,
		&job.StoredName,
		&job.OutputName,
		&job.Size,
		&category,
		&job.InputFormat,
		&job.OutputFormat,
		&status,
		&job.Progress,
		&job.ErrorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	job.Category = domain.Category(category)
	job.Status = domain.JobStatus(status)

	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}
