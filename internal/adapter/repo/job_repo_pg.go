package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fileconverter/internal/domain"
)

// JobRepositoryPG implements domain.JobStore on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepositoryPG creates a new job repository backed by PostgreSQL.
// The jobs table is expected to exist (see schema.sql; types map directly).
func NewJobRepositoryPG(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
INSERT INTO jobs (id, original_name, stored_name, output_name, size, category,
                  input_format, output_format, status, progress, error_message,
                  created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`
	_, err := r.pool.Exec(ctx, query,
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
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get fetches a job by its identifier.
func (r *JobRepositoryPG) Get(ctx context.Context, id string) (*domain.Job, error) {
	query := `
SELECT id, original_name, stored_name, output_name, size, category,
       input_format, output_format, status, progress, error_message,
       created_at, updated_at
FROM jobs
WHERE id = $1;
`
	job, err := scanJobPG(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// Update applies a field patch to a job and returns the updated record.
func (r *JobRepositoryPG) Update(ctx context.Context, id string, patch domain.JobPatch) (*domain.Job, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	n := 2

	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", n))
		args = append(args, string(*patch.Status))
		n++
	}
	if patch.Progress != nil {
		sets = append(sets, fmt.Sprintf("progress = $%d", n))
		args = append(args, *patch.Progress)
		n++
	}
	if patch.OutputName != nil {
		sets = append(sets, fmt.Sprintf("output_name = $%d", n))
		args = append(args, *patch.OutputName)
		n++
	}
	if patch.ErrorMessage != nil {
		sets = append(sets, fmt.Sprintf("error_message = $%d", n))
		args = append(args, *patch.ErrorMessage)
		n++
	}

	query := `UPDATE jobs SET ` + strings.Join(sets, ", ") + ` WHERE id = $1;`
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

// List returns jobs most-recent-first, capped at limit.
func (r *JobRepositoryPG) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	query := `
SELECT id, original_name, stored_name, output_name, size, category,
       input_format, output_format, status, progress, error_message,
       created_at, updated_at
FROM jobs
ORDER BY created_at DESC, id DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJobPG(rows)
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

// Claim atomically transitions a pending or failed job into converting. See
// the SQLite implementation for the semantics; the conditional UPDATE is
// identical.
func (r *JobRepositoryPG) Claim(ctx context.Context, id string) (bool, *domain.Job, error) {
	query := `
UPDATE jobs
SET status = $2, progress = 5, error_message = '', updated_at = NOW()
WHERE id = $1 AND status IN ($3, $4);
`
	tag, err := r.pool.Exec(ctx, query,
		id,
		string(domain.StatusConverting),
		string(domain.StatusPending),
		string(domain.StatusFailed),
	)
	if err != nil {
		return false, nil, fmt.Errorf("claim job: %w", err)
	}

	job, err := r.Get(ctx, id)
	if err != nil {
		return false, nil, err
	}
	return tag.RowsAffected() > 0, job, nil
}

func scanJobPG(row pgx.Row) (*domain.Job, error) {
	var (
		job              domain.Job
		category, status string
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
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Category = domain.Category(category)
	job.Status = domain.JobStatus(status)
	return &job, nil
}
