package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"fileconverter/internal/domain"
	"fileconverter/internal/infra"
)

// StatusMirror writes job status hashes into Redis so external pollers can
// watch conversions without hitting the record store. It is optional: a nil
// mirror or nil client is a no-op, and mirror failures never fail a job.
type StatusMirror struct {
	client *redis.Client
	logger infra.Logger
}

// NewStatusMirror wraps a Redis client; client may be nil.
func NewStatusMirror(client *redis.Client, logger infra.Logger) *StatusMirror {
	return &StatusMirror{client: client, logger: logger}
}

// Publish mirrors the job's current status under conversion:status:<id>.
func (m *StatusMirror) Publish(ctx context.Context, job *domain.Job) {
	if m == nil || m.client == nil || job == nil {
		return
	}
	key := "conversion:status:" + job.ID
	fields := map[string]any{
		"status":     string(job.Status),
		"progress":   job.Progress,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if job.ErrorMessage != "" {
		fields["error"] = job.ErrorMessage
	}
	if err := m.client.HSet(ctx, key, fields).Err(); err != nil {
		m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("status mirror write failed")
	}
}
