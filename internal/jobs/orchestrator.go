// Package jobs implements the conversion job orchestrator: the state machine
// between upload, background conversion, and download.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"fileconverter/internal/convert"
	"fileconverter/internal/domain"
	"fileconverter/internal/infra"
	"fileconverter/internal/storage"
)

// maxListLimit bounds the page size served to polling clients.
const maxListLimit = 200

const (
	progressAdapterDone = 60
	progressCompleted   = 100
)

// statusWriteTimeout bounds status updates once they are detached from the
// conversion deadline.
const statusWriteTimeout = 5 * time.Second

// writeCtx detaches a status write from its parent's cancellation. A job
// whose conversion timed out must still be recorded as failed, or it would
// sit in converting forever with no way to re-claim it.
func writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

// Upload carries one file of a submit request.
type Upload struct {
	Name         string
	Reader       io.Reader
	OutputFormat string
	Category     string
}

// Download is a completed artifact opened for streaming.
type Download struct {
	Reader io.ReadCloser
	Name   string
	Size   int64
}

// Orchestrator coordinates the job lifecycle. All background failures are
// absorbed into a failed status transition; nothing escapes a task.
type Orchestrator struct {
	store      domain.JobStore
	artifacts  storage.Store
	registry   *convert.Registry
	dispatcher *Dispatcher
	mirror     *StatusMirror
	logger     infra.Logger
	timeout    time.Duration
}

// NewOrchestrator wires the orchestrator. mirror may be nil.
func NewOrchestrator(
	store domain.JobStore,
	artifacts storage.Store,
	registry *convert.Registry,
	dispatcher *Dispatcher,
	mirror *StatusMirror,
	logger infra.Logger,
	timeout time.Duration,
) *Orchestrator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Orchestrator{
		store:      store,
		artifacts:  artifacts,
		registry:   registry,
		dispatcher: dispatcher,
		mirror:     mirror,
		logger:     logger,
		timeout:    timeout,
	}
}

// Submit stores the raw upload and creates a pending job. No conversion is
// triggered implicitly.
func (o *Orchestrator) Submit(ctx context.Context, up Upload) (*domain.Job, error) {
	inputFormat := domain.FormatFromName(up.Name)

	outputFormat := strings.ToUpper(strings.TrimSpace(up.OutputFormat))
	if outputFormat == "" {
		outputFormat = "PDF"
	}
	category := domain.Category(up.Category)
	if category == "" {
		category = domain.CategoryDocument
	}

	storedName, size, err := o.artifacts.Put(ctx, up.Reader, strings.ToLower(inputFormat))
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:           uuid.NewString(),
		OriginalName: up.Name,
		StoredName:   storedName,
		Size:         size,
		Category:     category,
		InputFormat:  inputFormat,
		OutputFormat: outputFormat,
		Status:       domain.StatusPending,
		Progress:     0,
	}
	if err := o.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("input_format", job.InputFormat).
		Str("output_format", job.OutputFormat).
		Int64("size", job.Size).
		Msg("job submitted")
	return job, nil
}

// Start claims the job and dispatches the conversion as a background task.
// It returns immediately; callers observe completion by polling. Calling
// Start on a converting or completed job is an idempotent no-op returning
// the current state.
func (o *Orchestrator) Start(ctx context.Context, id string) (*domain.Job, error) {
	claimed, job, err := o.store.Claim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		o.logger.Debug().Str("job_id", id).Str("status", string(job.Status)).Msg("start is a no-op")
		return job, nil
	}
	o.mirror.Publish(ctx, job)

	if err := o.dispatcher.Enqueue(func(taskCtx context.Context) {
		o.runConversion(taskCtx, id)
	}); err != nil {
		o.logger.Error().Err(err).Str("job_id", id).Msg("enqueue failed")
		return o.fail(context.Background(), id, fmt.Errorf("dispatch: %w", err))
	}
	return job, nil
}

// runConversion is the background task body. Every error path ends in a
// failed status update; panics are recovered at this boundary.
func (o *Orchestrator) runConversion(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = o.fail(context.Background(), id, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	job, err := o.store.Get(ctx, id)
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", id).Msg("conversion task lost its job record")
		return
	}

	if !o.artifacts.Exists(ctx, job.StoredName) {
		_, _ = o.fail(ctx, id, fmt.Errorf("%w: source file missing", domain.ErrStorage))
		return
	}

	sourcePath, err := o.artifacts.Stage(ctx, job.StoredName)
	if err != nil {
		_, _ = o.fail(ctx, id, err)
		return
	}

	adapter, err := o.registry.Resolve(job.InputFormat, job.OutputFormat)
	if err != nil {
		_, _ = o.fail(ctx, id, err)
		return
	}

	outPath, err := adapter.Convert(ctx, convert.Request{
		JobID:        job.ID,
		SourcePath:   sourcePath,
		InputFormat:  job.InputFormat,
		OutputFormat: job.OutputFormat,
		DestDir:      o.artifacts.WorkDir(),
	})
	if err != nil {
		o.logger.Error().Err(err).
			Str("job_id", id).
			Str("adapter", adapter.Name()).
			Msg("conversion failed")
		_, _ = o.fail(ctx, id, err)
		return
	}
	o.setProgress(ctx, id, progressAdapterDone)

	outputName, err := o.artifacts.Keep(ctx, outPath)
	if err != nil {
		_, _ = o.fail(ctx, id, err)
		return
	}

	completed := domain.StatusCompleted
	progress := progressCompleted
	doneCtx, cancel := writeCtx(ctx)
	defer cancel()
	updated, err := o.store.Update(doneCtx, id, domain.JobPatch{
		Status:     &completed,
		Progress:   &progress,
		OutputName: &outputName,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", id).Msg("failed to record completion")
		return
	}
	o.mirror.Publish(doneCtx, updated)

	o.logger.Info().
		Str("job_id", id).
		Str("adapter", adapter.Name()).
		Str("output", outputName).
		Msg("conversion completed")
}

// fail moves a job to failed with progress reset to 0 and the error recorded.
// The write survives the conversion deadline: the expired context is usually
// the reason fail is being called.
func (o *Orchestrator) fail(ctx context.Context, id string, cause error) (*domain.Job, error) {
	ctx, cancel := writeCtx(ctx)
	defer cancel()

	failed := domain.StatusFailed
	progress := 0
	msg := cause.Error()
	job, err := o.store.Update(ctx, id, domain.JobPatch{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", id).Msg("failed to record failure")
		return nil, err
	}
	o.mirror.Publish(ctx, job)
	o.logger.Warn().Str("job_id", id).Str("reason", msg).Msg("job failed")
	return job, nil
}

// setProgress advances the advisory progress value. Best effort.
func (o *Orchestrator) setProgress(ctx context.Context, id string, progress int) {
	ctx, cancel := writeCtx(ctx)
	defer cancel()

	job, err := o.store.Update(ctx, id, domain.JobPatch{Progress: &progress})
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", id).Msg("progress update failed")
		return
	}
	o.mirror.Publish(ctx, job)
}

// Get returns a single job.
func (o *Orchestrator) Get(ctx context.Context, id string) (*domain.Job, error) {
	return o.store.Get(ctx, id)
}

// List returns jobs most-recent-first, capped at maxListLimit.
func (o *Orchestrator) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return o.store.List(ctx, limit)
}

// Download opens the converted artifact of a completed job for streaming.
func (o *Orchestrator) Download(ctx context.Context, id string) (*Download, error) {
	job, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.StatusCompleted || job.OutputName == "" {
		return nil, domain.ErrNotReady
	}

	reader, size, err := o.artifacts.Output(ctx, job.OutputName)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactMissing) {
			o.logger.Error().Str("job_id", id).Str("output", job.OutputName).Msg("completed job artifact missing")
		}
		return nil, err
	}
	return &Download{Reader: reader, Name: job.DownloadName(), Size: size}, nil
}
