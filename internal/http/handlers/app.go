package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"fileconverter/internal/domain"
	"fileconverter/internal/infra"
	"fileconverter/internal/jobs"
)

// JobService is the orchestrator surface the handlers depend on.
type JobService interface {
	Submit(ctx context.Context, up jobs.Upload) (*domain.Job, error)
	Start(ctx context.Context, id string) (*domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, limit int) ([]*domain.Job, error)
	Download(ctx context.Context, id string) (*jobs.Download, error)
}

// MediaService transcodes audio/video synchronously for the media endpoints.
type MediaService interface {
	TranscodeAudio(ctx context.Context, inputPath, outputPath, outputFormat string) error
	TranscodeVideo(ctx context.Context, inputPath, outputPath, outputFormat string) error
}

// App is the handler container.
type App struct {
	Jobs           JobService
	Media          MediaService
	Logger         infra.Logger
	TempDir        string
	MaxUploadBytes int64
}

func NewApp(jobSvc JobService, media MediaService, logger infra.Logger, tempDir string, maxUploadBytes int64) *App {
	return &App{
		Jobs:           jobSvc,
		Media:          media,
		Logger:         logger,
		TempDir:        tempDir,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
