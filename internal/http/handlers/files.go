package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fileconverter/internal/domain"
	"fileconverter/internal/jobs"
)

// multipartMemoryLimit is how much of a parsed form is held in memory before
// spilling to disk.
const multipartMemoryLimit = 32 << 20

// Upload accepts one or more files in a multipart form and creates a pending
// job per file. Conversion does not start until the client asks for it.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	if a.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		a.json(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "invalid multipart form",
		})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		a.json(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "no files provided",
		})
		return
	}

	outputFormat := r.FormValue("outputFormat")
	category := r.FormValue("category")

	saved := make([]*domain.Job, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			a.Logger.Error().Err(err).Str("file", header.Filename).Msg("upload open failed")
			a.json(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": "upload failed",
			})
			return
		}
		job, err := a.Jobs.Submit(r.Context(), jobs.Upload{
			Name:         header.Filename,
			Reader:       f,
			OutputFormat: outputFormat,
			Category:     category,
		})
		_ = f.Close()
		if err != nil {
			a.Logger.Error().Err(err).Str("file", header.Filename).Msg("upload failed")
			a.json(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": "upload failed",
				"error":   err.Error(),
			})
			return
		}
		saved = append(saved, job)
	}

	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"files":   saved,
	})
}

// ListJobs returns the most recent jobs for polling clients.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := a.Jobs.List(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "cannot list files")
		return
	}
	if list == nil {
		list = []*domain.Job{}
	}
	a.json(w, http.StatusOK, list)
}

// GetJob returns a single job's metadata.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "file not found")
			return
		}
		a.Logger.Error().Err(err).Msg("get job failed")
		a.error(w, http.StatusInternalServerError, "internal", "server error")
		return
	}
	a.json(w, http.StatusOK, job)
}

// StartJob triggers the background conversion and returns immediately.
func (a *App) StartJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "file not found")
			return
		}
		a.Logger.Error().Err(err).Msg("start conversion failed")
		a.error(w, http.StatusInternalServerError, "internal", "cannot start conversion")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"ok":     true,
		"status": job.Status,
	})
}

// DownloadJob streams the converted artifact of a completed job.
func (a *App) DownloadJob(w http.ResponseWriter, r *http.Request) {
	dl, err := a.Jobs.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "file not found")
		case errors.Is(err, domain.ErrNotReady):
			a.error(w, http.StatusBadRequest, "not_ready", "file not ready")
		case errors.Is(err, domain.ErrArtifactMissing):
			a.error(w, http.StatusNotFound, "artifact_missing", "converted file missing")
		default:
			a.Logger.Error().Err(err).Msg("download failed")
			a.error(w, http.StatusInternalServerError, "internal", "download failed")
		}
		return
	}
	defer dl.Reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Name))
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	if _, err := io.Copy(w, dl.Reader); err != nil {
		a.Logger.Warn().Err(err).Msg("download stream interrupted")
	}
}
