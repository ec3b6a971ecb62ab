package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ConvertAudio transcodes a single uploaded audio file and streams the
// result straight back. No job record is created: the client awaits the
// bytes, so this runs synchronously inside its own request.
func (a *App) ConvertAudio(w http.ResponseWriter, r *http.Request) {
	a.convertMedia(w, r, "mp3", a.Media.TranscodeAudio)
}

// ConvertVideo transcodes a single uploaded video file and streams the
// result straight back.
func (a *App) ConvertVideo(w http.ResponseWriter, r *http.Request) {
	a.convertMedia(w, r, "mp4", a.Media.TranscodeVideo)
}

type transcodeFunc func(ctx context.Context, inputPath, outputPath, outputFormat string) error

func (a *App) convertMedia(w http.ResponseWriter, r *http.Request, defaultFormat string, transcode transcodeFunc) {
	if a.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	outputFormat := strings.ToLower(strings.TrimSpace(r.FormValue("outputFormat")))
	if outputFormat == "" {
		outputFormat = defaultFormat
	}

	inputPath, err := a.spoolUpload(file)
	if err != nil {
		a.Logger.Error().Err(err).Msg("media upload spool failed")
		a.error(w, http.StatusInternalServerError, "internal", "upload failed")
		return
	}
	outputPath := inputPath + "." + outputFormat
	// Both temp files are removed whether the response succeeds or not.
	defer a.removeTemp(inputPath)
	defer a.removeTemp(outputPath)

	if err := transcode(r.Context(), inputPath, outputPath, outputFormat); err != nil {
		a.Logger.Error().Err(err).Str("file", header.Filename).Str("output_format", outputFormat).Msg("media conversion failed")
		a.error(w, http.StatusInternalServerError, "conversion_failed", "media conversion failed")
		return
	}

	out, err := os.Open(outputPath)
	if err != nil {
		a.Logger.Error().Err(err).Msg("media output missing")
		a.error(w, http.StatusInternalServerError, "conversion_failed", "media conversion failed")
		return
	}
	defer out.Close()

	base := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"."+outputFormat))
	if _, err := io.Copy(w, out); err != nil {
		a.Logger.Warn().Err(err).Msg("media stream interrupted")
	}
}

func (a *App) spoolUpload(file io.Reader) (string, error) {
	tmp, err := os.CreateTemp(a.TempDir, "media-*")
	if err != nil {
		return "", err
	}
	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (a *App) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		a.Logger.Warn().Err(err).Str("path", path).Msg("temp cleanup failed")
	}
}
