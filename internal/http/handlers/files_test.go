package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"fileconverter/internal/domain"
	"fileconverter/internal/http/handlers"
	"fileconverter/internal/http/httpapi"
	"fileconverter/internal/jobs"
)

// stubJobs scripts the orchestrator surface per test.
type stubJobs struct {
	submit   func(ctx context.Context, up jobs.Upload) (*domain.Job, error)
	start    func(ctx context.Context, id string) (*domain.Job, error)
	get      func(ctx context.Context, id string) (*domain.Job, error)
	list     func(ctx context.Context, limit int) ([]*domain.Job, error)
	download func(ctx context.Context, id string) (*jobs.Download, error)
}

func (s *stubJobs) Submit(ctx context.Context, up jobs.Upload) (*domain.Job, error) {
	return s.submit(ctx, up)
}

func (s *stubJobs) Start(ctx context.Context, id string) (*domain.Job, error) {
	return s.start(ctx, id)
}

func (s *stubJobs) Get(ctx context.Context, id string) (*domain.Job, error) {
	return s.get(ctx, id)
}

func (s *stubJobs) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	return s.list(ctx, limit)
}

func (s *stubJobs) Download(ctx context.Context, id string) (*jobs.Download, error) {
	return s.download(ctx, id)
}

type stubMedia struct {
	audio func(ctx context.Context, in, out, format string) error
	video func(ctx context.Context, in, out, format string) error
}

func (m *stubMedia) TranscodeAudio(ctx context.Context, in, out, format string) error {
	return m.audio(ctx, in, out, format)
}

func (m *stubMedia) TranscodeVideo(ctx context.Context, in, out, format string) error {
	return m.video(ctx, in, out, format)
}

func newTestRouter(t *testing.T, jobSvc handlers.JobService, media handlers.MediaService) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	app := handlers.NewApp(jobSvc, media, logger, t.TempDir(), 64<<20)
	return httpapi.NewRouter(app, logger, []string{"*"})
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for field, value := range fields {
		if err := mw.WriteField(field, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func TestUploadCreatesJobs(t *testing.T) {
	t.Parallel()
	var submitted []jobs.Upload
	svc := &stubJobs{
		submit: func(ctx context.Context, up jobs.Upload) (*domain.Job, error) {
			data, err := io.ReadAll(up.Reader)
			if err != nil {
				t.Fatalf("read upload: %v", err)
			}
			if string(data) != "docx-bytes" {
				t.Errorf("upload content = %q", data)
			}
			submitted = append(submitted, up)
			return &domain.Job{
				ID:           "job-1",
				OriginalName: up.Name,
				InputFormat:  "DOCX",
				OutputFormat: "PDF",
				Status:       domain.StatusPending,
			}, nil
		},
	}
	router := newTestRouter(t, svc, &stubMedia{})

	body, contentType := multipartBody(t,
		map[string]string{"outputFormat": "PDF"},
		map[string]string{"report.docx": "docx-bytes"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Success bool          `json:"success"`
		Files   []*domain.Job `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || len(resp.Files) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Files[0].Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", resp.Files[0].Status)
	}
	if len(submitted) != 1 || submitted[0].Name != "report.docx" || submitted[0].OutputFormat != "PDF" {
		t.Errorf("submitted = %+v", submitted)
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &stubJobs{}, &stubMedia{})

	body, contentType := multipartBody(t, map[string]string{"outputFormat": "PDF"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no files provided") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &stubJobs{}, &stubMedia{})

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", strings.NewReader("not a form"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListJobsEmptyIsArray(t *testing.T) {
	t.Parallel()
	svc := &stubJobs{
		list: func(ctx context.Context, limit int) ([]*domain.Job, error) {
			return nil, nil
		},
	}
	router := newTestRouter(t, svc, &stubMedia{})

	req := httptest.NewRequest(http.MethodGet, "/api/files/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestListJobsPassesLimit(t *testing.T) {
	t.Parallel()
	var gotLimit int
	svc := &stubJobs{
		list: func(ctx context.Context, limit int) ([]*domain.Job, error) {
			gotLimit = limit
			return []*domain.Job{{ID: "job-1"}}, nil
		},
	}
	router := newTestRouter(t, svc, &stubMedia{})

	req := httptest.NewRequest(http.MethodGet, "/api/files/?limit=25", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotLimit != 25 {
		t.Errorf("limit = %d, want 25", gotLimit)
	}
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()
	svc := &stubJobs{
		get: func(ctx context.Context, id string) (*domain.Job, error) {
			return nil, domain.ErrNotFound
		},
	}
	router := newTestRouter(t, svc, &stubMedia{})

	req := httptest.NewRequest(http.MethodGet, "/api/files/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStartJob(t *testing.T) {
	t.Parallel()
	svc := &stubJobs{
		start: func(ctx context.Context, id string) (*domain.Job, error) {
			if id != "job-1" {
				t.Errorf("start id = %q", id)
			}
			return &domain.Job{ID: id, Status: domain.StatusConverting, Progress: 5}, nil
		},
	}
	router := newTestRouter(t, svc, &stubMedia{})

	req := httptest.NewRequest(http.MethodPost, "/api/files/job-1/start", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		OK     bool   `json:"ok"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.Status != "converting" {
		t.Errorf("response = %+v", resp)
	}
}

func TestStartJobNotFound(t *testing.T) {
	t.Parallel()
	svc := &stubJobs{
		start: func(ctx context.Context, id string) (*domain.Job, error) {
			return nil, domain.ErrNotFound
		},
	}
	router := newTestRouter(t, svc, &stubMedia{})

	req := httptest.NewRequest(http.MethodPost, "/api/files/nope/start", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadJob(t *testing.T) {
	t.Parallel()
	svc := &stubJobs{
		download: func(ctx context.Context, id string) (*jobs.Download, error) {
			return &jobs.Download{
				Reader: io.NopCloser(strings.NewReader("pdf-bytes")),
				Name:   "report.pdf",
				Size:   9,
			}, nil
		},
	}
	router := newTestRouter(t, svc, &stubMedia{})

	req := httptest.NewRequest(http.MethodGet, "/api/files/job-1/download", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="report.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "9" {
		t.Errorf("Content-Length = %q", got)
	}
	if rec.Body.String() != "pdf-bytes" {
		t.Errorf("body = %q", rec.Body)
	}
}

func TestDownloadJobErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown job", domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"not completed", domain.ErrNotReady, http.StatusBadRequest, "not_ready"},
		{"artifact gone", domain.ErrArtifactMissing, http.StatusNotFound, "artifact_missing"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubJobs{
				download: func(ctx context.Context, id string) (*jobs.Download, error) {
					return nil, tc.err
				},
			}
			router := newTestRouter(t, svc, &stubMedia{})

			req := httptest.NewRequest(http.MethodGet, "/api/files/job-1/download", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tc.wantCode) {
				t.Errorf("body = %s, want code %q", rec.Body, tc.wantCode)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &stubJobs{}, &stubMedia{})

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}
