package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fileconverter/internal/domain"
)

const defaultRemoteTimeout = 120 * time.Second

// RemoteAdapter delegates a conversion to an external HTTP service
// (ConvertAPI-compatible). The service stores the result and returns a URL
// which is then streamed into the destination directory.
type RemoteAdapter struct {
	url    string
	secret string
	client *http.Client
}

// RemoteOption configures the adapter.
type RemoteOption func(*RemoteAdapter)

// WithRemoteClient injects a custom HTTP client (primarily for tests).
func WithRemoteClient(client *http.Client) RemoteOption {
	return func(a *RemoteAdapter) {
		if client != nil {
			a.client = client
		}
	}
}

// NewRemoteAdapter constructs the remote conversion adapter.
func NewRemoteAdapter(url, secret string, opts ...RemoteOption) *RemoteAdapter {
	a := &RemoteAdapter{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: defaultRemoteTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *RemoteAdapter) Name() string { return "remote" }

type remoteFile struct {
	URL string `json:"Url"`
}

type remoteResponse struct {
	Files []remoteFile `json:"Files"`
}

func (a *RemoteAdapter) Convert(ctx context.Context, req Request) (string, error) {
	if a.secret == "" {
		return "", fmt.Errorf("%w: remote conversion token not configured", domain.ErrConversion)
	}

	resultURL, err := a.submit(ctx, req.SourcePath)
	if err != nil {
		return "", err
	}

	outName := fmt.Sprintf("%s.%s", req.JobID, strings.ToLower(req.OutputFormat))
	outPath := filepath.Join(req.DestDir, outName)
	if err := a.download(ctx, resultURL, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// submit uploads the source file and returns the URL of the converted result.
func (a *RemoteAdapter) submit(ctx context.Context, sourcePath string) (string, error) {
	file, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: open source: %v", domain.ErrConversion, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("File", filepath.Base(sourcePath))
	if err != nil {
		return "", fmt.Errorf("%w: create form file: %v", domain.ErrConversion, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("%w: copy source: %v", domain.ErrConversion, err)
	}
	// Ask the service to store the result and hand back a download URL.
	_ = writer.WriteField("StoreFile", "true")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: close writer: %v", domain.ErrConversion, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", domain.ErrConversion, err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+a.secret)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: remote request: %v", domain.ErrConversion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: remote service returned %d: %s", domain.ErrConversion, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode remote response: %v", domain.ErrConversion, err)
	}
	if len(parsed.Files) == 0 || parsed.Files[0].URL == "" {
		return "", fmt.Errorf("%w: remote service did not return a file URL", domain.ErrConversion)
	}
	return parsed.Files[0].URL, nil
}

// download streams the converted result to destPath.
func (a *RemoteAdapter) download(ctx context.Context, url, destPath string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: create download request: %v", domain.ErrConversion, err)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: download result: %v", domain.ErrConversion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: result download returned %d", domain.ErrConversion, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: create output: %v", domain.ErrConversion, err)
	}
	_, err = io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("%w: save result: %v", domain.ErrConversion, err)
	}
	return nil
}
