package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fileconverter/internal/domain"
)

// OfficeAdapter converts documents by invoking a headless LibreOffice
// process. It handles every document pair the remote adapter does not.
type OfficeAdapter struct {
	binary string
	exec   Executor
}

// OfficeOption configures the adapter.
type OfficeOption func(*OfficeAdapter)

// WithOfficeExecutor injects a custom executor (primarily for tests).
func WithOfficeExecutor(exec Executor) OfficeOption {
	return func(a *OfficeAdapter) {
		if exec != nil {
			a.exec = exec
		}
	}
}

// NewOfficeAdapter constructs the LibreOffice adapter.
func NewOfficeAdapter(binary string, opts ...OfficeOption) (*OfficeAdapter, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("office adapter: binary required")
	}
	a := &OfficeAdapter{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *OfficeAdapter) Name() string { return "office" }

func (a *OfficeAdapter) Convert(ctx context.Context, req Request) (string, error) {
	targetExt := strings.ToLower(req.OutputFormat)
	if targetExt == "" {
		targetExt = "pdf"
	}

	args := []string{
		"--headless",
		"--convert-to", targetExt,
		"--outdir", req.DestDir,
		req.SourcePath,
	}
	output, err := a.exec.Run(ctx, a.binary, args)
	if err != nil {
		return "", fmt.Errorf("%w: soffice: %v: %s", domain.ErrConversion, err, strings.TrimSpace(string(output)))
	}

	// LibreOffice sometimes writes the extension uppercased.
	base := strings.TrimSuffix(filepath.Base(req.SourcePath), filepath.Ext(req.SourcePath))
	candidates := []string{
		filepath.Join(req.DestDir, base+"."+targetExt),
		filepath.Join(req.DestDir, base+"."+strings.ToUpper(targetExt)),
	}
	for _, candidate := range candidates {
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: output not found: %s", domain.ErrConversion, strings.TrimSpace(string(output)))
}
