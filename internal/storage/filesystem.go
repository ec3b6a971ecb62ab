package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fileconverter/internal/domain"
)

// FileStore persists artifacts on the local filesystem: raw uploads under
// uploadDir, converted outputs under convertedDir.
type FileStore struct {
	uploadDir    string
	convertedDir string
}

// NewFileStore initializes a FileStore, creating both directories.
func NewFileStore(uploadDir, convertedDir string) (*FileStore, error) {
	if uploadDir == "" || convertedDir == "" {
		return nil, errors.New("storage: upload and converted directories are required")
	}
	for _, dir := range []string{uploadDir, convertedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure directory %s: %w", dir, err)
		}
	}
	absUpload, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve upload dir: %w", err)
	}
	absConverted, err := filepath.Abs(convertedDir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve converted dir: %w", err)
	}
	return &FileStore{uploadDir: absUpload, convertedDir: absConverted}, nil
}

func (s *FileStore) Put(ctx context.Context, r io.Reader, suggestedExt string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	name := newStoredName(suggestedExt)
	path := filepath.Join(s.uploadDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: create upload: %v", domain.ErrStorage, err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("%w: write upload: %v", domain.ErrStorage, err)
	}
	return name, size, nil
}

func (s *FileStore) Exists(ctx context.Context, storedName string) bool {
	name, ok := sanitizeName(storedName)
	if !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(s.uploadDir, name))
	return err == nil
}

func (s *FileStore) Stage(ctx context.Context, storedName string) (string, error) {
	name, ok := sanitizeName(storedName)
	if !ok {
		return "", fmt.Errorf("%w: invalid stored name %q", domain.ErrStorage, storedName)
	}
	path := filepath.Join(s.uploadDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: stat %s: %v", domain.ErrStorage, name, err)
	}
	return path, nil
}

func (s *FileStore) WorkDir() string {
	return s.convertedDir
}

// Keep moves a converted file into the converted directory when it was
// produced elsewhere; files already inside it are kept in place.
func (s *FileStore) Keep(ctx context.Context, localPath string) (string, error) {
	name := filepath.Base(localPath)
	dest := filepath.Join(s.convertedDir, name)
	if localPath == dest {
		return name, nil
	}
	if err := os.Rename(localPath, dest); err != nil {
		return "", fmt.Errorf("%w: keep converted file: %v", domain.ErrStorage, err)
	}
	return name, nil
}

func (s *FileStore) HasOutput(ctx context.Context, outputName string) bool {
	name, ok := sanitizeName(outputName)
	if !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(s.convertedDir, name))
	return err == nil
}

func (s *FileStore) Output(ctx context.Context, outputName string) (io.ReadCloser, int64, error) {
	name, ok := sanitizeName(outputName)
	if !ok {
		return nil, 0, fmt.Errorf("%w: invalid output name %q", domain.ErrStorage, outputName)
	}
	path := filepath.Join(s.convertedDir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, domain.ErrArtifactMissing
		}
		return nil, 0, fmt.Errorf("%w: stat output: %v", domain.ErrStorage, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open output: %v", domain.ErrStorage, err)
	}
	return f, info.Size(), nil
}
