// Package storage persists raw uploads and converted artifacts. Converter
// adapters work on local paths, so every backend must be able to stage an
// upload onto the local filesystem and keep a locally produced output.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is the artifact store contract.
type Store interface {
	// Put persists raw upload bytes under a generated collision-free name
	// and returns that name together with the byte count.
	Put(ctx context.Context, r io.Reader, suggestedExt string) (storedName string, size int64, err error)
	// Exists reports whether a raw upload is present.
	Exists(ctx context.Context, storedName string) bool
	// Stage returns an absolute local path for the named upload, fetching
	// it from remote storage when necessary.
	Stage(ctx context.Context, storedName string) (string, error)
	// WorkDir is the local directory adapters write converted files into.
	WorkDir() string
	// Keep persists a converted file produced in WorkDir and returns the
	// name it is stored under.
	Keep(ctx context.Context, localPath string) (outputName string, err error)
	// HasOutput reports whether a converted artifact is present.
	HasOutput(ctx context.Context, outputName string) bool
	// Output opens a converted artifact for streaming.
	Output(ctx context.Context, outputName string) (io.ReadCloser, int64, error)
}

// newStoredName generates a collision-free artifact name, preserving the
// original extension so external converters can sniff the input type.
func newStoredName(suggestedExt string) string {
	ext := strings.ToLower(strings.TrimPrefix(suggestedExt, "."))
	name := uuid.NewString()
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// sanitizeName rejects names that could escape the storage directories.
func sanitizeName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return name, true
}
