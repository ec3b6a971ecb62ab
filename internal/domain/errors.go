package domain

import "errors"

var (
	// ErrNotFound indicates an unknown job id.
	ErrNotFound = errors.New("not found")
	// ErrNotReady indicates a download requested before the job completed.
	ErrNotReady = errors.New("not ready")
	// ErrArtifactMissing indicates a completed job whose output file is gone.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrStorage indicates an artifact store read or write failure.
	ErrStorage = errors.New("storage failure")
	// ErrConversion indicates an adapter-level conversion failure.
	ErrConversion = errors.New("conversion failed")
)
