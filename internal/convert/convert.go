// Package convert holds the converter adapters and the format-pair dispatch
// table that routes a job to the right backend.
package convert

import "context"

// Request describes one conversion attempt. SourcePath is a local file,
// DestDir a local directory the adapter writes its output into.
type Request struct {
	JobID        string
	SourcePath   string
	InputFormat  string
	OutputFormat string
	DestDir      string
}

// Adapter is a backend capable of performing one class of conversions.
type Adapter interface {
	// Name identifies the adapter in logs.
	Name() string
	// Convert produces the converted file and returns its path, or an
	// error wrapping domain.ErrConversion.
	Convert(ctx context.Context, req Request) (string, error)
}
