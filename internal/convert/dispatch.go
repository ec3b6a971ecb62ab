package convert

import (
	"fmt"
	"strings"

	"fileconverter/internal/domain"
)

type pairKey struct {
	in  string
	out string
}

// Registry maps lower-cased (inputFormat, outputFormat) pairs to adapters.
// Selection is a pure function of the format pair; the job's category is
// never consulted. Pairs without an explicit entry fall back to the default
// document adapter, matching the dispatch rule: only (pdf, docx) goes
// remote, every other document pair runs through LibreOffice.
type Registry struct {
	pairs    map[pairKey]Adapter
	fallback Adapter
}

// NewRegistry creates a registry with the given document fallback adapter.
func NewRegistry(fallback Adapter) *Registry {
	return &Registry{
		pairs:    make(map[pairKey]Adapter),
		fallback: fallback,
	}
}

// Register routes an exact format pair to an adapter. Matching is
// case-insensitive.
func (r *Registry) Register(inputFormat, outputFormat string, adapter Adapter) {
	r.pairs[normalizePair(inputFormat, outputFormat)] = adapter
}

// Resolve returns the adapter for a format pair.
func (r *Registry) Resolve(inputFormat, outputFormat string) (Adapter, error) {
	if adapter, ok := r.pairs[normalizePair(inputFormat, outputFormat)]; ok {
		return adapter, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: no adapter for %s -> %s", domain.ErrConversion, inputFormat, outputFormat)
}

func normalizePair(in, out string) pairKey {
	return pairKey{
		in:  strings.ToLower(strings.TrimSpace(in)),
		out: strings.ToLower(strings.TrimSpace(out)),
	}
}
