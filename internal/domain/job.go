package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// JobStatus enumerates the conversion job lifecycle states.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusConverting JobStatus = "converting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

var allStatuses = []JobStatus{
	StatusPending,
	StatusConverting,
	StatusCompleted,
	StatusFailed,
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s JobStatus) bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Category tags an upload for filtering and display. Dispatch never depends
// on it; conversions are routed by format pair alone.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
)

// Job is a tracked request to convert one uploaded artifact to a target
// format.
type Job struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	OutputName   string    `json:"outputName,omitempty"`
	Size         int64     `json:"size"`
	Category     Category  `json:"category"`
	InputFormat  string    `json:"inputFormat"`
	OutputFormat string    `json:"outputFormat"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DownloadName combines the original base name with the converted file's
// extension, e.g. "report.docx" converted to PDF downloads as "report.pdf".
func (j *Job) DownloadName() string {
	ext := filepath.Ext(j.OutputName)
	base := strings.TrimSuffix(j.OriginalName, filepath.Ext(j.OriginalName))
	return base + ext
}

// FormatFromName derives the uppercase format token from a filename
// extension ("report.docx" -> "DOCX"). Empty when there is no extension.
func FormatFromName(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return strings.ToUpper(ext)
}
