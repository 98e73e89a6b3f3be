// Package export renders saved form drafts to PDF and DOCX and archives
// the rendered files in object storage.
package export

import (
	"errors"
	"time"

	"ipurpose/api/internal/forms"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
)

// ParseFormat accepts pdf, docx and html, case-sensitively.
func ParseFormat(value string) (Format, bool) {
	switch Format(value) {
	case FormatPDF, FormatDOCX, FormatHTML:
		return Format(value), true
	default:
		return "", false
	}
}

// Request contains parameters for an export operation
type Request struct {
	Schema     forms.Schema
	Fields     map[string]string
	Format     Format
	Author     string
	UpdatedAt  time.Time
	Completion int
	// Version labels an export taken from a named snapshot.
	Version string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
	ErrUnsupportedFormat     = errors.New("unsupported export format")
	// ErrArchiveUnavailable is returned when no object store is configured.
	ErrArchiveUnavailable = errors.New("export archive unavailable")
)
