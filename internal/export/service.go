package export

import (
	"context"
	"fmt"
)

type renderFunc func(ctx context.Context, html, title string) (*Result, error)

// Service renders drafts to downloadable files.
type Service struct {
	pdf  renderFunc
	docx renderFunc
}

// NewService returns a service backed by headless Chrome and pandoc.
func NewService() *Service {
	return &Service{pdf: exportPDF, docx: exportDOCX}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	html, err := RenderDraftHTML(BuildTemplateData(req))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title := req.Schema.Title
	if req.Version != "" {
		title += " " + req.Version
	}

	switch req.Format {
	case FormatPDF:
		return s.pdf(ctx, html, title)
	case FormatDOCX:
		return s.docx(ctx, html, title)
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
