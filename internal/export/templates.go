package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"ipurpose/api/internal/forms"
)

//go:embed templates/*.html
var templateFS embed.FS

var draftTemplate = template.Must(template.New("draft.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	},
}).ParseFS(templateFS, "templates/draft.html"))

// TemplateData holds data for draft template rendering
type TemplateData struct {
	Title       string
	Description string
	Author      string
	Version     string
	UpdatedAt   time.Time
	Completion  int
	Steps       []TemplateStep
}

type TemplateStep struct {
	Title  string
	Prompt string
	Fields []TemplateField
}

// TemplateField carries exactly one of Text, Items or Grid.
type TemplateField struct {
	Label string
	Text  string
	Items []string
	Grid  *TemplateGrid
}

type TemplateGrid struct {
	Columns []string
	Rows    []TemplateGridRow
}

type TemplateGridRow struct {
	Label string
	Cells []string
}

// BuildTemplateData lays a draft's field map over its schema.
func BuildTemplateData(req Request) TemplateData {
	data := TemplateData{
		Title:       req.Schema.Title,
		Description: req.Schema.Description,
		Author:      req.Author,
		Version:     req.Version,
		UpdatedAt:   req.UpdatedAt,
		Completion:  req.Completion,
	}
	for _, step := range req.Schema.Steps {
		ts := TemplateStep{Title: step.Title, Prompt: step.Prompt}
		for _, field := range step.Fields {
			ts.Fields = append(ts.Fields, templateField(field, req.Fields))
		}
		data.Steps = append(data.Steps, ts)
	}
	return data
}

func templateField(field forms.Field, values map[string]string) TemplateField {
	tf := TemplateField{Label: field.Label}
	switch field.Variant {
	case forms.VariantGrid:
		grid := &TemplateGrid{Columns: field.Columns}
		for _, row := range field.Rows {
			gr := TemplateGridRow{Label: row}
			for _, col := range field.Columns {
				gr.Cells = append(gr.Cells, strings.TrimSpace(values[forms.GridKey(field.Key, row, col)]))
			}
			grid.Rows = append(grid.Rows, gr)
		}
		tf.Grid = grid
	case forms.VariantCheckboxes:
		tf.Items = forms.SplitOptions(values[field.Key])
	default:
		tf.Text = strings.TrimSpace(values[field.Key])
	}
	return tf
}

// RenderDraftHTML renders the draft template with provided data
func RenderDraftHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := draftTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
