package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ipurpose/api/internal/draft"
	"ipurpose/api/internal/export"
	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/revisions"
)

type FormSummary struct {
	Key          string     `json:"key"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	RequiredTier string     `json:"requiredTier"`
	Locked       bool       `json:"locked"`
	Completion   int        `json:"completion"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

type FormList struct {
	Forms []FormSummary `json:"forms"`
	Tier  string        `json:"tier"`
}

type Draft struct {
	Form       string         `json:"form"`
	Fields     forms.FieldMap `json:"fields"`
	Completion int            `json:"completion"`
	UpdatedAt  *time.Time     `json:"updatedAt"`
}

type FlushResult struct {
	OK         bool      `json:"ok"`
	Completion int       `json:"completion"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type VersionDetail struct {
	Version  revisions.Version       `json:"version"`
	Snapshot revisions.Snapshot      `json:"snapshot"`
	Changes  []revisions.FieldChange `json:"changes"`
}

// ExportFile is a rendered export. Exactly one of Data or Stored is set.
type ExportFile struct {
	Filename string
	MimeType string
	Data     []byte
	Stored   *export.Stored
}

func draftPath(formKey string) string {
	return "/api/drafts/" + url.PathEscape(formKey)
}

func (c *Client) Forms(ctx context.Context) (FormList, error) {
	var out FormList
	err := c.do(ctx, http.MethodGet, "/api/forms", nil, &out)
	return out, err
}

func (c *Client) Schema(ctx context.Context, formKey string) (forms.Schema, error) {
	var out forms.Schema
	err := c.do(ctx, http.MethodGet, "/api/forms/"+url.PathEscape(formKey), nil, &out)
	return out, err
}

func (c *Client) LoadDraft(ctx context.Context, formKey string) (Draft, error) {
	var out Draft
	if err := c.do(ctx, http.MethodGet, draftPath(formKey), nil, &out); err != nil {
		return Draft{}, err
	}
	if out.Fields == nil {
		out.Fields = forms.FieldMap{}
	}
	return out, nil
}

func (c *Client) FlushDraft(ctx context.Context, formKey string, fields forms.FieldMap) (FlushResult, error) {
	var out FlushResult
	err := c.do(ctx, http.MethodPost, draftPath(formKey), fields, &out)
	return out, err
}

// DraftFlusher returns a draft.Flusher that posts to one form.
func (c *Client) DraftFlusher(formKey string) draft.Flusher {
	return draft.FlushFunc(func(ctx context.Context, fields forms.FieldMap) error {
		_, err := c.FlushDraft(ctx, formKey, fields)
		return err
	})
}

func (c *Client) SaveVersion(ctx context.Context, formKey, name string) (revisions.Version, error) {
	var out struct {
		Version revisions.Version `json:"version"`
	}
	err := c.do(ctx, http.MethodPost, draftPath(formKey)+"/versions", map[string]string{"name": name}, &out)
	return out.Version, err
}

func (c *Client) ListVersions(ctx context.Context, formKey string, limit int) ([]revisions.Version, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Versions []revisions.Version `json:"versions"`
	}
	err := c.do(ctx, http.MethodGet, withQuery(draftPath(formKey)+"/versions", values), nil, &out)
	return out.Versions, err
}

func (c *Client) GetVersion(ctx context.Context, formKey, hash string) (VersionDetail, error) {
	var out VersionDetail
	err := c.do(ctx, http.MethodGet, draftPath(formKey)+"/versions/"+url.PathEscape(hash), nil, &out)
	return out, err
}

type ExportOptions struct {
	Format  string `json:"format"`
	Version string `json:"version,omitempty"`
	Archive bool   `json:"archive,omitempty"`
	Notify  bool   `json:"notify,omitempty"`
}

func (c *Client) Export(ctx context.Context, formKey string, opts ExportOptions) (ExportFile, error) {
	if opts.Archive {
		var stored export.Stored
		if err := c.do(ctx, http.MethodPost, draftPath(formKey)+"/export", opts, &stored); err != nil {
			return ExportFile{}, err
		}
		return ExportFile{Stored: &stored}, nil
	}

	resp, err := c.send(ctx, http.MethodPost, draftPath(formKey)+"/export", opts)
	if err != nil {
		return ExportFile{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ExportFile{}, fmt.Errorf("read export: %w", err)
	}
	return ExportFile{
		Filename: filenameFromDisposition(resp.Header.Get("Content-Disposition"), formKey+"."+opts.Format),
		MimeType: resp.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func filenameFromDisposition(header, fallback string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}
