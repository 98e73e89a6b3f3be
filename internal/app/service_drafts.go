package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ipurpose/api/internal/entitlement"
	"ipurpose/api/internal/export"
	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/logger"
	"ipurpose/api/internal/revisions"
	"ipurpose/api/internal/store"
)

const defaultFlushTimeout = 10 * time.Second

func (s *Service) flushTimeout() time.Duration {
	if s.cfg.FlushTimeout > 0 {
		return s.cfg.FlushTimeout
	}
	return defaultFlushTimeout
}

// openForm resolves a form the session may use.
func (s *Service) openForm(session Session, formKey string) (forms.Schema, error) {
	schema, err := forms.Lookup(formKey)
	if err != nil {
		return forms.Schema{}, notFound("Unknown form")
	}
	if !entitlement.CanOpenForm(session.Tier, formKey) {
		return forms.Schema{}, upgradeRequired(entitlement.RequiredForForm(formKey))
	}
	return schema, nil
}

func requireAction(session Session, action entitlement.Action) error {
	if !entitlement.Can(session.Tier, action) {
		return upgradeRequired(entitlement.RequiredFor(action))
	}
	return nil
}

// Forms lists the catalogue with the caller's access and progress.
func (s *Service) Forms(ctx context.Context, session Session) (map[string]any, error) {
	drafts, err := s.store.ListDrafts(ctx, session.UserID)
	if err != nil {
		logger.Error("list drafts", "userId", session.UserID, "err", err)
		return nil, storageUnavailable()
	}
	byForm := make(map[string]store.Draft, len(drafts))
	for _, d := range drafts {
		byForm[d.FormKey] = d
	}

	items := make([]map[string]any, 0)
	for _, schema := range forms.All() {
		item := map[string]any{
			"key":          schema.Key,
			"title":        schema.Title,
			"description":  schema.Description,
			"requiredTier": entitlement.RequiredForForm(schema.Key),
			"locked":       !entitlement.CanOpenForm(session.Tier, schema.Key),
			"completion":   0,
			"updatedAt":    nil,
		}
		if d, ok := byForm[schema.Key]; ok {
			item["completion"] = forms.CompletionPercent(schema, d.Fields)
			item["updatedAt"] = d.UpdatedAt
		}
		items = append(items, item)
	}
	return map[string]any{"forms": items, "tier": session.Tier}, nil
}

// FormSchema returns the schema even for locked forms so clients can show
// what an upgrade unlocks.
func (s *Service) FormSchema(formKey string) (forms.Schema, error) {
	schema, err := forms.Lookup(formKey)
	if err != nil {
		return forms.Schema{}, notFound("Unknown form")
	}
	return schema, nil
}

func (s *Service) LoadDraft(ctx context.Context, session Session, formKey string) (map[string]any, error) {
	schema, err := s.openForm(session, formKey)
	if err != nil {
		return nil, err
	}
	draft, err := s.store.GetDraft(ctx, session.UserID, formKey)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]any{
			"form":       formKey,
			"fields":     map[string]string{},
			"completion": 0,
			"updatedAt":  nil,
		}, nil
	}
	if err != nil {
		logger.Error("load draft", "userId", session.UserID, "form", formKey, "err", err)
		return nil, storageUnavailable()
	}
	fields := draft.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return map[string]any{
		"form":       formKey,
		"fields":     fields,
		"completion": forms.CompletionPercent(schema, fields),
		"updatedAt":  draft.UpdatedAt,
	}, nil
}

// FlushDraft merges a field map into the stored draft. Keys present in the
// payload overwrite stored values; absent keys are kept.
func (s *Service) FlushDraft(ctx context.Context, session Session, formKey string, fields forms.FieldMap) (map[string]any, error) {
	schema, err := s.openForm(session, formKey)
	if err != nil {
		return nil, err
	}
	if err := forms.Validate(schema, fields); err != nil {
		var unknown *forms.UnknownKeysError
		if errors.As(err, &unknown) {
			return nil, validationError("Unknown field keys", map[string]any{"keys": unknown.Keys})
		}
		return nil, validationError(err.Error(), nil)
	}
	if fields == nil {
		fields = forms.FieldMap{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.flushTimeout())
	defer cancel()

	draft, err := s.store.MergeDraft(ctx, session.UserID, formKey, fields)
	if err != nil {
		logger.Error("draft flush failed", "userId", session.UserID, "form", formKey, "keys", len(fields), "err", err)
		return nil, storageUnavailable()
	}
	if s.search != nil {
		s.search.IndexDraft(draft)
	}

	return map[string]any{
		"ok":         true,
		"completion": forms.CompletionPercent(schema, draft.Fields),
		"updatedAt":  draft.UpdatedAt,
	}, nil
}

func (s *Service) currentFields(ctx context.Context, session Session, formKey string) (map[string]string, error) {
	draft, err := s.store.GetDraft(ctx, session.UserID, formKey)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		logger.Error("load draft", "userId", session.UserID, "form", formKey, "err", err)
		return nil, storageUnavailable()
	}
	if draft.Fields == nil {
		return map[string]string{}, nil
	}
	return draft.Fields, nil
}

func (s *Service) versionsAvailable() error {
	if s.revisions == nil {
		return domainError(http.StatusServiceUnavailable, "VERSIONS_UNAVAILABLE", "Versions are not configured", nil)
	}
	return nil
}

// SaveVersion commits the current draft as a named snapshot.
func (s *Service) SaveVersion(ctx context.Context, session Session, formKey, name string) (map[string]any, error) {
	schema, err := s.openForm(session, formKey)
	if err != nil {
		return nil, err
	}
	if err := requireAction(session, entitlement.ActionVersions); err != nil {
		return nil, err
	}
	if err := s.versionsAvailable(); err != nil {
		return nil, err
	}
	fields, err := s.currentFields(ctx, session, formKey)
	if err != nil {
		return nil, err
	}

	version, err := s.revisions.SaveVersion(session.UserID, formKey, revisions.Snapshot{
		Form:       formKey,
		Completion: forms.CompletionPercent(schema, fields),
		Fields:     fields,
	}, session.UserName, strings.TrimSpace(name))
	if err != nil {
		logger.Error("save version", "userId", session.UserID, "form", formKey, "err", err)
		return nil, storageUnavailable()
	}
	return map[string]any{"version": version}, nil
}

func (s *Service) ListVersions(ctx context.Context, session Session, formKey string, limit int) (map[string]any, error) {
	if _, err := s.openForm(session, formKey); err != nil {
		return nil, err
	}
	if err := requireAction(session, entitlement.ActionVersions); err != nil {
		return nil, err
	}
	if err := s.versionsAvailable(); err != nil {
		return nil, err
	}
	versions, err := s.revisions.History(session.UserID, formKey, limit)
	if err != nil {
		logger.Error("list versions", "userId", session.UserID, "form", formKey, "err", err)
		return nil, storageUnavailable()
	}
	if versions == nil {
		versions = []revisions.Version{}
	}
	return map[string]any{"versions": versions}, nil
}

// GetVersion returns a snapshot and the field changes between it and the
// current draft.
func (s *Service) GetVersion(ctx context.Context, session Session, formKey, hash string) (map[string]any, error) {
	if _, err := s.openForm(session, formKey); err != nil {
		return nil, err
	}
	if err := requireAction(session, entitlement.ActionVersions); err != nil {
		return nil, err
	}
	if err := s.versionsAvailable(); err != nil {
		return nil, err
	}
	snapshot, version, err := s.revisions.Get(session.UserID, formKey, hash)
	if errors.Is(err, revisions.ErrVersionNotFound) || errors.Is(err, revisions.ErrInvalidPath) {
		return nil, notFound("Version not found")
	}
	if err != nil {
		logger.Error("get version", "userId", session.UserID, "form", formKey, "hash", hash, "err", err)
		return nil, storageUnavailable()
	}
	current, err := s.currentFields(ctx, session, formKey)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"version":  version,
		"snapshot": snapshot,
		"changes":  revisions.Diff(snapshot.Fields, current),
	}, nil
}

type ExportInput struct {
	Format  string `json:"format"`
	Version string `json:"version"`
	Archive bool   `json:"archive"`
	Notify  bool   `json:"notify"`
}

// ExportOutcome is either a file to stream or an archived download link.
type ExportOutcome struct {
	File   *export.Result
	Stored *export.Stored
}

func (s *Service) ExportDraft(ctx context.Context, session Session, formKey string, input ExportInput) (ExportOutcome, error) {
	schema, err := s.openForm(session, formKey)
	if err != nil {
		return ExportOutcome{}, err
	}
	if err := requireAction(session, entitlement.ActionExport); err != nil {
		return ExportOutcome{}, err
	}
	format, ok := export.ParseFormat(strings.TrimSpace(input.Format))
	if !ok {
		return ExportOutcome{}, validationError("format must be pdf, docx or html", nil)
	}
	if input.Archive && s.archive == nil {
		return ExportOutcome{}, domainError(http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "Export archive is not configured", nil)
	}

	req := export.Request{
		Schema: schema,
		Format: format,
		Author: session.UserName,
	}
	if hash := strings.TrimSpace(input.Version); hash != "" {
		if err := requireAction(session, entitlement.ActionVersions); err != nil {
			return ExportOutcome{}, err
		}
		if err := s.versionsAvailable(); err != nil {
			return ExportOutcome{}, err
		}
		snapshot, version, err := s.revisions.Get(session.UserID, formKey, hash)
		if err != nil {
			return ExportOutcome{}, notFound("Version not found")
		}
		req.Fields = snapshot.Fields
		req.UpdatedAt = version.CreatedAt
		req.Version = version.Name
	} else {
		draft, err := s.store.GetDraft(ctx, session.UserID, formKey)
		switch {
		case errors.Is(err, store.ErrNotFound):
			req.Fields = map[string]string{}
			req.UpdatedAt = time.Now()
		case err != nil:
			logger.Error("load draft for export", "userId", session.UserID, "form", formKey, "err", err)
			return ExportOutcome{}, storageUnavailable()
		default:
			req.Fields = draft.Fields
			req.UpdatedAt = draft.UpdatedAt
		}
	}
	req.Completion = forms.CompletionPercent(schema, req.Fields)

	result, err := s.exporter.Export(ctx, req)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return ExportOutcome{}, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export renderer is not installed", nil)
		}
		logger.Error("export draft", "userId", session.UserID, "form", formKey, "format", format, "err", err)
		return ExportOutcome{}, domainError(http.StatusInternalServerError, "EXPORT_FAILED", "Export failed", nil)
	}
	if !input.Archive {
		return ExportOutcome{File: result}, nil
	}

	stored, err := s.archive.Put(ctx, session.UserID, result)
	if err != nil {
		logger.Error("archive export", "userId", session.UserID, "form", formKey, "err", err)
		return ExportOutcome{}, storageUnavailable()
	}
	if input.Notify && s.SMTPConfigured() && session.Email != "" {
		if err := s.mailer.SendExportReadyEmail(session.Email, session.UserName, schema.Title, stored.URL); err != nil {
			logger.Warn("send export email", "userId", session.UserID, "err", err)
		}
	}
	return ExportOutcome{Stored: &stored}, nil
}
