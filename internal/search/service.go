package search

import (
	"context"
	"time"

	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/logger"
	"ipurpose/api/internal/store"
)

type indexBackend interface {
	Searcher
	Indexer
}

type fallbackBackend interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	LoadAllRecords(ctx context.Context) ([]DraftRecord, []CheckInRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	index    indexBackend
	fallback fallbackBackend
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	s := &Service{}
	if meili != nil {
		s.index = meili
	}
	if pgfts != nil {
		s.fallback = pgfts
	}
	return s
}

func (s *Service) indexReady() bool {
	return s != nil && s.index != nil && s.index.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.indexReady() {
		results, total, err := s.index.Search(q)
		if err == nil {
			return Response{Results: decorate(nonNil(results)), Total: total, Query: q.Text}
		}
		logger.Warn("meilisearch error, falling back to pgfts", "err", err)
	}

	if s == nil || s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		logger.Error("pgfts search failed", "err", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: decorate(nonNil(results)), Total: total, Query: q.Text}
}

// IndexDraft indexes a saved draft (fire-and-forget to Meilisearch).
func (s *Service) IndexDraft(d store.Draft) {
	if !s.indexReady() {
		return
	}
	record := DraftRecordFrom(d)
	go func() {
		if err := s.index.IndexDraft(record); err != nil {
			logger.Warn("index draft", "id", record.ID, "err", err)
		}
	}()
}

// IndexCheckIn indexes a recorded check-in (fire-and-forget to Meilisearch).
func (s *Service) IndexCheckIn(c store.CheckIn) {
	if !s.indexReady() {
		return
	}
	record := CheckInRecordFrom(c)
	go func() {
		if err := s.index.IndexCheckIn(record); err != nil {
			logger.Warn("index check-in", "id", record.ID, "err", err)
		}
	}()
}

// ReindexAllFromPG pushes every draft and check-in from PostgreSQL into
// Meilisearch. Called at startup.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if !s.indexReady() || s.fallback == nil {
		return
	}
	drafts, checkIns, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		logger.Error("search reindex load failed", "err", err)
		return
	}
	for i := range drafts {
		drafts[i].Title = formTitle(drafts[i].FormKey)
	}
	if err := s.index.IndexDrafts(drafts); err != nil {
		logger.Warn("reindex drafts", "err", err)
	}
	if err := s.index.IndexCheckIns(checkIns); err != nil {
		logger.Warn("reindex check-ins", "err", err)
	}
	logger.Info("search reindex complete", "drafts", len(drafts), "checkIns", len(checkIns))
}

// DraftRecordFrom flattens a draft's field values into one searchable body.
func DraftRecordFrom(d store.Draft) DraftRecord {
	body := ""
	if schema, err := forms.Lookup(d.FormKey); err == nil {
		for _, key := range forms.Keys(schema) {
			if v := d.Fields[key]; v != "" {
				body += v + "\n"
			}
		}
	} else {
		for _, v := range d.Fields {
			if v != "" {
				body += v + "\n"
			}
		}
	}
	return DraftRecord{
		ID:        DraftID(d.UserID, d.FormKey),
		UserID:    d.UserID,
		FormKey:   d.FormKey,
		Title:     formTitle(d.FormKey),
		Body:      body,
		UpdatedAt: unix(d.UpdatedAt),
	}
}

func CheckInRecordFrom(c store.CheckIn) CheckInRecord {
	return CheckInRecord{
		ID:             c.ID,
		UserID:         c.UserID,
		Need:           c.Need,
		Emotions:       c.Emotions,
		AlignmentScore: c.AlignmentScore,
		RecordedAt:     unix(c.RecordedAt),
	}
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func formTitle(formKey string) string {
	if schema, err := forms.Lookup(formKey); err == nil {
		return schema.Title
	}
	return formKey
}

func decorate(results []Result) []Result {
	for i := range results {
		if results[i].Type == ResultDraft && results[i].FormKey != "" {
			results[i].Title = formTitle(results[i].FormKey)
		}
	}
	return results
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
