package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PgFTS implements search using PostgreSQL full-text search over the
// primary tables. It is the fallback when Meilisearch is unavailable.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; PG is the primary store.
func (p *PgFTS) Healthy() bool {
	return true
}

const draftBodySQL = `coalesce((SELECT string_agg(f.value, ' ') FROM jsonb_each_text(d.fields) f), '')`

const checkInBodySQL = `c.need || ' ' || coalesce((SELECT string_agg(e, ' ') FROM jsonb_array_elements_text(c.emotions) e), '')`

// Search runs a ranked full-text query over the user's drafts and check-ins.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.UserID) == "" {
		return nil, 0, fmt.Errorf("pgfts: user id is required")
	}
	limit := normalizeLimit(q.Limit)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const tsQuery = "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.UserID}

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultDraft {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'draft'::text AS type, d.user_id::text || '__' || d.form_key AS id,
				d.form_key AS title,
				ts_headline('english', %[1]s, %[2]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.form_key,
				d.updated_at AS recorded_at,
				ts_rank(to_tsvector('english', %[1]s), %[2]s) AS rank
			FROM drafts d
			WHERE d.user_id = $2 AND to_tsvector('english', %[1]s) @@ %[2]s`,
			draftBodySQL, tsQuery))
	}
	if q.FilterType == "" || q.FilterType == ResultCheckIn {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'checkin'::text AS type, c.id::text,
				coalesce((SELECT string_agg(e, ', ') FROM jsonb_array_elements_text(c.emotions) e), '') AS title,
				ts_headline('english', c.need, %[2]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS form_key,
				c.recorded_at,
				ts_rank(to_tsvector('english', %[1]s), %[2]s) AS rank
			FROM check_ins c
			WHERE c.user_id = $2 AND to_tsvector('english', %[1]s) @@ %[2]s`,
			checkInBodySQL, tsQuery))
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, form_key, recorded_at
		FROM (%s) sub
		ORDER BY rank DESC, recorded_at DESC
		LIMIT %d OFFSET %d`, union, limit, offset)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		var recordedAt time.Time
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.FormKey, &recordedAt); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		r.RecordedAt = recordedAt.Unix()
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DraftRecord, []CheckInRecord, error) {
	draftRows, err := p.db.QueryContext(ctx, `
		SELECT d.user_id::text, d.form_key, `+draftBodySQL+`, d.updated_at
		FROM drafts d
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load drafts: %w", err)
	}
	defer draftRows.Close()

	drafts := make([]DraftRecord, 0)
	for draftRows.Next() {
		var d DraftRecord
		var updatedAt time.Time
		if err := draftRows.Scan(&d.UserID, &d.FormKey, &d.Body, &updatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan draft: %w", err)
		}
		d.ID = DraftID(d.UserID, d.FormKey)
		d.Title = d.FormKey
		d.UpdatedAt = updatedAt.Unix()
		drafts = append(drafts, d)
	}
	if err := draftRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate drafts: %w", err)
	}

	checkInRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, user_id::text, need, emotions, alignment_score, recorded_at
		FROM check_ins
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load check-ins: %w", err)
	}
	defer checkInRows.Close()

	checkIns := make([]CheckInRecord, 0)
	for checkInRows.Next() {
		var c CheckInRecord
		var emotions []byte
		var recordedAt time.Time
		if err := checkInRows.Scan(&c.ID, &c.UserID, &c.Need, &emotions, &c.AlignmentScore, &recordedAt); err != nil {
			return nil, nil, fmt.Errorf("scan check-in: %w", err)
		}
		if err := json.Unmarshal(emotions, &c.Emotions); err != nil {
			return nil, nil, fmt.Errorf("decode check-in emotions: %w", err)
		}
		c.RecordedAt = recordedAt.Unix()
		checkIns = append(checkIns, c)
	}
	if err := checkInRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate check-ins: %w", err)
	}

	return drafts, checkIns, nil
}
