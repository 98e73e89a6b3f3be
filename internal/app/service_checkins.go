package app

import (
	"context"
	"errors"
	"strings"

	"ipurpose/api/internal/clarity"
	"ipurpose/api/internal/entitlement"
	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/logger"
	"ipurpose/api/internal/practice"
	"ipurpose/api/internal/search"
	"ipurpose/api/internal/store"
)

const checkInTypeDaily = "daily"

type CheckInInput struct {
	Emotions       []string `json:"emotions"`
	AlignmentScore *int     `json:"alignmentScore"`
	Need           string   `json:"need"`
	Type           string   `json:"type"`
}

var canonicalEmotions = func() map[string]string {
	out := make(map[string]string, len(forms.Emotions))
	for _, e := range forms.Emotions {
		out[strings.ToLower(e)] = e
	}
	return out
}()

// normalizeEmotions maps emotions to their catalogue spelling and drops
// duplicates, keeping first-seen order.
func normalizeEmotions(values []string) ([]string, []string) {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	var unknown []string
	for _, value := range values {
		canonical, ok := canonicalEmotions[strings.ToLower(strings.TrimSpace(value))]
		if !ok {
			unknown = append(unknown, value)
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out, unknown
}

func checkInPayload(c store.CheckIn) map[string]any {
	score := c.AlignmentScore
	suggestions := practice.Suggest(c.Emotions, &score)
	return map[string]any{
		"id":             c.ID,
		"emotions":       c.Emotions,
		"alignmentScore": c.AlignmentScore,
		"need":           c.Need,
		"type":           c.Type,
		"recordedAt":     c.RecordedAt,
		"suggestions":    suggestions,
		"practice":       practice.Recommend(suggestions),
	}
}

// SubmitCheckIn records a new check-in. Every call appends a record.
func (s *Service) SubmitCheckIn(ctx context.Context, session Session, input CheckInInput) (map[string]any, error) {
	if err := requireAction(session, entitlement.ActionCheckIn); err != nil {
		return nil, err
	}
	if input.AlignmentScore == nil || !practice.ValidScore(*input.AlignmentScore) {
		return nil, validationError("alignmentScore must be between 1 and 10", nil)
	}
	if input.Type != checkInTypeDaily {
		return nil, validationError("type must be daily", nil)
	}
	emotions, unknown := normalizeEmotions(input.Emotions)
	if len(unknown) > 0 {
		return nil, validationError("Unknown emotions", map[string]any{"emotions": unknown})
	}

	record, err := s.store.InsertCheckIn(ctx, store.CheckIn{
		UserID:         session.UserID,
		Emotions:       emotions,
		AlignmentScore: *input.AlignmentScore,
		Need:           strings.TrimSpace(input.Need),
		Type:           checkInTypeDaily,
	})
	if err != nil {
		logger.Error("insert check-in", "userId", session.UserID, "err", err)
		return nil, storageUnavailable()
	}
	if s.search != nil {
		s.search.IndexCheckIn(record)
	}
	return map[string]any{"checkIn": checkInPayload(record)}, nil
}

func (s *Service) ListCheckIns(ctx context.Context, session Session, limit int) (map[string]any, error) {
	records, err := s.store.ListCheckIns(ctx, session.UserID, limit)
	if err != nil {
		logger.Error("list check-ins", "userId", session.UserID, "err", err)
		return nil, storageUnavailable()
	}
	items := make([]map[string]any, 0, len(records))
	for _, record := range records {
		items = append(items, checkInPayload(record))
	}
	return map[string]any{"checkIns": items}, nil
}

// SuggestPractices previews suggestions without recording anything.
func (s *Service) SuggestPractices(emotions []string, score *int) (map[string]any, error) {
	if score != nil && !practice.ValidScore(*score) {
		return nil, validationError("score must be between 1 and 10", nil)
	}
	normalized, unknown := normalizeEmotions(emotions)
	if len(unknown) > 0 {
		return nil, validationError("Unknown emotions", map[string]any{"emotions": unknown})
	}
	suggestions := practice.Suggest(normalized, score)
	return map[string]any{
		"suggestions": suggestions,
		"practice":    practice.Recommend(suggestions),
	}, nil
}

type ClarityInput struct {
	Answers []int    `json:"answers"`
	Choices []string `json:"choices"`
}

func clarityPayload(record store.ClarityResult) map[string]any {
	var answers [clarity.AnswerCount]int
	copy(answers[:], record.Answers)
	return map[string]any{
		"id":           record.ID,
		"answers":      record.Answers,
		"choices":      record.Choices,
		"scores":       clarity.DimensionScores(answers),
		"identityType": record.IdentityType,
		"recordedAt":   record.RecordedAt,
	}
}

func (s *Service) SubmitClarity(ctx context.Context, session Session, input ClarityInput) (map[string]any, error) {
	if err := requireAction(session, entitlement.ActionClarity); err != nil {
		return nil, err
	}
	result, err := clarity.Score(input.Answers, input.Choices)
	if err != nil {
		var invalid *clarity.ValidationError
		if errors.As(err, &invalid) {
			return nil, validationError("Invalid clarity check", map[string]any{"problems": invalid.Problems})
		}
		return nil, validationError(err.Error(), nil)
	}

	byDimension := make(map[string]int, len(result.Scores.Dimensions))
	for dim, score := range result.Scores.ByDimension() {
		byDimension[string(dim)] = score
	}
	record, err := s.store.InsertClarityResult(ctx, store.ClarityResult{
		UserID:          session.UserID,
		Answers:         result.Answers[:],
		Choices:         result.Choices[:],
		DimensionScores: byDimension,
		Total:           result.Scores.Total,
		IdentityType:    string(result.Identity),
	})
	if err != nil {
		logger.Error("insert clarity result", "userId", session.UserID, "err", err)
		return nil, storageUnavailable()
	}
	return map[string]any{"result": clarityPayload(record)}, nil
}

func (s *Service) LatestClarity(ctx context.Context, session Session) (map[string]any, error) {
	record, err := s.store.LatestClarityResult(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("No clarity check yet")
	}
	if err != nil {
		logger.Error("latest clarity result", "userId", session.UserID, "err", err)
		return nil, storageUnavailable()
	}
	return map[string]any{"result": clarityPayload(record)}, nil
}

func (s *Service) Search(ctx context.Context, session Session, text, filterType string, limit, offset int) (search.Response, error) {
	if err := requireAction(session, entitlement.ActionSearch); err != nil {
		return search.Response{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return search.Response{}, validationError("q is required", nil)
	}
	rtyp := search.ResultType(strings.TrimSpace(filterType))
	if rtyp != "" && rtyp != search.ResultDraft && rtyp != search.ResultCheckIn {
		return search.Response{}, validationError("type must be draft or checkin", nil)
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(ctx, search.Query{
		UserID:     session.UserID,
		Text:       text,
		FilterType: rtyp,
		Limit:      limit,
		Offset:     offset,
	}), nil
}
