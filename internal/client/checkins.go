package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ipurpose/api/internal/clarity"
	"ipurpose/api/internal/practice"
	"ipurpose/api/internal/search"
)

type CheckInRequest struct {
	Emotions       []string `json:"emotions"`
	AlignmentScore int      `json:"alignmentScore"`
	Need           string   `json:"need"`
	Type           string   `json:"type"`
}

type CheckIn struct {
	ID             string              `json:"id"`
	Emotions       []string            `json:"emotions"`
	AlignmentScore int                 `json:"alignmentScore"`
	Need           string              `json:"need"`
	Type           string              `json:"type"`
	RecordedAt     time.Time           `json:"recordedAt"`
	Suggestions    []practice.Category `json:"suggestions"`
	Practice       practice.Content    `json:"practice"`
}

type Suggestions struct {
	Suggestions []practice.Category `json:"suggestions"`
	Practice    practice.Content    `json:"practice"`
}

type ClarityResult struct {
	ID           string         `json:"id"`
	Answers      []int          `json:"answers"`
	Choices      []string       `json:"choices"`
	Scores       clarity.Scores `json:"scores"`
	IdentityType string         `json:"identityType"`
	RecordedAt   time.Time      `json:"recordedAt"`
}

// SubmitCheckIn records a daily check-in; Type defaults to "daily".
func (c *Client) SubmitCheckIn(ctx context.Context, req CheckInRequest) (CheckIn, error) {
	if req.Type == "" {
		req.Type = "daily"
	}
	var out struct {
		CheckIn CheckIn `json:"checkIn"`
	}
	err := c.do(ctx, http.MethodPost, "/api/checkins", req, &out)
	return out.CheckIn, err
}

func (c *Client) ListCheckIns(ctx context.Context, limit int) ([]CheckIn, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		CheckIns []CheckIn `json:"checkIns"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("/api/checkins", values), nil, &out)
	return out.CheckIns, err
}

func (c *Client) SuggestPractices(ctx context.Context, emotions []string, score *int) (Suggestions, error) {
	values := url.Values{}
	if len(emotions) > 0 {
		values.Set("emotions", strings.Join(emotions, ","))
	}
	if score != nil {
		values.Set("score", strconv.Itoa(*score))
	}
	var out Suggestions
	err := c.do(ctx, http.MethodGet, withQuery("/api/practices/suggest", values), nil, &out)
	return out, err
}

func (c *Client) ClarityQuestions(ctx context.Context) (clarity.Questionnaire, error) {
	var out clarity.Questionnaire
	err := c.do(ctx, http.MethodGet, "/api/clarity-check/questions", nil, &out)
	return out, err
}

func (c *Client) SubmitClarity(ctx context.Context, answers []int, choices []string) (ClarityResult, error) {
	var out struct {
		Result ClarityResult `json:"result"`
	}
	err := c.do(ctx, http.MethodPost, "/api/clarity-check", map[string]any{
		"answers": answers,
		"choices": choices,
	}, &out)
	return out.Result, err
}

func (c *Client) LatestClarity(ctx context.Context) (ClarityResult, error) {
	var out struct {
		Result ClarityResult `json:"result"`
	}
	err := c.do(ctx, http.MethodGet, "/api/clarity-check", nil, &out)
	return out.Result, err
}

func (c *Client) Search(ctx context.Context, text, resultType string, limit int) (search.Response, error) {
	values := url.Values{}
	values.Set("q", text)
	if resultType != "" {
		values.Set("type", resultType)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var out search.Response
	err := c.do(ctx, http.MethodGet, withQuery("/api/search", values), nil, &out)
	return out, err
}
