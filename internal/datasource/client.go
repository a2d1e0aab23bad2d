// Package datasource is the HTTP client for the learning backend's review API.
package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listening-review/internal/models"
)

const (
	pathProfile         = "/api/user/profile"
	pathWrongQuestions  = "/api/review/wrong-questions"
	pathLearningHistory = "/api/review/learning-history"
	pathAnswerHistory   = "/api/review/answer-history"
	pathQuestion        = "/api/review/question/%d"
	pathStartReview     = "/api/review/start"
	pathSaveResult      = "/api/review/save-result"

	maxBodyBytes = 4 << 20
)

type cookieKey struct{}

// WithCookies attaches the browser's Cookie header so the backend sees the
// learner's session.
func WithCookies(ctx context.Context, cookieHeader string) context.Context {
	return context.WithValue(ctx, cookieKey{}, cookieHeader)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

func (c *Client) LoadProfile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, "load profile", http.MethodGet, pathProfile, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) LoadWrongQuestions(ctx context.Context) ([]models.WrongQuestion, error) {
	var list []models.WrongQuestion
	if err := c.do(ctx, "load wrong questions", http.MethodGet, pathWrongQuestions, nil, &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

func (c *Client) LoadLearningHistory(ctx context.Context) ([]models.LearningHistoryEntry, error) {
	var list []models.LearningHistoryEntry
	if err := c.do(ctx, "load learning history", http.MethodGet, pathLearningHistory, nil, &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

func (c *Client) LoadAnswerHistory(ctx context.Context) ([]models.AnswerHistoryEntry, error) {
	var list []models.AnswerHistoryEntry
	if err := c.do(ctx, "load answer history", http.MethodGet, pathAnswerHistory, nil, &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

func (c *Client) LoadQuestion(ctx context.Context, id int64) (*models.QuestionDetail, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	var q models.QuestionDetail
	if err := c.do(ctx, "load question", http.MethodGet, fmt.Sprintf(pathQuestion, id), nil, &q); err != nil {
		return nil, err
	}
	q.Normalize()
	return &q, nil
}

// StartReview registers a review attempt and returns the page to navigate to.
func (c *Client) StartReview(ctx context.Context, id int64) (string, error) {
	if id <= 0 {
		return "", ErrInvalidID
	}
	var resp models.StartReviewResponse
	req := models.StartReviewRequest{QuestionID: id}
	if err := c.do(ctx, "start review", http.MethodPost, pathStartReview, req, &resp); err != nil {
		return "", err
	}
	return fmt.Sprintf("/review/%d", id), nil
}

func (c *Client) SaveReviewResult(ctx context.Context, result models.ReviewResult) error {
	if result.QuestionID <= 0 {
		return ErrInvalidID
	}
	var resp models.StartReviewResponse
	return c.do(ctx, "save review result", http.MethodPost, pathSaveResult, result, &resp)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookies, ok := ctx.Value(cookieKey{}).(string); ok && cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Kind: NetworkFailure, Op: op, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &FetchError{Kind: NetworkFailure, Op: op, Status: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := apiErrorMessage(raw)
		return &FetchError{Kind: HTTPFailure, Op: op, Status: resp.StatusCode, Message: msg}
	}

	if msg, ok := apiErrorMessage(raw); ok {
		return &FetchError{Kind: APIFailure, Op: op, Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &FetchError{Kind: ParseFailure, Op: op, Status: resp.StatusCode, Cause: err}
	}
	return nil
}

// apiErrorMessage extracts the error field of an object body. The backend
// sends either {"error": "msg"} or {"error": {"message": "msg"}}.
func apiErrorMessage(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return "", false
	}
	switch string(envelope.Error) {
	case "", "null", "false", "0", `""`:
		return "", false
	}

	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		return text, true
	}
	var detail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil && detail.Message != "" {
		return detail.Message, true
	}
	return string(envelope.Error), true
}
