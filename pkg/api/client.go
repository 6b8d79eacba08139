// Package api implements the HTTP client for the remote interview engine.
// Every call is scoped to a user via the X-User-ID header; interview starts
// additionally carry the selected topic in X-Topic-ID.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	headerUserID  = "X-User-ID"
	headerTopicID = "X-Topic-ID"
)

// Client talks to the interview engine.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// NewClient creates an interview API client for the given base URL
// (e.g. https://engine.example.com/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api client: empty base URL")
	}
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx response from the engine, carrying the server's
// message when one could be parsed.
type APIError struct {
	StatusCode int
	Message    string
	Details    []string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path, userID string, body any, extraHeaders map[string]string, out any) error {
	if c == nil || c.httpc == nil {
		return errors.New("api client: nil client")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "api client: marshal request body")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "api client: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "api client: %s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errBody struct {
			Message string   `json:"message"`
			Details []string `json:"details"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Message != "" {
			apiErr.Message = errBody.Message
			apiErr.Details = errBody.Details
		}
		log.Warn().Int("status", resp.StatusCode).Str("path", path).Str("message", apiErr.Message).Msg("interview API call failed")
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "api client: decode %s response", path)
	}
	return nil
}

// ListTopics returns the topics available to the user.
func (c *Client) ListTopics(ctx context.Context, userID string) ([]Topic, error) {
	var topics []Topic
	if err := c.do(ctx, http.MethodGet, "/topics", userID, nil, nil, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// CreateTopic adds a topic for the user.
func (c *Client) CreateTopic(ctx context.Context, userID string, req TopicCreateRequest) (*Topic, error) {
	var topic Topic
	if err := c.do(ctx, http.MethodPost, "/topics", userID, req, nil, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// ListQuestions fetches the question pool, optionally narrowed to a topic
// and tag set.
func (c *Client) ListQuestions(ctx context.Context, userID, topicID string, tags []string) ([]Question, error) {
	params := url.Values{}
	if topicID != "" {
		params.Set("topic_id", topicID)
	}
	if len(tags) > 0 {
		params.Set("tags", strings.Join(tags, ","))
	}
	path := "/questions"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var questions []Question
	if err := c.do(ctx, http.MethodGet, path, userID, nil, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetQuestion fetches one question by id.
func (c *Client) GetQuestion(ctx context.Context, userID, questionID string) (*Question, error) {
	var q Question
	if err := c.do(ctx, http.MethodGet, "/questions/"+url.PathEscape(questionID), userID, nil, nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuestion adds a question to a topic's pool.
func (c *Client) CreateQuestion(ctx context.Context, userID string, req QuestionCreateRequest) (*Question, error) {
	var q Question
	if err := c.do(ctx, http.MethodPost, "/questions", userID, req, nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion updates an existing question.
func (c *Client) UpdateQuestion(ctx context.Context, userID, questionID string, req QuestionUpdateRequest) (*Question, error) {
	var q Question
	if err := c.do(ctx, http.MethodPut, "/questions/"+url.PathEscape(questionID), userID, req, nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// DeleteQuestion removes a question.
func (c *Client) DeleteQuestion(ctx context.Context, userID, questionID string) error {
	return c.do(ctx, http.MethodDelete, "/questions/"+url.PathEscape(questionID), userID, nil, nil, nil)
}

// StartInterview opens a new session for the topic and returns the session
// id together with the interviewer's opening question.
func (c *Client) StartInterview(ctx context.Context, userID, topicID string) (*StartResponse, error) {
	var start StartResponse
	headers := map[string]string{headerTopicID: topicID}
	if err := c.do(ctx, http.MethodPost, "/interview/start", userID, nil, headers, &start); err != nil {
		return nil, err
	}
	return &start, nil
}

// SubmitAnswer sends the candidate's answer and returns the interviewer's
// reply, including the session-ended flag and the final summary when the
// engine decides the interview is over.
func (c *Client) SubmitAnswer(ctx context.Context, userID, sessionID, text string) (*SubmitResponse, error) {
	var reply SubmitResponse
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, "/interview/"+url.PathEscape(sessionID), userID, body, nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// EndInterview closes the session and returns the engine's summary.
func (c *Client) EndInterview(ctx context.Context, userID, sessionID string) (*Summary, error) {
	var resp struct {
		Summary *Summary `json:"summary"`
	}
	if err := c.do(ctx, http.MethodPost, "/interview/end/"+url.PathEscape(sessionID), userID, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Summary, nil
}

// StoreSummary persists a computed summary to the engine's analytics store.
func (c *Client) StoreSummary(ctx context.Context, userID, sessionID string, summary *Summary) error {
	return c.do(ctx, http.MethodPost, "/interview-sessions/"+url.PathEscape(sessionID)+"/summary", userID, summary, nil, nil)
}

// ListSessions returns past interview sessions. The endpoint historically
// answered with either a bare array or a paginated object; both are accepted.
func (c *Client) ListSessions(ctx context.Context, userID string, filters SessionFilters) (*SessionListing, error) {
	params := url.Values{}
	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(filters.Offset))
	if filters.SortBy != "" {
		params.Set("sort_by", filters.SortBy)
	}
	if filters.SortOrder != "" {
		params.Set("sort_order", filters.SortOrder)
	}
	if filters.Status != "" {
		params.Set("status", filters.Status)
	}
	if filters.TopicID != "" {
		params.Set("topic_id", filters.TopicID)
	}
	if filters.DateFrom != "" {
		params.Set("date_from", filters.DateFrom)
	}
	if filters.DateTo != "" {
		params.Set("date_to", filters.DateTo)
	}
	if filters.Search != "" {
		params.Set("search", filters.Search)
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/interview-sessions?"+params.Encode(), userID, nil, nil, &raw); err != nil {
		return nil, err
	}
	listing := &SessionListing{}
	if err := json.Unmarshal(raw, listing); err == nil && listing.Sessions != nil {
		return listing, nil
	}
	var sessions []SessionRecord
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, errors.Wrap(err, "api client: decode session listing")
	}
	return &SessionListing{Sessions: sessions}, nil
}

// GetSession returns one past session with its full conversation.
func (c *Client) GetSession(ctx context.Context, userID, sessionID string) (*SessionDetail, error) {
	var detail SessionDetail
	if err := c.do(ctx, http.MethodGet, "/interview-sessions/"+url.PathEscape(sessionID), userID, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
