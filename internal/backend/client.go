// Package backend is the HTTP client for the REST backend that owns students,
// questions and results.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
)

// maxErrorBody caps how much of an error response is copied into APIError.
const maxErrorBody = 4 << 10

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: %s - %s", e.Status, e.Body)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client talks JSON over HTTP to the backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for baseURL (for example http://localhost:8080/api).
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "backend_client").Logger(),
	}
}

// ----------------------------------------------------------------
// Students
// ----------------------------------------------------------------

// Register creates the student identity record.
func (c *Client) Register(ctx context.Context, reg model.StudentRegistration) (*model.Student, error) {
	var student model.Student
	found, err := c.do(ctx, "register", http.MethodPost, "/students", reg, &student)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("backend returned no student record")
	}
	return &student, nil
}

// Students lists every registered student.
func (c *Client) Students(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	if _, err := c.do(ctx, "list_students", http.MethodGet, "/students", nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// ----------------------------------------------------------------
// Questions
// ----------------------------------------------------------------

// FetchQuestions returns the exam-taking question set for a class. The
// backend may shuffle it per request; callers keep the order they receive.
func (c *Client) FetchQuestions(ctx context.Context, className string) ([]model.Question, error) {
	var questions []model.Question
	if _, err := c.do(ctx, "fetch_questions", http.MethodGet, "/questions/"+url.PathEscape(className), nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ManagedQuestions returns the unshuffled authoring view of a class's questions.
func (c *Client) ManagedQuestions(ctx context.Context, className string) ([]model.Question, error) {
	var questions []model.Question
	if _, err := c.do(ctx, "managed_questions", http.MethodGet, "/questions/manage/"+url.PathEscape(className), nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

type savedQuestion struct {
	ID                 *string  `json:"id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// SaveQuestions replaces the full question list of a class. Locally minted
// placeholder ids are sent as null so the backend assigns canonical ones.
func (c *Client) SaveQuestions(ctx context.Context, className string, questions []model.Question) error {
	payload := make([]savedQuestion, len(questions))
	for i, q := range questions {
		sq := savedQuestion{Question: q.Question, Options: q.Options, CorrectAnswerIndex: q.CorrectAnswerIndex}
		if !q.IsPlaceholder() {
			id := q.ID
			sq.ID = &id
		}
		payload[i] = sq
	}
	_, err := c.do(ctx, "save_questions", http.MethodPost, "/questions/"+url.PathEscape(className), payload, nil)
	return err
}

// ----------------------------------------------------------------
// Results
// ----------------------------------------------------------------

// Submit sends the student, the questions and the raw answers for scoring.
func (c *Client) Submit(ctx context.Context, sub model.Submission) (*model.ExamResult, error) {
	var result model.ExamResult
	found, err := c.do(ctx, "submit_result", http.MethodPost, "/results", sub, &result)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &result, nil
}

// Results lists every scored submission.
func (c *Client) Results(ctx context.Context) ([]model.ExamResult, error) {
	var results []model.ExamResult
	if _, err := c.do(ctx, "list_results", http.MethodGet, "/results", nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ----------------------------------------------------------------
// Transport
// ----------------------------------------------------------------

// do performs one JSON round trip. It reports whether a body was decoded into
// out; 204 responses and empty bodies decode nothing.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (found bool, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveBackend(op, time.Since(start).Seconds(), err)
	}()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return false, fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("Backend unreachable")
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       strings.TrimSpace(string(raw)),
		}
		c.log.Warn().Int("status", resp.StatusCode).Str("op", op).Msg("Backend returned an error")
		return false, apiErr
	}

	if resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		return false, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read %s response: %w", op, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || out == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", op, err)
	}
	return true, nil
}
