package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", 2*time.Second, zerolog.Nop())
}

func TestClient_Register(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/students", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reg model.StudentRegistration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, "Asha", reg.Name)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Student{ID: "s-1", Name: reg.Name, ClassName: reg.ClassName, Section: reg.Section, RollNumber: reg.RollNumber, RegisteredAt: "2024-05-01T10:00:00"})
	})

	s, err := c.Register(context.Background(), model.StudentRegistration{Name: "Asha", ClassName: "V", Section: "A", RollNumber: "12"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, "12", s.RollNumber)
}

func TestClient_ErrorMessageCarriesStatusTextAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "roll number already registered", http.StatusConflict)
	})

	_, err := c.Register(context.Background(), model.StudentRegistration{Name: "Asha"})
	require.Error(t, err)
	assert.Equal(t, "API Error: Conflict - roll number already registered", err.Error())
	assert.True(t, IsStatus(err, http.StatusConflict))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_FetchQuestionsEscapesClass(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/questions/VIII", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]model.Question{
			{ID: "1", Question: "?", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 2},
		})
	})

	qs, err := c.FetchQuestions(context.Background(), "VIII")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, 2, qs[0].CorrectAnswerIndex)
}

func TestClient_ManagedQuestionsUsesManagePath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/questions/manage/V", r.URL.Path)
		_, _ = io.WriteString(w, `[]`)
	})

	qs, err := c.ManagedQuestions(context.Background(), "V")
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestClient_SaveQuestionsNullsPlaceholderIDs(t *testing.T) {
	var got []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/questions/V", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.SaveQuestions(context.Background(), "V", []model.Question{
		{ID: "abc123", Question: "Kept?", Options: []string{"a", "b", "c", "d"}},
		{ID: "q-1700000000000", Question: "New?", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 1},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "abc123", got[0]["id"])
	id, present := got[1]["id"]
	assert.True(t, present)
	assert.Nil(t, id)
	assert.EqualValues(t, 1, got[1]["correctAnswerIndex"])
}

func TestClient_SubmitSendsAnswersWithNulls(t *testing.T) {
	var raw map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/results", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(model.ExamResult{ID: "r-1", Score: 1, TotalQuestions: 2, Status: model.ResultStatusFail})
	})

	one := 1
	res, err := c.Submit(context.Background(), model.Submission{
		Student:   model.Student{ID: "s-1"},
		Questions: []model.Question{{ID: "1"}, {ID: "2"}},
		Answers:   []*int{&one, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", res.ID)
	assert.JSONEq(t, `[1, null]`, string(raw["answers"]))
	assert.Contains(t, raw, "student")
	assert.Contains(t, raw, "questions")
}

func TestClient_EmptyBodyYieldsNoPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	})

	res, err := c.Submit(context.Background(), model.Submission{})
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = c.Register(context.Background(), model.StudentRegistration{})
	assert.Error(t, err)
}

func TestClient_ListsStudentsAndResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/students":
			_, _ = io.WriteString(w, `[{"id":"s-1","name":"Asha"},{"id":"s-2","name":"Ravi"}]`)
		case "/api/results":
			_, _ = io.WriteString(w, `[{"id":"r-1","studentName":"Asha","status":"Pass"}]`)
		default:
			http.NotFound(w, r)
		}
	})

	students, err := c.Students(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 2)

	results, err := c.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.ResultStatusPass, results[0].Status)
}

func TestClient_UnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, zerolog.Nop())
	_, err := c.Students(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
