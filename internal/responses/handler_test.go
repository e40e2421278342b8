package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/internal/questions"
)

type stubStore struct {
	created []models.Response
	stamps  []*time.Time
	rows    []models.ResponseRow
	byUser  map[int64][]models.Response
}

func (s *stubStore) Create(_ context.Context, userID int64, questionID, score int, ts *time.Time) (models.Response, error) {
	r := models.Response{ID: models.RemoteID(int64(len(s.created) + 1)), UserID: models.RemoteID(userID), QuestionID: questionID, Score: score}
	if ts != nil {
		r.Timestamp = *ts
	} else {
		r.Timestamp = time.Now().UTC()
	}
	s.created = append(s.created, r)
	s.stamps = append(s.stamps, ts)
	return r, nil
}

func (s *stubStore) ListAll(context.Context) ([]models.ResponseRow, error) { return s.rows, nil }

func (s *stubStore) ListByUser(_ context.Context, userID int64) ([]models.Response, error) {
	return s.byUser[userID], nil
}

func newRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, Rules{Questions: questions.Default(), ScoreMin: 1, ScoreMax: 5}, nil, nil)
	r := gin.New()
	r.POST("/api/responses", h.Submit)
	r.GET("/api/responses", h.ListAll)
	r.GET("/api/responses/user/:id", h.ListByUser)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitValidation(t *testing.T) {
	store := &stubStore{}
	r := newRouter(store)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"ok", `{"user_id":1,"question_id":2,"score":5}`, http.StatusCreated},
		{"missing score", `{"user_id":1,"question_id":2}`, http.StatusBadRequest},
		{"score too high", `{"user_id":1,"question_id":2,"score":6}`, http.StatusBadRequest},
		{"score too low", `{"user_id":1,"question_id":2,"score":0}`, http.StatusBadRequest},
		{"unknown question", `{"user_id":1,"question_id":42,"score":3}`, http.StatusBadRequest},
		{"missing user", `{"question_id":2,"score":3}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, do(r, http.MethodPost, "/api/responses", tc.body).Code)
		})
	}
	assert.Len(t, store.created, 1)
}

func TestSubmitPreservesTimestamp(t *testing.T) {
	store := &stubStore{}
	r := newRouter(store)

	w := do(r, http.MethodPost, "/api/responses", `{"user_id":3,"question_id":1,"score":4,"timestamp":"2024-02-03T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, store.stamps[0])
	assert.Equal(t, time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC), store.stamps[0].UTC())

	w = do(r, http.MethodPost, "/api/responses", `{"user_id":3,"question_id":1,"score":4}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, store.stamps[1])
}

func TestListEndpoints(t *testing.T) {
	store := &stubStore{
		rows: []models.ResponseRow{{UserID: models.RemoteID(1), Name: "Ana", QuestionID: 1, Score: 5}},
		byUser: map[int64][]models.Response{
			1: {{UserID: models.RemoteID(1), QuestionID: 1}, {UserID: models.RemoteID(1), QuestionID: 2}},
		},
	}
	r := newRouter(store)

	w := do(r, http.MethodGet, "/api/responses", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Data []models.ResponseRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all.Data, 1)
	assert.Equal(t, "Ana", all.Data[0].Name)

	w = do(r, http.MethodGet, "/api/responses/user/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Data []models.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine.Data, 2)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/responses/user/abc", "").Code)
}

func TestRulesCheck(t *testing.T) {
	rules := Rules{Questions: questions.Default(), ScoreMin: 1, ScoreMax: 5}
	assert.NoError(t, rules.Check(1, 1))
	assert.ErrorIs(t, rules.Check(1, 9), ErrScoreOutOfRange)
	assert.ErrorIs(t, rules.Check(77, 3), ErrUnknownQuestion)
}
