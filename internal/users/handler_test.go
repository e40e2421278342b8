package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/internal/realtime"
)

type stubStore struct {
	err  error
	got  []models.NewUser
	next int64
}

func (s *stubStore) Create(_ context.Context, in models.NewUser) (models.User, error) {
	if s.err != nil {
		return models.User{}, s.err
	}
	s.got = append(s.got, in)
	s.next++
	return models.User{ID: models.RemoteID(s.next), Name: in.Name, Avatar: in.Avatar, Grade: in.Grade, Gender: in.Gender, CreatedAt: time.Now().UTC()}, nil
}

type recordingNotifier struct{ events []string }

func (n *recordingNotifier) Publish(event string, _ any) { n.events = append(n.events, event) }

func post(h *Handler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/users", h.Create)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateUser(t *testing.T) {
	store := &stubStore{}
	notifier := &recordingNotifier{}
	w := post(NewHandler(store, notifier, nil), `{"name":"Ana","avatar":"🐱","grade":"4","gender":"f"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var out struct {
		Success bool        `json:"success"`
		Data    models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, models.RemoteID(1), out.Data.ID)
	assert.Equal(t, "🐱", out.Data.Avatar)
	assert.Equal(t, []string{realtime.EventUserCreated}, notifier.events)
}

func TestCreateUserRequiresName(t *testing.T) {
	store := &stubStore{}
	w := post(NewHandler(store, nil, nil), `{"avatar":"🐱"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.got)
}

func TestCreateUserStoreFailure(t *testing.T) {
	w := post(NewHandler(&stubStore{err: errors.New("db down")}, nil, nil), `{"name":"Ana"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}
