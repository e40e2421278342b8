package questions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodquiz/backend/internal/models"
)

func TestLoadDefault(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(99))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":10,"text":"a"},{"id":20,"text":"b"},{"id":30,"text":"c"}]`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 20, s.All()[1].ID)
}

func TestNewSetRejectsBadIDs(t *testing.T) {
	_, err := NewSet([]models.Question{{ID: 1}, {ID: 1}})
	assert.Error(t, err)
	_, err = NewSet([]models.Question{{ID: 0}})
	assert.Error(t, err)
	_, err = NewSet(nil)
	assert.Error(t, err)
}

func TestListHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/questions", NewHandler(Default()).List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/questions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data []models.Question `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out.Data, 5)
	assert.Equal(t, 1, out.Data[0].ID)
}
