package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodquiz/backend/pkg/utils"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate("admin", RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "admin", claims.Subject)
	assert.NoError(t, svc.ValidateAdmin(token))

	_, err = NewJWTService("other", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate("admin", RoleAdmin)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAdminRejectsOtherRoles(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate("kiosk", "viewer")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ValidateAdmin(token), ErrInvalidToken)
}

func TestAdminLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := utils.HashPassword("sunshine")
	require.NoError(t, err)
	svc := NewJWTService("secret", 1)
	h := NewHandler(hash, svc, nil)
	r := gin.New()
	r.POST("/api/admin/login", h.AdminLogin)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"password":"sunshine"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Success bool          `json:"success"`
		Data    TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.NoError(t, svc.ValidateAdmin(out.Data.Token))

	assert.Equal(t, http.StatusUnauthorized, post(`{"password":"rain"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
}
