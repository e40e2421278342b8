package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moodquiz/backend/pkg/response"
	"github.com/moodquiz/backend/pkg/utils"
)

// LoginRequest is the body for POST /api/admin/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries the admin JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// Handler handles the admin login endpoint.
type Handler struct {
	passwordHash string
	jwt          *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler. passwordHash is the bcrypt hash from
// ADMIN_PASSWORD_HASH.
func NewHandler(passwordHash string, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{passwordHash: passwordHash, jwt: jwt, logger: logger}
}

// Login checks the admin password.
func (h *Handler) Login(password string) (string, error) {
	if !utils.CheckPassword(password, h.passwordHash) {
		return "", ErrInvalidCredentials
	}
	return h.jwt.Generate(RoleAdmin, RoleAdmin)
}

// AdminLogin handles POST /api/admin/login.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	token, err := h.Login(req.Password)
	if err != nil {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid password")
		return
	}
	response.OK(c, TokenResponse{Token: token})
}
