package users

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/internal/realtime"
	"github.com/moodquiz/backend/pkg/response"
)

// CreateRequest is the body for POST /api/users.
type CreateRequest struct {
	Name   string `json:"name" binding:"required,max=100"`
	Avatar string `json:"avatar" binding:"max=500"`
	Grade  string `json:"grade" binding:"max=50"`
	Gender string `json:"gender" binding:"max=50"`
}

// Store persists users.
type Store interface {
	Create(ctx context.Context, in models.NewUser) (models.User, error)
}

// Notifier pushes dashboard feed events.
type Notifier interface {
	Publish(event string, payload any)
}

// Handler handles user HTTP endpoints.
type Handler struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a users handler. notifier may be nil.
func NewHandler(store Store, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, notifier: notifier, logger: logger}
}

// Create handles POST /api/users (quiz start).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.store.Create(c.Request.Context(), models.NewUser{
		Name:   req.Name,
		Avatar: req.Avatar,
		Grade:  req.Grade,
		Gender: req.Gender,
	})
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	if h.notifier != nil {
		h.notifier.Publish(realtime.EventUserCreated, u)
	}
	response.Created(c, u)
}
