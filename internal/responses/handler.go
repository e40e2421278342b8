package responses

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/internal/realtime"
	"github.com/moodquiz/backend/pkg/response"
)

// SubmitRequest is the body for POST /api/responses.
type SubmitRequest struct {
	UserID     int64      `json:"user_id" binding:"required"`
	QuestionID int        `json:"question_id" binding:"required"`
	Score      *int       `json:"score" binding:"required"`
	Timestamp  *time.Time `json:"timestamp"`
}

// Store persists and reads responses.
type Store interface {
	Create(ctx context.Context, userID int64, questionID, score int, ts *time.Time) (models.Response, error)
	ListAll(ctx context.Context) ([]models.ResponseRow, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Response, error)
}

// Notifier pushes dashboard feed events.
type Notifier interface {
	Publish(event string, payload any)
}

// Handler handles response HTTP endpoints.
type Handler struct {
	store    Store
	rules    Rules
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a responses handler. notifier may be nil.
func NewHandler(store Store, rules Rules, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, rules: rules, notifier: notifier, logger: logger}
}

// Submit handles POST /api/responses.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.rules.Check(req.QuestionID, *req.Score); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.store.Create(c.Request.Context(), req.UserID, req.QuestionID, *req.Score, req.Timestamp)
	if err != nil {
		h.logger.Error("submit response failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		response.Internal(c, "failed to save response")
		return
	}
	if h.notifier != nil {
		h.notifier.Publish(realtime.EventResponseSubmitted, resp)
	}
	response.Created(c, resp)
}

// ListAll handles GET /api/responses (admin).
func (h *Handler) ListAll(c *gin.Context) {
	rows, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list responses failed", zap.Error(err))
		response.Internal(c, "failed to list responses")
		return
	}
	response.OK(c, rows)
}

// ListByUser handles GET /api/responses/user/:id.
func (h *Handler) ListByUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		response.BadRequest(c, "invalid user id")
		return
	}
	rows, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list user responses failed", zap.Int64("user_id", userID), zap.Error(err))
		response.Internal(c, "failed to list responses")
		return
	}
	response.OK(c, rows)
}
