package batch

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/internal/realtime"
	"github.com/moodquiz/backend/internal/responses"
	"github.com/moodquiz/backend/pkg/response"
)

// Notifier pushes dashboard feed events.
type Notifier interface {
	Publish(event string, payload any)
}

// Handler handles POST /api/sync.
type Handler struct {
	runner   Runner
	rules    responses.Rules
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a batch sync handler. notifier may be nil.
func NewHandler(runner Runner, rules responses.Rules, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, rules: rules, notifier: notifier, logger: logger}
}

// Sync handles POST /api/sync.
func (h *Handler) Sync(c *gin.Context) {
	var req models.SyncBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := Apply(c.Request.Context(), h.runner, h.rules, req)
	if err != nil {
		if errors.Is(err, responses.ErrUnknownQuestion) || errors.Is(err, responses.ErrScoreOutOfRange) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("batch sync failed", zap.Int("users", len(req.Users)), zap.Int("responses", len(req.Responses)), zap.Error(err))
		response.Internal(c, "sync failed")
		return
	}
	h.logger.Info("batch sync applied", zap.Int("synced_users", res.SyncedUsers), zap.Int("synced_responses", res.SyncedResponses))
	if h.notifier != nil {
		h.notifier.Publish(realtime.EventSyncCompleted, res)
	}
	response.OK(c, res)
}
