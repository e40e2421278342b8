package questions

import (
	"github.com/gin-gonic/gin"

	"github.com/moodquiz/backend/pkg/response"
)

// Handler serves the question set.
type Handler struct {
	set *Set
}

// NewHandler creates a questions handler.
func NewHandler(set *Set) *Handler {
	return &Handler{set: set}
}

// List handles GET /api/questions.
func (h *Handler) List(c *gin.Context) {
	response.OK(c, h.set.All())
}
