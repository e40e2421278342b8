package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moodquiz/backend/internal/aggregate"
	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/pkg/response"
)

// RowLister reads the joined response rows, newest first.
type RowLister interface {
	ListAll(ctx context.Context) ([]models.ResponseRow, error)
}

// StudentView is a summary plus its derived totals.
type StudentView struct {
	models.StudentSummary
	TotalScore    int    `json:"total_score"`
	AnsweredCount int    `json:"answered_count"`
	Progress      string `json:"progress"`
}

// SummaryResponse is the JSON shape for GET /api/admin/summary.
type SummaryResponse struct {
	QuestionCount int                      `json:"question_count"`
	Students      []StudentView            `json:"students"`
	Questions     []aggregate.QuestionStat `json:"questions"`
}

// Handler serves the aggregated admin view.
type Handler struct {
	rows      RowLister
	questions []models.Question
	scoreMin  int
	scoreMax  int
	logger    *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(rows RowLister, questions []models.Question, scoreMin, scoreMax int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{rows: rows, questions: questions, scoreMin: scoreMin, scoreMax: scoreMax, logger: logger}
}

// Build aggregates rows into the summary response.
func Build(rows []models.ResponseRow, questions []models.Question, scoreMin, scoreMax int) SummaryResponse {
	summaries := aggregate.Summarize(rows)
	students := make([]StudentView, 0, len(summaries))
	for _, s := range summaries {
		students = append(students, StudentView{
			StudentSummary: s,
			TotalScore:     s.TotalScore(),
			AnsweredCount:  s.AnsweredCount(),
			Progress:       s.Progress(len(questions)),
		})
	}
	return SummaryResponse{
		QuestionCount: len(questions),
		Students:      students,
		Questions:     aggregate.QuestionStats(summaries, questions, scoreMin, scoreMax),
	}
}

// Summary handles GET /api/admin/summary.
func (h *Handler) Summary(c *gin.Context) {
	rows, err := h.rows.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("load responses for summary failed", zap.Error(err))
		response.Internal(c, "failed to load responses")
		return
	}
	response.OK(c, Build(rows, h.questions, h.scoreMin, h.scoreMax))
}
