// Package aggregate turns a raw response stream into one summary per user.
package aggregate

import (
	"github.com/moodquiz/backend/internal/models"
)

// Summarize folds rows into one StudentSummary per user id.
//
// Rows must arrive newest-first: the first row seen for a (user, question)
// pair is taken as that user's current answer and later rows for the same
// pair are skipped. LastActive is the maximum timestamp seen for the user
// regardless of row order. Output order is the order in which each user id
// first appears.
func Summarize(rows []models.ResponseRow) []models.StudentSummary {
	index := make(map[models.ID]int)
	out := make([]models.StudentSummary, 0)
	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			out = append(out, models.StudentSummary{
				UserID:     row.UserID,
				Name:       row.Name,
				Avatar:     row.Avatar,
				Grade:      row.Grade,
				Gender:     row.Gender,
				Answers:    make(map[int]int),
				LastActive: row.Timestamp,
			})
			i = len(out) - 1
			index[row.UserID] = i
		}
		s := &out[i]
		if _, seen := s.Answers[row.QuestionID]; !seen {
			s.Answers[row.QuestionID] = row.Score
		}
		if row.Timestamp.After(s.LastActive) {
			s.LastActive = row.Timestamp
		}
	}
	return out
}
