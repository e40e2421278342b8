package models

import (
	"fmt"
	"time"
)

// StudentSummary is one user's aggregated view: the current score per question
// and the latest activity time.
type StudentSummary struct {
	UserID     ID          `json:"user_id"`
	Name       string      `json:"name"`
	Avatar     string      `json:"avatar"`
	Grade      string      `json:"grade"`
	Gender     string      `json:"gender"`
	Answers    map[int]int `json:"answers"`
	LastActive time.Time   `json:"last_active"`
}

// TotalScore sums the recorded per-question scores.
func (s StudentSummary) TotalScore() int {
	total := 0
	for _, v := range s.Answers {
		total += v
	}
	return total
}

// AnsweredCount is the number of distinct questions answered.
func (s StudentSummary) AnsweredCount() int {
	return len(s.Answers)
}

// Progress renders answered/total, e.g. "2/3".
func (s StudentSummary) Progress(questionCount int) string {
	return fmt.Sprintf("%d/%d", s.AnsweredCount(), questionCount)
}
