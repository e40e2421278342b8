package models

import "time"

// Response is one answer event. A user may answer the same question more
// than once; duplicates are resolved only at aggregation time.
type Response struct {
	ID         ID        `json:"id"`
	UserID     ID        `json:"user_id"`
	QuestionID int       `json:"question_id"`
	Score      int       `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewResponse is the input for recording an answer. A zero Timestamp means "now".
type NewResponse struct {
	UserID     ID        `json:"user_id"`
	QuestionID int       `json:"question_id"`
	Score      int       `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

// ResponseRow is a response joined with the display fields of its user,
// as returned by the admin "all responses" read.
type ResponseRow struct {
	UserID     ID        `json:"user_id"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar"`
	Grade      string    `json:"grade"`
	Gender     string    `json:"gender"`
	QuestionID int       `json:"question_id"`
	Score      int       `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}
