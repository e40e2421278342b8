package models

import "time"

// SyncUser is a locally created user uploaded in a batch sync.
type SyncUser struct {
	ID     int64  `json:"id" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Avatar string `json:"avatar"`
	Grade  string `json:"grade"`
	Gender string `json:"gender"`
}

// SyncResponse is a locally recorded response uploaded in a batch sync.
// UserID refers to a SyncUser.ID from the same batch or to a server id.
type SyncResponse struct {
	UserID     int64     `json:"user_id" binding:"required"`
	QuestionID int       `json:"question_id" binding:"required"`
	Score      int       `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

// SyncBatch is the body of POST /api/sync.
type SyncBatch struct {
	Users     []SyncUser     `json:"users" binding:"dive"`
	Responses []SyncResponse `json:"responses" binding:"dive"`
}

// SyncResult reports how many records were uploaded. Rejected counts are
// records set aside on the client because the server would never accept them.
type SyncResult struct {
	SyncedUsers       int              `json:"synced_users"`
	SyncedResponses   int              `json:"synced_responses"`
	RejectedUsers     int              `json:"rejected_users,omitempty"`
	RejectedResponses int              `json:"rejected_responses,omitempty"`
	UserIDs           map[string]int64 `json:"user_ids,omitempty"`
}
