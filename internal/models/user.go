package models

import "time"

// User is a quiz taker, created once at quiz start and never mutated.
type User struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"` // emoji glyph or image reference
	Grade     string    `json:"grade"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser is the input for creating a user.
type NewUser struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Grade  string `json:"grade"`
	Gender string `json:"gender"`
}

// Placeholder display fields for rows whose user cannot be resolved.
const (
	UnknownName   = "Unknown"
	UnknownAvatar = "❓"
	UnknownGrade  = "-"
	UnknownGender = "-"
)
