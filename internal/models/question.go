package models

// Question is one item of the fixed mood questionnaire.
type Question struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Emoji string `json:"emoji,omitempty"`
}
