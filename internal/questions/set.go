package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/moodquiz/backend/internal/models"
)

// defaultQuestions is the built-in questionnaire used when QUESTIONS_FILE is unset.
var defaultQuestions = []models.Question{
	{ID: 1, Text: "How do you feel when you wake up in the morning?", Emoji: "🌅"},
	{ID: 2, Text: "How do you feel when you are at school?", Emoji: "🏫"},
	{ID: 3, Text: "How do you feel when you play with your friends?", Emoji: "⚽"},
	{ID: 4, Text: "How do you feel when you are with your family?", Emoji: "🏠"},
	{ID: 5, Text: "How do you feel when you go to bed?", Emoji: "🌙"},
}

// Set is the fixed, ordered question list.
type Set struct {
	items []models.Question
	ids   map[int]struct{}
}

// NewSet validates and wraps questions: ids must be positive and unique.
func NewSet(items []models.Question) (*Set, error) {
	if len(items) == 0 {
		return nil, errors.New("question set is empty")
	}
	ids := make(map[int]struct{}, len(items))
	for _, q := range items {
		if q.ID <= 0 {
			return nil, fmt.Errorf("question %q: id must be positive", q.Text)
		}
		if _, dup := ids[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		ids[q.ID] = struct{}{}
	}
	return &Set{items: append([]models.Question(nil), items...), ids: ids}, nil
}

// Default returns the built-in questionnaire.
func Default() *Set {
	s, _ := NewSet(defaultQuestions)
	return s
}

// Load reads a JSON array of questions from path, or returns Default for an empty path.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var items []models.Question
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return NewSet(items)
}

// All returns the questions in order.
func (s *Set) All() []models.Question {
	return append([]models.Question(nil), s.items...)
}

// Has reports whether id belongs to the set.
func (s *Set) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// Len is the number of questions, used for progress.
func (s *Set) Len() int {
	return len(s.items)
}
