package responses

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrScoreOutOfRange = errors.New("score out of range")
)

// QuestionSet reports which question ids exist.
type QuestionSet interface {
	Has(id int) bool
}

// Rules validate an answer against the question set and the Likert range.
type Rules struct {
	Questions QuestionSet
	ScoreMin  int
	ScoreMax  int
}

// Check validates one answer.
func (r Rules) Check(questionID, score int) error {
	if r.Questions != nil && !r.Questions.Has(questionID) {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}
	if score < r.ScoreMin || score > r.ScoreMax {
		return fmt.Errorf("%w: %d not in %d..%d", ErrScoreOutOfRange, score, r.ScoreMin, r.ScoreMax)
	}
	return nil
}
