package aggregate

import "github.com/moodquiz/backend/internal/models"

// QuestionStat is the distribution of current answers for one question.
type QuestionStat struct {
	QuestionID int     `json:"question_id"`
	Text       string  `json:"text"`
	Histogram  []int   `json:"histogram"` // index 0 = scoreMin
	Total      int     `json:"total"`
	Mean       float64 `json:"mean"`
}

// QuestionStats builds a histogram per question over the summaries' current
// answers. Scores outside [scoreMin, scoreMax] are ignored.
func QuestionStats(summaries []models.StudentSummary, questions []models.Question, scoreMin, scoreMax int) []QuestionStat {
	width := scoreMax - scoreMin + 1
	if width < 1 {
		width = 1
	}
	stats := make([]QuestionStat, 0, len(questions))
	index := make(map[int]int, len(questions))
	for i, q := range questions {
		stats = append(stats, QuestionStat{QuestionID: q.ID, Text: q.Text, Histogram: make([]int, width)})
		index[q.ID] = i
	}
	sums := make([]int, len(questions))
	for _, s := range summaries {
		for qid, score := range s.Answers {
			i, ok := index[qid]
			if !ok || score < scoreMin || score > scoreMax {
				continue
			}
			stats[i].Histogram[score-scoreMin]++
			stats[i].Total++
			sums[i] += score
		}
	}
	for i := range stats {
		if stats[i].Total > 0 {
			stats[i].Mean = float64(sums[i]) / float64(stats[i].Total)
		}
	}
	return stats
}
