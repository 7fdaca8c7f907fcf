package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type ChoiceResult struct {
	Choice  Choice  `json:"choice"`
	Percent float64 `json:"percent"`
}

// ResultSnapshot is the archived outcome of a question after its window closed.
type ResultSnapshot struct {
	QuestionID uuid.UUID      `json:"question_id"`
	TotalVotes int64          `json:"total_votes"`
	Results    []ChoiceResult `json:"results"`
	ComputedAt time.Time      `json:"computed_at"`
	Final      bool           `json:"final"`
}

// ComputeResults returns each choice with its share of the votes, rounded to
// one decimal, in display order. With no votes every share is zero.
func ComputeResults(q *Question) []ChoiceResult {
	total := q.TotalVotes()
	results := make([]ChoiceResult, 0, len(q.Choices))
	for _, c := range q.Choices {
		percent := 0.0
		if total > 0 {
			percent = math.Round(float64(c.VoteCount)/float64(total)*1000) / 10
		}
		results = append(results, ChoiceResult{Choice: c, Percent: percent})
	}
	return results
}

func NewResultSnapshot(q *Question, now time.Time) *ResultSnapshot {
	return &ResultSnapshot{
		QuestionID: q.ID,
		TotalVotes: q.TotalVotes(),
		Results:    ComputeResults(q),
		ComputedAt: now,
	}
}
