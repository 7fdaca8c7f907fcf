package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLifespanDays = 7
	MaxQuestionTextLen  = 200
	MaxChoiceTextLen    = 200
	MaxInitialChoices   = 3
)

type Question struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	PublishedAt  time.Time `json:"published_at"`
	Image        string    `json:"image,omitempty"`
	LifespanDays int       `json:"lifespan_days"`
	Choices      []Choice  `json:"choices"`
}

type Choice struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	Position   int       `json:"-"`
	VoteCount  int64     `json:"vote_count"`
}

// ExpiresAt is the last instant at which a question still accepts votes.
// Days are fixed 24h spans so the same value can be computed by the database
// as published_at + lifespan_days * interval '24 hours'.
func ExpiresAt(publishedAt time.Time, lifespanDays int) time.Time {
	return publishedAt.Add(time.Duration(lifespanDays) * 24 * time.Hour)
}

func (q *Question) ExpiresAt() time.Time {
	return ExpiresAt(q.PublishedAt, q.LifespanDays)
}

// Instant cuts t to the microsecond precision PostgreSQL stores timestamps
// with. Lifecycle checks in Go and in SQL both compare at this precision.
func Instant(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

// IsActive reports whether now is within the voting window. The boundary
// instant itself counts as active.
func (q *Question) IsActive(now time.Time) bool {
	return !Instant(now).After(q.ExpiresAt())
}

func (q *Question) Choice(id uuid.UUID) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

func (q *Question) TotalVotes() int64 {
	var total int64
	for _, c := range q.Choices {
		total += c.VoteCount
	}
	return total
}

// FilterActive keeps the questions that are open at now, preserving order.
func FilterActive(questions []*Question, now time.Time) []*Question {
	return filterQuestions(questions, func(q *Question) bool { return q.IsActive(now) })
}

// FilterExpired is the complement of FilterActive.
func FilterExpired(questions []*Question, now time.Time) []*Question {
	return filterQuestions(questions, func(q *Question) bool { return !q.IsActive(now) })
}

func filterQuestions(questions []*Question, keep func(*Question) bool) []*Question {
	out := make([]*Question, 0, len(questions))
	for _, q := range questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}
