package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type ResultRepository interface {
	// SaveSnapshot stores a snapshot unless one already exists for the
	// question. It reports whether a row was written.
	SaveSnapshot(ctx context.Context, snapshot *domain.ResultSnapshot) (bool, error)
	GetSnapshot(ctx context.Context, questionID uuid.UUID) (*domain.ResultSnapshot, error)
	ListUnsummarized(ctx context.Context, now time.Time) ([]*domain.Question, error)
}

type SummaryService interface {
	SummarizeClosedQuestions(ctx context.Context, now time.Time) (int, error)
}
