package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type QuestionRepository interface {
	Create(ctx context.Context, question *domain.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error)
	ListActive(ctx context.Context, now time.Time, limit, offset int) ([]*domain.Question, error)
	SearchActive(ctx context.Context, now time.Time, limit, offset int, query string) ([]*domain.Question, error)
	ListExpired(ctx context.Context, now time.Time) ([]*domain.Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateQuestionInput struct {
	Text         string
	Image        *domain.ImageUpload
	LifespanDays int
	Choices      []string
}

type ListQuestionsInput struct {
	Page  int
	Query string
}

type QuestionService interface {
	Create(ctx context.Context, principal domain.Principal, input CreateQuestionInput) (*domain.Question, error)
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)
	ListActive(ctx context.Context, input ListQuestionsInput) ([]*domain.Question, error)
	ListExpired(ctx context.Context, principal domain.Principal) ([]*domain.Question, error)
	Results(ctx context.Context, id string) (*domain.ResultSnapshot, error)
	Delete(ctx context.Context, principal domain.Principal, id string) error
}
