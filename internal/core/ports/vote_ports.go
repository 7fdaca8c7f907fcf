package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type VoteRepository interface {
	// Cast stores the vote and increments the chosen tally in one transaction.
	// If the user already voted on the question it returns *domain.AlreadyVotedError.
	Cast(ctx context.Context, vote *domain.Vote) (*domain.Choice, error)
	GetByUserAndQuestion(ctx context.Context, userID, questionID uuid.UUID) (*domain.Vote, error)
}

type VoteInput struct {
	Principal  domain.Principal
	QuestionID uuid.UUID
	ChoiceID   uuid.UUID
}

type VoteService interface {
	Vote(ctx context.Context, input VoteInput) (*domain.Choice, error)
	HasVoted(ctx context.Context, principal domain.Principal, questionID uuid.UUID) (bool, error)
	MyVote(ctx context.Context, principal domain.Principal, questionID uuid.UUID) (*domain.Vote, error)
}
