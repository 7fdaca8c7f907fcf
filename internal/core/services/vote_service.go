package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type voteService struct {
	questionRepo ports.QuestionRepository
	voteRepo     ports.VoteRepository
	now          func() time.Time
}

func NewVoteService(questionRepo ports.QuestionRepository, voteRepo ports.VoteRepository) ports.VoteService {
	return &voteService{
		questionRepo: questionRepo,
		voteRepo:     voteRepo,
		now:          time.Now,
	}
}

// Vote checks run in a fixed order: existence, voting window, caller identity,
// choice membership. The one-vote-per-user rule is left to the repository.
func (s *voteService) Vote(ctx context.Context, input ports.VoteInput) (*domain.Choice, error) {
	question, err := s.questionRepo.GetByID(ctx, input.QuestionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !question.IsActive(now) {
		return nil, domain.ErrVotingClosed
	}

	if !input.Principal.IsAuthenticated() {
		return nil, domain.ErrUnauthenticated
	}

	if _, ok := question.Choice(input.ChoiceID); !ok {
		return nil, domain.ErrInvalidChoice
	}

	vote := &domain.Vote{
		ID:         uuid.New(),
		UserID:     input.Principal.UserID,
		QuestionID: question.ID,
		ChoiceID:   input.ChoiceID,
		CreatedAt:  now,
	}

	choice, err := s.voteRepo.Cast(ctx, vote)
	if err != nil {
		var already *domain.AlreadyVotedError
		if errors.As(err, &already) {
			slog.InfoContext(ctx, "duplicate vote rejected",
				"question_id", question.ID,
				"user_id", vote.UserID,
				"existing_choice_id", already.Choice.ID,
			)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "vote cast",
		"question_id", question.ID,
		"choice_id", choice.ID,
		"user_id", vote.UserID,
	)

	return choice, nil
}

func (s *voteService) HasVoted(ctx context.Context, principal domain.Principal, questionID uuid.UUID) (bool, error) {
	if !principal.IsAuthenticated() {
		return false, nil
	}

	vote, err := s.voteRepo.GetByUserAndQuestion(ctx, principal.UserID, questionID)
	if err != nil {
		return false, err
	}
	return vote != nil, nil
}

func (s *voteService) MyVote(ctx context.Context, principal domain.Principal, questionID uuid.UUID) (*domain.Vote, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.ErrUnauthenticated
	}

	vote, err := s.voteRepo.GetByUserAndQuestion(ctx, principal.UserID, questionID)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, domain.ErrDidNotVote
	}
	return vote, nil
}
