package http

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
	"github.com/vncsmyrnk/polls/internal/core/services"
)

type stubQuestionService struct {
	createFn      func(ctx context.Context, p domain.Principal, in ports.CreateQuestionInput) (*domain.Question, error)
	getFn         func(ctx context.Context, id string) (*domain.Question, error)
	listActiveFn  func(ctx context.Context, in ports.ListQuestionsInput) ([]*domain.Question, error)
	listExpiredFn func(ctx context.Context, p domain.Principal) ([]*domain.Question, error)
	resultsFn     func(ctx context.Context, id string) (*domain.ResultSnapshot, error)
	deleteFn      func(ctx context.Context, p domain.Principal, id string) error
}

func (s *stubQuestionService) Create(ctx context.Context, p domain.Principal, in ports.CreateQuestionInput) (*domain.Question, error) {
	return s.createFn(ctx, p, in)
}
func (s *stubQuestionService) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	return s.getFn(ctx, id)
}
func (s *stubQuestionService) ListActive(ctx context.Context, in ports.ListQuestionsInput) ([]*domain.Question, error) {
	return s.listActiveFn(ctx, in)
}
func (s *stubQuestionService) ListExpired(ctx context.Context, p domain.Principal) ([]*domain.Question, error) {
	return s.listExpiredFn(ctx, p)
}
func (s *stubQuestionService) Results(ctx context.Context, id string) (*domain.ResultSnapshot, error) {
	return s.resultsFn(ctx, id)
}
func (s *stubQuestionService) Delete(ctx context.Context, p domain.Principal, id string) error {
	return s.deleteFn(ctx, p, id)
}

type stubVoteService struct {
	voteFn     func(ctx context.Context, in ports.VoteInput) (*domain.Choice, error)
	hasVotedFn func(ctx context.Context, p domain.Principal, questionID uuid.UUID) (bool, error)
	myVoteFn   func(ctx context.Context, p domain.Principal, questionID uuid.UUID) (*domain.Vote, error)
}

func (s *stubVoteService) Vote(ctx context.Context, in ports.VoteInput) (*domain.Choice, error) {
	return s.voteFn(ctx, in)
}
func (s *stubVoteService) HasVoted(ctx context.Context, p domain.Principal, questionID uuid.UUID) (bool, error) {
	if s.hasVotedFn == nil {
		return false, nil
	}
	return s.hasVotedFn(ctx, p, questionID)
}
func (s *stubVoteService) MyVote(ctx context.Context, p domain.Principal, questionID uuid.UUID) (*domain.Vote, error) {
	return s.myVoteFn(ctx, p, questionID)
}

type stubProfileService struct {
	getMeFn  func(ctx context.Context, p domain.Principal) (*ports.Account, error)
	updateFn func(ctx context.Context, p domain.Principal, in ports.UpdateProfileInput) (*ports.Account, error)
	avatarFn func(ctx context.Context, p domain.Principal, avatar *domain.ImageUpload) (*ports.Account, error)
	deleteFn func(ctx context.Context, p domain.Principal) error
}

func (s *stubProfileService) GetMe(ctx context.Context, p domain.Principal) (*ports.Account, error) {
	return s.getMeFn(ctx, p)
}
func (s *stubProfileService) GetOrCreate(ctx context.Context, p domain.Principal) (*domain.Profile, error) {
	return &domain.Profile{UserID: p.UserID}, nil
}
func (s *stubProfileService) Update(ctx context.Context, p domain.Principal, in ports.UpdateProfileInput) (*ports.Account, error) {
	return s.updateFn(ctx, p, in)
}
func (s *stubProfileService) UpdateAvatar(ctx context.Context, p domain.Principal, avatar *domain.ImageUpload) (*ports.Account, error) {
	return s.avatarFn(ctx, p, avatar)
}
func (s *stubProfileService) DeleteAccount(ctx context.Context, p domain.Principal) error {
	return s.deleteFn(ctx, p)
}

// stubAuthService accepts access tokens of the form "user:<uuid>".
type stubAuthService struct {
	refreshErr error
}

func (s *stubAuthService) LoginWithGoogle(ctx context.Context, googleToken string) (string, string, error) {
	if googleToken != "good" {
		return "", "", errors.New("bad google token")
	}
	return "access", "refresh", nil
}
func (s *stubAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	if s.refreshErr != nil {
		return "", "", s.refreshErr
	}
	return "new-access", refreshToken, nil
}
func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error {
	return nil
}
func (s *stubAuthService) Authenticate(accessToken string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimPrefix(accessToken, "user:"))
	if err != nil || !strings.HasPrefix(accessToken, "user:") {
		return uuid.Nil, services.ErrInvalidAccessToken
	}
	return id, nil
}
