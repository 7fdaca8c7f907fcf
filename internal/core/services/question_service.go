package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

const (
	pageSize        = 10
	maxLifespanDays = 36500
)

type questionService struct {
	repo          ports.QuestionRepository
	resultRepo    ports.ResultRepository
	userRepo      ports.UserRepository
	files         ports.FileStore
	maxImageBytes int64
	now           func() time.Time
}

func NewQuestionService(
	repo ports.QuestionRepository,
	resultRepo ports.ResultRepository,
	userRepo ports.UserRepository,
	files ports.FileStore,
	maxImageBytes int64,
) ports.QuestionService {
	return &questionService{
		repo:          repo,
		resultRepo:    resultRepo,
		userRepo:      userRepo,
		files:         files,
		maxImageBytes: maxImageBytes,
		now:           time.Now,
	}
}

func (s *questionService) Create(ctx context.Context, principal domain.Principal, input ports.CreateQuestionInput) (*domain.Question, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.ErrUnauthenticated
	}

	v := &domain.ValidationError{}

	text := cleanText(input.Text)
	if text == "" {
		v.Add("text", "this field is required")
	} else if utf8.RuneCountInString(text) > domain.MaxQuestionTextLen {
		v.Add("text", fmt.Sprintf("must be at most %d characters", domain.MaxQuestionTextLen))
	}

	lifespan := input.LifespanDays
	if lifespan == 0 {
		lifespan = domain.DefaultLifespanDays
	}
	if lifespan < 0 {
		v.Add("lifespan_days", "must be a positive number of days")
	} else if lifespan > maxLifespanDays {
		v.Add("lifespan_days", fmt.Sprintf("must be at most %d days", maxLifespanDays))
	}

	if len(input.Choices) > domain.MaxInitialChoices {
		v.Add("choices", fmt.Sprintf("at most %d choices can be given", domain.MaxInitialChoices))
	}

	questionID := uuid.New()
	var choices []domain.Choice
	for i, raw := range input.Choices {
		choiceText := cleanText(raw)
		if choiceText == "" {
			continue
		}
		if utf8.RuneCountInString(choiceText) > domain.MaxChoiceTextLen {
			v.Add(fmt.Sprintf("choices[%d]", i), fmt.Sprintf("must be at most %d characters", domain.MaxChoiceTextLen))
			continue
		}
		choices = append(choices, domain.Choice{
			ID:         uuid.New(),
			QuestionID: questionID,
			Text:       choiceText,
			Position:   len(choices),
		})
	}

	domain.ValidateImage(v, "image", input.Image, s.maxImageBytes)

	if err := v.Err(); err != nil {
		return nil, err
	}

	question := &domain.Question{
		ID:           questionID,
		Text:         text,
		PublishedAt:  domain.Instant(s.now().UTC()),
		LifespanDays: lifespan,
		Choices:      choices,
	}

	if input.Image != nil {
		ref, err := s.files.Save(ctx, "question_images", input.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store question image: %w", err)
		}
		question.Image = ref
	}

	if err := s.repo.Create(ctx, question); err != nil {
		s.discardFile(ctx, question.Image)
		return nil, err
	}

	slog.InfoContext(ctx, "question created",
		"question_id", question.ID,
		"choices", len(question.Choices),
		"lifespan_days", question.LifespanDays,
	)

	return question, nil
}

func (s *questionService) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	questionID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrQuestionNotFound
	}

	return s.repo.GetByID(ctx, questionID)
}

func (s *questionService) ListActive(ctx context.Context, input ports.ListQuestionsInput) ([]*domain.Question, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	now := s.now()

	if input.Query != "" {
		return s.repo.SearchActive(ctx, now, pageSize, offset, input.Query)
	}
	return s.repo.ListActive(ctx, now, pageSize, offset)
}

func (s *questionService) ListExpired(ctx context.Context, principal domain.Principal) ([]*domain.Question, error) {
	if err := s.requireStaff(ctx, principal); err != nil {
		return nil, err
	}
	return s.repo.ListExpired(ctx, s.now())
}

func (s *questionService) Results(ctx context.Context, id string) (*domain.ResultSnapshot, error) {
	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if question.IsActive(now) {
		return domain.NewResultSnapshot(question, now), nil
	}

	archived, err := s.resultRepo.GetSnapshot(ctx, question.ID)
	if err != nil {
		return nil, err
	}
	if archived != nil {
		return archived, nil
	}

	snapshot := domain.NewResultSnapshot(question, now)
	snapshot.Final = true
	return snapshot, nil
}

func (s *questionService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	if err := s.requireStaff(ctx, principal); err != nil {
		return err
	}

	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, question.ID); err != nil {
		return err
	}
	s.discardFile(ctx, question.Image)

	slog.InfoContext(ctx, "question deleted", "question_id", question.ID, "by", principal.UserID)
	return nil
}

func (s *questionService) requireStaff(ctx context.Context, principal domain.Principal) error {
	if !principal.IsAuthenticated() {
		return domain.ErrUnauthenticated
	}
	user, err := s.userRepo.GetByID(ctx, principal.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return domain.ErrUnauthenticated
	}
	if !user.IsStaff {
		return domain.ErrForbidden
	}
	return nil
}

func (s *questionService) discardFile(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.files.Delete(ctx, ref); err != nil {
		slog.WarnContext(ctx, "failed to delete stored image", "ref", ref, "error", err)
	}
}
