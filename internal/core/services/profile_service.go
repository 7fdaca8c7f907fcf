package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

const (
	maxUsernameLen    = 150
	maxDisplayNameLen = 100
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type profileService struct {
	userRepo      ports.UserRepository
	profileRepo   ports.ProfileRepository
	questionRepo  ports.QuestionRepository
	files         ports.FileStore
	maxImageBytes int64
	now           func() time.Time
}

func NewProfileService(
	userRepo ports.UserRepository,
	profileRepo ports.ProfileRepository,
	questionRepo ports.QuestionRepository,
	files ports.FileStore,
	maxImageBytes int64,
) ports.ProfileService {
	return &profileService{
		userRepo:      userRepo,
		profileRepo:   profileRepo,
		questionRepo:  questionRepo,
		files:         files,
		maxImageBytes: maxImageBytes,
		now:           time.Now,
	}
}

// GetMe returns the account with its profile. Staff accounts also get the
// questions whose voting window has closed.
func (s *profileService) GetMe(ctx context.Context, principal domain.Principal) (*ports.Account, error) {
	user, err := s.currentUser(ctx, principal)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.Get(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		profile = &domain.Profile{UserID: user.ID}
	}

	account := &ports.Account{User: user, Profile: profile}
	if user.IsStaff {
		expired, err := s.questionRepo.ListExpired(ctx, s.now())
		if err != nil {
			return nil, err
		}
		account.ExpiredQuestions = expired
	}
	return account, nil
}

func (s *profileService) GetOrCreate(ctx context.Context, principal domain.Principal) (*domain.Profile, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return s.profileRepo.GetOrCreate(ctx, principal.UserID)
}

// Update validates the account and profile fields together and saves them in
// one transaction. Nothing is written when any field is invalid.
func (s *profileService) Update(ctx context.Context, principal domain.Principal, input ports.UpdateProfileInput) (*ports.Account, error) {
	user, err := s.currentUser(ctx, principal)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	v := &domain.ValidationError{}

	username := strings.TrimSpace(input.Username)
	switch {
	case username == "":
		v.Add("username", "this field is required")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		v.Add("username", fmt.Sprintf("must be at most %d characters", maxUsernameLen))
	case !usernamePattern.MatchString(username):
		v.Add("username", "may contain only letters, digits and @/./+/-/_")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		v.Add("email", "this field is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		v.Add("email", "enter a valid email address")
	}

	displayName := cleanText(input.DisplayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		v.Add("display_name", fmt.Sprintf("must be at most %d characters", maxDisplayNameLen))
	}

	domain.ValidateImage(v, "avatar", input.Avatar, s.maxImageBytes)

	if err := v.Err(); err != nil {
		return nil, err
	}

	updatedUser := *user
	updatedUser.Username = username
	updatedUser.Email = email

	// An empty avatar keeps whatever is stored when the row is written.
	updatedProfile := *profile
	updatedProfile.DisplayName = displayName
	updatedProfile.Avatar = ""

	if input.Avatar != nil {
		ref, err := s.files.Save(ctx, "avatars", input.Avatar)
		if err != nil {
			return nil, fmt.Errorf("failed to store avatar: %w", err)
		}
		updatedProfile.Avatar = ref
	}

	replaced, err := s.profileRepo.SaveAccount(ctx, &updatedUser, &updatedProfile)
	if err != nil {
		if input.Avatar != nil {
			s.discardFile(ctx, updatedProfile.Avatar)
		}
		return nil, err
	}
	s.discardFile(ctx, replaced)

	slog.InfoContext(ctx, "profile updated", "user_id", user.ID)

	return &ports.Account{User: &updatedUser, Profile: &updatedProfile}, nil
}

// UpdateAvatar replaces only the avatar, leaving the account fields and the
// display name as they are stored.
func (s *profileService) UpdateAvatar(ctx context.Context, principal domain.Principal, avatar *domain.ImageUpload) (*ports.Account, error) {
	user, err := s.currentUser(ctx, principal)
	if err != nil {
		return nil, err
	}

	v := &domain.ValidationError{}
	if avatar == nil {
		v.Add("avatar", "no file was submitted")
	}
	domain.ValidateImage(v, "avatar", avatar, s.maxImageBytes)
	if err := v.Err(); err != nil {
		return nil, err
	}

	ref, err := s.files.Save(ctx, "avatars", avatar)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	replaced, err := s.profileRepo.ReplaceAvatar(ctx, user.ID, ref)
	if err != nil {
		s.discardFile(ctx, ref)
		return nil, err
	}
	s.discardFile(ctx, replaced)

	profile, err := s.profileRepo.Get(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrUserNotFound
	}

	slog.InfoContext(ctx, "avatar replaced", "user_id", user.ID)

	return &ports.Account{User: user, Profile: profile}, nil
}

// DeleteAccount removes the profile and the account. Invalidating the
// caller's credentials is left to the transport layer.
func (s *profileService) DeleteAccount(ctx context.Context, principal domain.Principal) error {
	if !principal.IsAuthenticated() {
		return domain.ErrUnauthenticated
	}

	profile, err := s.profileRepo.Get(ctx, principal.UserID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	if err := s.profileRepo.DeleteAccount(ctx, principal.UserID); err != nil {
		return err
	}

	if profile != nil {
		s.discardFile(ctx, profile.Avatar)
	}

	slog.InfoContext(ctx, "account deleted", "user_id", principal.UserID)
	return nil
}

func (s *profileService) currentUser(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.userRepo.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *profileService) discardFile(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.files.Delete(ctx, ref); err != nil {
		slog.WarnContext(ctx, "failed to delete stored image", "ref", ref, "error", err)
	}
}
