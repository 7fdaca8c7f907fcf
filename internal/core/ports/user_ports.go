package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	// SaveAccount writes the account fields and the profile in one
	// transaction. Username or email collisions come back as
	// *domain.ValidationError. An empty profile.Avatar keeps the stored one;
	// on return profile.Avatar holds the stored value. The avatar that was
	// replaced, if any, is returned.
	SaveAccount(ctx context.Context, user *domain.User, profile *domain.Profile) (string, error)
	// ReplaceAvatar sets only the avatar, creating the profile if needed, and
	// returns the avatar it replaced.
	ReplaceAvatar(ctx context.Context, userID uuid.UUID, avatar string) (string, error)
	// DeleteAccount removes the profile, if any, and then the user.
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

type UpdateProfileInput struct {
	Username    string
	Email       string
	DisplayName string
	Avatar      *domain.ImageUpload
}

type Account struct {
	User             *domain.User       `json:"user"`
	Profile          *domain.Profile    `json:"profile"`
	ExpiredQuestions []*domain.Question `json:"expired_questions,omitempty"`
}

type ProfileService interface {
	GetMe(ctx context.Context, principal domain.Principal) (*Account, error)
	GetOrCreate(ctx context.Context, principal domain.Principal) (*domain.Profile, error)
	Update(ctx context.Context, principal domain.Principal, input UpdateProfileInput) (*Account, error)
	UpdateAvatar(ctx context.Context, principal domain.Principal, avatar *domain.ImageUpload) (*Account, error)
	DeleteAccount(ctx context.Context, principal domain.Principal) error
}
