package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar,omitempty"`
}

type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the caller identity resolved by the transport layer. The zero
// value is an anonymous caller.
type Principal struct {
	UserID uuid.UUID
}

func Anonymous() Principal {
	return Principal{}
}

func Authenticated(userID uuid.UUID) Principal {
	return Principal{UserID: userID}
}

func (p Principal) IsAuthenticated() bool {
	return p.UserID != uuid.Nil
}
