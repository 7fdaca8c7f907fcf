package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type AuthService struct {
	userRepo            ports.UserRepository
	authRepo            ports.AuthRepository
	googleTokenVerifier ports.TokenVerifier
	jwtSecret           []byte
	googleClientID      string
	now                 func() time.Time
}

func NewAuthService(userRepo ports.UserRepository, authRepo ports.AuthRepository, googleTokenVerifier ports.TokenVerifier, jwtSecret string, googleClientID string) *AuthService {
	return &AuthService{
		userRepo:            userRepo,
		authRepo:            authRepo,
		googleTokenVerifier: googleTokenVerifier,
		jwtSecret:           []byte(jwtSecret),
		googleClientID:      googleClientID,
		now:                 time.Now,
	}
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (string, string, error) {
	payload, err := s.googleTokenVerifier.Verify(ctx, googleToken, s.googleClientID)
	if err != nil {
		return "", "", fmt.Errorf("invalid google token: %w", err)
	}

	return s.login(ctx, payload.Email)
}

func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	tokenHash := s.hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return "", "", fmt.Errorf("failed to get refresh token: %w", err)
	}
	if rtEntity == nil {
		return "", "", fmt.Errorf("%w: not found", ErrInvalidRefreshToken)
	}
	if rtEntity.Revoked {
		return "", "", fmt.Errorf("%w: revoked", ErrInvalidRefreshToken)
	}
	if rtEntity.ExpiresAt.Before(s.now()) {
		return "", "", fmt.Errorf("%w: expired", ErrInvalidRefreshToken)
	}

	user, err := s.userRepo.GetByID(ctx, rtEntity.UserID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", "", domain.ErrUserNotFound
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	// The refresh token is not rotated; it lives until it expires or is revoked.
	return accessToken, refreshToken, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := s.hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to get refresh token: %w", err)
	}
	if rtEntity == nil {
		return nil
	}

	return s.authRepo.RevokeRefreshToken(ctx, rtEntity.ID)
}

func (s *AuthService) Authenticate(accessToken string) (uuid.UUID, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidAccessToken)
	}
	return userID, nil
}

func (s *AuthService) login(ctx context.Context, email string) (string, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", "", fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		user, err = s.register(ctx, email)
		if err != nil {
			return "", "", fmt.Errorf("failed to create user: %w", err)
		}
		slog.InfoContext(ctx, "user registered", "user_id", user.ID)
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	rtEntity := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: s.hashToken(refreshToken),
		ExpiresAt: s.now().Add(RefreshTokenTTL),
	}

	if err := s.authRepo.StoreRefreshToken(ctx, rtEntity); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

func (s *AuthService) generateAccessToken(user *domain.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"exp":   now.Add(AccessTokenTTL).Unix(),
		"iat":   now.Unix(),
		"jti":   uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (s *AuthService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// register creates the account for a first sign-in. The username starts as
// the email; when that name is taken a random suffix is tried instead.
func (s *AuthService) register(ctx context.Context, email string) (*domain.User, error) {
	username := usernameFromEmail(email)
	for attempt := 0; ; attempt++ {
		user := &domain.User{Email: email, Username: username}
		err := s.userRepo.Create(ctx, user)
		if err == nil {
			return user, nil
		}

		var v *domain.ValidationError
		if attempt == maxUsernameAttempts-1 || !errors.As(err, &v) || v.Fields["username"] == "" || v.Fields["email"] != "" {
			return nil, err
		}
		username = withUsernameSuffix(usernameFromEmail(email))
	}
}

const (
	maxUsernameAttempts = 3
	usernameSuffixLen   = 9 // "-" plus 8 hex digits
)

// usernameFromEmail derives a starting username from an email. Emails longer
// than a username allows are cut and given a random suffix, since their
// prefixes may be shared.
func usernameFromEmail(email string) string {
	username := strings.TrimSpace(email)
	if utf8.RuneCountInString(username) <= maxUsernameLen {
		return username
	}
	return withUsernameSuffix(username)
}

// withUsernameSuffix appends a random suffix, cutting name so the result stays
// within maxUsernameLen characters.
func withUsernameSuffix(name string) string {
	runes := []rune(name)
	if keep := maxUsernameLen - usernameSuffixLen; len(runes) > keep {
		runes = runes[:keep]
	}
	return string(runes) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

var _ ports.AuthService = (*AuthService)(nil)
