package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ports.ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	query := `SELECT user_id, display_name, avatar FROM profiles WHERE user_id = $1`
	profile := &domain.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&profile.UserID, &profile.DisplayName, &profile.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	query := `INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		if isViolation(err, foreignKeyViolation, "") {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	profile, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// Deleted together with its user right after the insert.
		return nil, domain.ErrUserNotFound
	}
	return profile, nil
}

func (r *profileRepository) SaveAccount(ctx context.Context, user *domain.User, profile *domain.Profile) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET username = $2, email = $3 WHERE id = $1`,
		user.ID, user.Username, user.Email)
	if err != nil {
		if verr := accountConflict(err); verr != nil {
			return "", verr
		}
		return "", classifyError(err, "failed to update user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", fmt.Errorf("failed to update user: %w", err)
	} else if n == 0 {
		return "", domain.ErrUserNotFound
	}

	previous, err := lockProfile(ctx, tx, user.ID)
	if err != nil {
		return "", err
	}

	avatar := profile.Avatar
	if avatar == "" {
		avatar = previous
	}
	if _, err := tx.ExecContext(ctx, `UPDATE profiles SET display_name = $2, avatar = $3 WHERE user_id = $1`,
		user.ID, profile.DisplayName, avatar); err != nil {
		return "", classifyError(err, "failed to save profile")
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	profile.Avatar = avatar
	if previous == avatar {
		return "", nil
	}
	return previous, nil
}

func (r *profileRepository) ReplaceAvatar(ctx context.Context, userID uuid.UUID, avatar string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	previous, err := lockProfile(ctx, tx, userID)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE profiles SET avatar = $2 WHERE user_id = $1`, userID, avatar); err != nil {
		return "", classifyError(err, "failed to save avatar")
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return previous, nil
}

// lockProfile creates the profile row if missing and locks it for the rest of
// the transaction, returning the stored avatar.
func lockProfile(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (string, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		if isViolation(err, foreignKeyViolation, "") {
			return "", domain.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to create profile: %w", err)
	}

	var avatar string
	err := tx.QueryRowContext(ctx, `SELECT avatar FROM profiles WHERE user_id = $1 FOR UPDATE`, userID).Scan(&avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to lock profile: %w", err)
	}
	return avatar, nil
}

// DeleteAccount removes the profile and the user together. Votes and refresh
// tokens go with the user through ON DELETE CASCADE; tallies are left as they
// were.
func (r *profileRepository) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	} else if n == 0 {
		return domain.ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
