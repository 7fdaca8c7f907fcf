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

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// Cast inserts the vote and bumps the tally in one transaction. A concurrent
// vote by the same user on the same question blocks on the unique key and then
// takes the already-voted path, so the tally moves at most once per user.
func (r *voteRepository) Cast(ctx context.Context, vote *domain.Vote) (*domain.Choice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO votes (id, user_id, question_id, choice_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, question_id) DO NOTHING
		RETURNING created_at;
	`
	err = tx.QueryRowContext(ctx, insertQuery, vote.ID, vote.UserID, vote.QuestionID, vote.ChoiceID).Scan(&vote.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		previous, err := existingChoice(ctx, tx, vote.UserID, vote.QuestionID)
		if err != nil {
			return nil, err
		}
		return nil, &domain.AlreadyVotedError{Choice: *previous}
	}
	if err != nil {
		if isViolation(err, foreignKeyViolation, "votes_choice_fkey") {
			return nil, domain.ErrInvalidChoice
		}
		return nil, classifyError(err, "failed to save vote")
	}

	updateQuery := `
		UPDATE choices SET vote_count = vote_count + 1
		WHERE id = $1 AND question_id = $2
		RETURNING id, question_id, text, position, vote_count;
	`
	choice := &domain.Choice{}
	err = tx.QueryRowContext(ctx, updateQuery, vote.ChoiceID, vote.QuestionID).Scan(
		&choice.ID,
		&choice.QuestionID,
		&choice.Text,
		&choice.Position,
		&choice.VoteCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidChoice
		}
		return nil, fmt.Errorf("failed to increment vote count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}
	return choice, nil
}

func (r *voteRepository) GetByUserAndQuestion(ctx context.Context, userID, questionID uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT id, user_id, question_id, choice_id, created_at
		FROM votes
		WHERE user_id = $1 AND question_id = $2;
	`
	vote := &domain.Vote{}
	err := r.db.QueryRowContext(ctx, query, userID, questionID).Scan(
		&vote.ID,
		&vote.UserID,
		&vote.QuestionID,
		&vote.ChoiceID,
		&vote.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return vote, nil
}

func existingChoice(ctx context.Context, tx *sql.Tx, userID, questionID uuid.UUID) (*domain.Choice, error) {
	query := `
		SELECT c.id, c.question_id, c.text, c.position, c.vote_count
		FROM votes v
		JOIN choices c ON c.id = v.choice_id
		WHERE v.user_id = $1 AND v.question_id = $2;
	`
	choice := &domain.Choice{}
	err := tx.QueryRowContext(ctx, query, userID, questionID).Scan(
		&choice.ID,
		&choice.QuestionID,
		&choice.Text,
		&choice.Position,
		&choice.VoteCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The conflicting vote disappeared between the insert and this read.
			return nil, fmt.Errorf("failed to read existing vote: %w", domain.ErrIntegrityConflict)
		}
		return nil, fmt.Errorf("failed to read existing vote: %w", err)
	}
	return choice, nil
}
