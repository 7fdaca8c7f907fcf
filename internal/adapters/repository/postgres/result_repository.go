package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type resultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) ports.ResultRepository {
	return &resultRepository{
		db: db,
	}
}

func (r *resultRepository) SaveSnapshot(ctx context.Context, snapshot *domain.ResultSnapshot) (bool, error) {
	results, err := json.Marshal(snapshot.Results)
	if err != nil {
		return false, fmt.Errorf("failed to encode results: %w", err)
	}

	query := `
		INSERT INTO question_results (question_id, total_votes, results, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (question_id) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query, snapshot.QuestionID, snapshot.TotalVotes, results, snapshot.ComputedAt)
	if err != nil {
		return false, classifyError(err, "failed to save result snapshot")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save result snapshot: %w", err)
	}
	return n > 0, nil
}

func (r *resultRepository) GetSnapshot(ctx context.Context, questionID uuid.UUID) (*domain.ResultSnapshot, error) {
	query := `
		SELECT question_id, total_votes, results, computed_at
		FROM question_results
		WHERE question_id = $1;
	`
	snapshot := &domain.ResultSnapshot{Final: true}
	var results []byte
	err := r.db.QueryRowContext(ctx, query, questionID).Scan(
		&snapshot.QuestionID,
		&snapshot.TotalVotes,
		&results,
		&snapshot.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result snapshot: %w", err)
	}

	if err := json.Unmarshal(results, &snapshot.Results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return snapshot, nil
}

// ListUnsummarized returns the questions closed at now that have no archived
// snapshot yet.
func (r *resultRepository) ListUnsummarized(ctx context.Context, now time.Time) ([]*domain.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions q
		LEFT JOIN question_results qr ON qr.question_id = q.id
		WHERE qr.question_id IS NULL AND NOT (` + activeClause + `)
		ORDER BY q.published_at;
	`
	return queryQuestions(ctx, r.db, query, domain.Instant(now))
}
