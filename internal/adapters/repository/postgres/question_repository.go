package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

// activeClause matches questions still open at $1. It must agree with
// domain.Question.IsActive.
const activeClause = `q.published_at + q.lifespan_days * INTERVAL '24 hours' >= $1`

const questionColumns = `q.id, q.text, q.published_at, q.image, q.lifespan_days`

type questionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) ports.QuestionRepository {
	return &questionRepository{
		db: db,
	}
}

func (r *questionRepository) Create(ctx context.Context, question *domain.Question) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	questionQuery := `
		INSERT INTO questions (id, text, published_at, image, lifespan_days)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err = tx.ExecContext(ctx, questionQuery,
		question.ID, question.Text, question.PublishedAt, question.Image, question.LifespanDays)
	if err != nil {
		return classifyError(err, "failed to insert question")
	}

	choiceQuery := `
		INSERT INTO choices (id, question_id, text, position, vote_count)
		VALUES ($1, $2, $3, $4, $5);
	`
	stmt, err := tx.PrepareContext(ctx, choiceQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare choice statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range question.Choices {
		if _, err := stmt.ExecContext(ctx, c.ID, question.ID, c.Text, c.Position, c.VoteCount); err != nil {
			return classifyError(err, "failed to insert choice")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions q WHERE q.id = $1`

	question := &domain.Question{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&question.ID,
		&question.Text,
		&question.PublishedAt,
		&question.Image,
		&question.LifespanDays,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	question.Choices, err = fetchChoices(ctx, r.db, question.ID)
	if err != nil {
		return nil, err
	}

	return question, nil
}

func (r *questionRepository) ListActive(ctx context.Context, now time.Time, limit, offset int) ([]*domain.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions q
		WHERE ` + activeClause + `
		ORDER BY q.published_at DESC, q.id
		LIMIT $2 OFFSET $3;
	`
	return queryQuestions(ctx, r.db, query, domain.Instant(now), limit, offset)
}

func (r *questionRepository) SearchActive(ctx context.Context, now time.Time, limit, offset int, search string) ([]*domain.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions q
		WHERE ` + activeClause + ` AND q.text ILIKE $4
		ORDER BY q.published_at DESC, q.id
		LIMIT $2 OFFSET $3;
	`
	return queryQuestions(ctx, r.db, query, domain.Instant(now), limit, offset, "%"+escapeLike(search)+"%")
}

func (r *questionRepository) ListExpired(ctx context.Context, now time.Time) ([]*domain.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions q
		WHERE NOT (` + activeClause + `)
		ORDER BY q.published_at DESC, q.id;
	`
	return queryQuestions(ctx, r.db, query, domain.Instant(now))
}

func (r *questionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func queryQuestions(ctx context.Context, db *sql.DB, query string, args ...any) ([]*domain.Question, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []*domain.Question
	for rows.Next() {
		q := &domain.Question{}
		if err := rows.Scan(&q.ID, &q.Text, &q.PublishedAt, &q.Image, &q.LifespanDays); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	for _, q := range questions {
		q.Choices, err = fetchChoices(ctx, db, q.ID)
		if err != nil {
			return nil, err
		}
	}

	return questions, nil
}

func fetchChoices(ctx context.Context, db *sql.DB, questionID uuid.UUID) ([]domain.Choice, error) {
	query := `
		SELECT id, question_id, text, position, vote_count
		FROM choices
		WHERE question_id = $1
		ORDER BY position;
	`
	rows, err := db.QueryContext(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query choices: %w", err)
	}
	defer rows.Close()

	choices := []domain.Choice{}
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.Position, &c.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating choices: %w", err)
	}
	return choices, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
