package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
	checkViolation      pq.ErrorCode = "23514"
)

func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

func isViolation(err error, code pq.ErrorCode, constraint string) bool {
	pqErr, ok := pqError(err)
	if !ok || pqErr.Code != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// classifyError turns constraint violations that no caller handles explicitly
// into domain.ErrIntegrityConflict and wraps everything else as is.
func classifyError(err error, msg string) error {
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case uniqueViolation, foreignKeyViolation, checkViolation:
			return fmt.Errorf("%s: %w (%s)", msg, domain.ErrIntegrityConflict, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
