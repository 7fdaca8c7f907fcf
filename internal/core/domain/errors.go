package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrQuestionNotFound  = errors.New("question not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("not allowed")
	ErrVotingClosed      = errors.New("voting on this question is closed")
	ErrInvalidChoice     = errors.New("invalid choice for this question")
	ErrAlreadyVoted      = errors.New("user has already voted")
	ErrDidNotVote        = errors.New("user did not vote on this question")
	ErrValidationFailed  = errors.New("validation failed")
	ErrIntegrityConflict = errors.New("integrity conflict")
)

// AlreadyVotedError carries the choice the user picked earlier so callers can
// point at it in their response.
type AlreadyVotedError struct {
	Choice Choice
}

func (e *AlreadyVotedError) Error() string {
	return fmt.Sprintf("%s (choice %s)", ErrAlreadyVoted, e.Choice.ID)
}

func (e *AlreadyVotedError) Unwrap() error {
	return ErrAlreadyVoted
}

// ValidationError collects per-field messages. An empty error is never returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Err returns nil when no field failed, so callers can write `return v.Err()`.
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
