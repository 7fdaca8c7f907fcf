package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/services"
)

// Values of errorResponse.Next: where a client should send the user.
const (
	nextListing = "listing"
	nextResults = "results"
	nextDetail  = "detail"
	nextLogin   = "login"
)

type errorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Next     string            `json:"next,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	ChoiceID *uuid.UUID        `json:"choice_id,omitempty"`
	HasVoted *bool             `json:"has_voted,omitempty"`
}

// errorFor maps an error returned by the core to a status and response body.
func errorFor(err error) (int, errorResponse) {
	var validation *domain.ValidationError
	var already *domain.AlreadyVotedError

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, errorResponse{
			Code:    "validation_failed",
			Message: domain.ErrValidationFailed.Error(),
			Fields:  validation.Fields,
		}
	case errors.As(err, &already):
		choiceID := already.Choice.ID
		return http.StatusConflict, errorResponse{
			Code:     "already_voted",
			Message:  domain.ErrAlreadyVoted.Error(),
			Next:     nextResults,
			ChoiceID: &choiceID,
		}
	case errors.Is(err, domain.ErrVotingClosed):
		return http.StatusForbidden, errorResponse{Code: "voting_closed", Message: err.Error(), Next: nextListing}
	case errors.Is(err, domain.ErrInvalidChoice):
		return http.StatusBadRequest, errorResponse{Code: "invalid_choice", Message: err.Error(), Next: nextDetail}
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, services.ErrInvalidAccessToken),
		errors.Is(err, services.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, errorResponse{Code: "unauthenticated", Message: domain.ErrUnauthenticated.Error(), Next: nextLogin}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Code: "forbidden", Message: err.Error()}
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound, errorResponse{Code: "question_not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrDidNotVote):
		return http.StatusNotFound, errorResponse{Code: "vote_not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Code: "user_not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrIntegrityConflict):
		return http.StatusConflict, errorResponse{Code: "conflict", Message: domain.ErrIntegrityConflict.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: "internal server error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
