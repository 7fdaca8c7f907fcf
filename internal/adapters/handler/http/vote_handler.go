package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
	"github.com/vncsmyrnk/polls/internal/metrics"
)

type VoteHandler struct {
	service  ports.VoteService
	recorder MetricsRecorder
}

func NewVoteHandler(service ports.VoteService, recorder MetricsRecorder) *VoteHandler {
	return &VoteHandler{
		service:  service,
		recorder: recorder,
	}
}

type voteRequest struct {
	ChoiceID uuid.UUID `json:"choice_id"`
}

type voteResponse struct {
	Choice *domain.Choice `json:"choice"`
	Next   string         `json:"next"`
}

// Vote godoc
// @Summary      Votes on a question
// @Description  One vote per user and question. A missing or foreign choice is an invalid choice.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Question ID"
// @Success      201
// @Failure      400,401,403,404,409,429
// @Router       /api/questions/{id}/votes [post]
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.ErrQuestionNotFound)
		return
	}

	// A body without a usable choice leaves ChoiceID as uuid.Nil, which the
	// service reports as an invalid choice once the other checks pass.
	var req voteRequest
	if isForm(r) {
		req.ChoiceID, _ = uuid.Parse(r.FormValue("choice_id"))
	} else {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	principal := principalFrom(r)
	choice, err := h.service.Vote(r.Context(), ports.VoteInput{
		Principal:  principal,
		QuestionID: questionID,
		ChoiceID:   req.ChoiceID,
	})
	h.record(err)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidChoice) {
			status, body := errorFor(err)
			voted, hvErr := h.service.HasVoted(r.Context(), principal, questionID)
			if hvErr != nil {
				writeError(w, r, hvErr)
				return
			}
			body.HasVoted = &voted
			writeJSON(w, status, body)
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, voteResponse{Choice: choice, Next: nextResults})
}

// MyVote godoc
// @Summary      Shows the caller's vote on a question
// @Tags         votes
// @Produce      json
// @Param        id   path      string  true  "Question ID"
// @Success      200
// @Failure      401,404
// @Router       /api/questions/{id}/my-vote [get]
func (h *VoteHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.ErrQuestionNotFound)
		return
	}

	vote, err := h.service.MyVote(r.Context(), principalFrom(r), questionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vote)
}

func (h *VoteHandler) record(err error) {
	if h.recorder == nil {
		return
	}

	outcome := metrics.VoteAccepted
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyVoted):
		outcome = metrics.VoteAlreadyVoted
	case errors.Is(err, domain.ErrVotingClosed):
		outcome = metrics.VoteClosed
	case errors.Is(err, domain.ErrInvalidChoice):
		outcome = metrics.VoteInvalid
	default:
		outcome = metrics.VoteError
	}
	h.recorder.RecordVote(outcome)
}
