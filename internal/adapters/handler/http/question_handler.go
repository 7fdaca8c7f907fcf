package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type QuestionHandler struct {
	service        ports.QuestionService
	votes          ports.VoteService
	recorder       MetricsRecorder
	maxUploadBytes int64
	now            func() time.Time
}

func NewQuestionHandler(service ports.QuestionService, votes ports.VoteService, recorder MetricsRecorder, maxUploadBytes int64) *QuestionHandler {
	return &QuestionHandler{
		service:        service,
		votes:          votes,
		recorder:       recorder,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

type questionResponse struct {
	*domain.Question
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	Closes    string    `json:"closes"`
	HasVoted  *bool     `json:"has_voted,omitempty"`
}

func newQuestionResponse(q *domain.Question, now time.Time) questionResponse {
	expires := q.ExpiresAt()
	return questionResponse{
		Question:  q,
		ExpiresAt: expires,
		Active:    q.IsActive(now),
		Closes:    humanize.RelTime(expires, now, "ago", "from now"),
	}
}

func (h *QuestionHandler) questionList(questions []*domain.Question) []questionResponse {
	now := h.now()
	out := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, newQuestionResponse(q, now))
	}
	return out
}

type listQuestionsResponse struct {
	Questions []questionResponse `json:"questions"`
	Page      int                `json:"page"`
}

// ListQuestions godoc
// @Summary      Lists open questions
// @Description  Newest first, ten per page. `q` filters by text.
// @Tags         questions
// @Produce      json
// @Param        page  query  int     false  "Page number, from 1"
// @Param        q     query  string  false  "Text search"
// @Success      200
// @Router       /api/questions [get]
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	questions, err := h.service.ListActive(r.Context(), ports.ListQuestionsInput{
		Page:  page,
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listQuestionsResponse{
		Questions: h.questionList(questions),
		Page:      page,
	})
}

// ListExpired godoc
// @Summary      Lists closed questions
// @Description  Staff only.
// @Tags         questions
// @Produce      json
// @Success      200
// @Failure      401,403
// @Router       /api/questions/expired [get]
func (h *QuestionHandler) ListExpired(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ListExpired(r.Context(), principalFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"questions": h.questionList(questions)})
}

type createQuestionRequest struct {
	Text         string   `json:"text"`
	LifespanDays int      `json:"lifespan_days"`
	Choices      []string `json:"choices"`
}

// CreateQuestion godoc
// @Summary      Creates a question
// @Description  Accepts JSON, or multipart/form-data with an optional `image` file.
// @Tags         questions
// @Accept       json,mpfd
// @Produce      json
// @Success      201
// @Failure      401,422
// @Router       /api/questions [post]
func (h *QuestionHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var input ports.CreateQuestionInput

	if isMultipart(r) {
		if err := parseMultipart(w, r, "image", h.maxUploadBytes); err != nil {
			writeUploadError(w, r, err)
			return
		}

		input.Text = r.FormValue("text")
		input.Choices = r.MultipartForm.Value["choices"]
		if raw := strings.TrimSpace(r.FormValue("lifespan_days")); raw != "" {
			days, err := strconv.Atoi(raw)
			if err != nil {
				v := &domain.ValidationError{}
				v.Add("lifespan_days", "enter a whole number")
				writeError(w, r, v)
				return
			}
			input.LifespanDays = days
		}

		image, err := readUpload(r, "image", h.maxUploadBytes)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		input.Image = image
	} else {
		var req createQuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		input.Text = req.Text
		input.LifespanDays = req.LifespanDays
		input.Choices = req.Choices
	}

	question, err := h.service.Create(r.Context(), principalFrom(r), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.recorder != nil {
		h.recorder.RecordQuestionCreated()
	}

	writeJSON(w, http.StatusCreated, newQuestionResponse(question, h.now()))
}

// GetQuestion godoc
// @Summary      Shows a question
// @Description  `has_voted` is present for signed-in callers.
// @Tags         questions
// @Produce      json
// @Param        id   path      string  true  "Question ID"
// @Success      200
// @Failure      404
// @Router       /api/questions/{id} [get]
func (h *QuestionHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := newQuestionResponse(question, h.now())

	principal := principalFrom(r)
	if principal.IsAuthenticated() {
		voted, err := h.votes.HasVoted(r.Context(), principal, question.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.HasVoted = &voted
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteQuestion godoc
// @Summary      Deletes a question with its choices and votes
// @Tags         questions
// @Param        id   path      string  true  "Question ID"
// @Success      204
// @Failure      401,403,404
// @Router       /api/questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), principalFrom(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Results godoc
// @Summary      Shows the results of a question
// @Description  Live counts while open; the archived snapshot once closed.
// @Tags         questions
// @Produce      json
// @Param        id   path      string  true  "Question ID"
// @Success      200
// @Failure      404
// @Router       /api/questions/{id}/results [get]
func (h *QuestionHandler) Results(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var v *domain.ValidationError
	if errors.As(err, &v) {
		writeError(w, r, v)
		return
	}
	writeBadRequest(w, err.Error())
}
