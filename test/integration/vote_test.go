package integration

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/polls/internal/core/domain"
)

func votePath(q *domain.Question) string {
	return "/api/questions/" + q.ID.String() + "/votes"
}

func TestVoteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	q := app.insertQuestion(t, "Favourite colour?", time.Now(), 7, "Red", "Blue")
	_, token := app.createUser(t, false)

	// 1. No vote yet
	resp := app.request(t, http.MethodGet, "/api/questions/"+q.ID.String()+"/my-vote", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.request(t, http.MethodGet, "/api/questions/"+q.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeBody[questionBody](t, resp)
	require.NotNil(t, detail.HasVoted)
	assert.False(t, *detail.HasVoted)

	// 2. Vote
	resp = app.request(t, http.MethodPost, votePath(q), token, map[string]any{"choice_id": q.Choices[1].ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	voted := decodeBody[struct {
		Choice domain.Choice `json:"choice"`
		Next   string        `json:"next"`
	}](t, resp)
	assert.Equal(t, q.Choices[1].ID, voted.Choice.ID)
	assert.Equal(t, int64(1), voted.Choice.VoteCount)
	assert.Equal(t, "results", voted.Next)

	// 3. My vote
	resp = app.request(t, http.MethodGet, "/api/questions/"+q.ID.String()+"/my-vote", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decodeBody[domain.Vote](t, resp)
	assert.Equal(t, q.Choices[1].ID, mine.ChoiceID)

	// 4. A second vote is rejected and points at the first one
	resp = app.request(t, http.MethodPost, votePath(q), token, map[string]any{"choice_id": q.Choices[0].ID})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	again := decodeBody[apiError](t, resp)
	assert.Equal(t, "already_voted", again.Code)
	require.NotNil(t, again.ChoiceID)
	assert.Equal(t, q.Choices[1].ID, *again.ChoiceID)

	assert.Equal(t, int64(0), app.choiceVotes(t, q.Choices[0].ID))
	assert.Equal(t, int64(1), app.choiceVotes(t, q.Choices[1].ID))

	// 5. Results
	resp = app.request(t, http.MethodGet, "/api/questions/"+q.ID.String()+"/results", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decodeBody[domain.ResultSnapshot](t, resp)
	assert.Equal(t, int64(1), results.TotalVotes)
	assert.Equal(t, 100.0, results.Results[1].Percent)
}

func TestVote_Rejections(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	open := app.insertQuestion(t, "Open", time.Now(), 7, "a", "b")
	other := app.insertQuestion(t, "Other", time.Now(), 7, "x")
	closed := app.insertQuestion(t, "Closed", time.Now().AddDate(0, 0, -3), 1, "late")
	_, token := app.createUser(t, false)

	tests := []struct {
		name       string
		path       string
		token      string
		body       any
		wantStatus int
		wantCode   string
		wantNext   string
	}{
		{"anonymous", votePath(open), "", map[string]any{"choice_id": open.Choices[0].ID}, http.StatusUnauthorized, "unauthenticated", "login"},
		{"closed", votePath(closed), token, map[string]any{"choice_id": closed.Choices[0].ID}, http.StatusForbidden, "voting_closed", "listing"},
		{"choice of another question", votePath(open), token, map[string]any{"choice_id": other.Choices[0].ID}, http.StatusBadRequest, "invalid_choice", "detail"},
		{"no choice", votePath(open), token, map[string]any{}, http.StatusBadRequest, "invalid_choice", "detail"},
		{"unknown question", "/api/questions/" + uuid.NewString() + "/votes", token, map[string]any{"choice_id": uuid.New()}, http.StatusNotFound, "question_not_found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.request(t, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeBody[apiError](t, resp)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantNext, body.Next)
		})
	}

	var votes int
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM votes").Scan(&votes))
	assert.Zero(t, votes)
}

func TestVote_ConcurrentSameUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	q := app.insertQuestion(t, "Race?", time.Now(), 7, "a", "b")
	_, token := app.createUser(t, false)

	const attempts = 10
	statuses := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := app.request(t, http.MethodPost, votePath(q), token, map[string]any{"choice_id": q.Choices[i%2].ID})
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(statuses)

	counts := map[int]int{}
	for s := range statuses {
		counts[s]++
	}
	assert.Equal(t, 1, counts[http.StatusCreated])
	assert.Equal(t, attempts-1, counts[http.StatusConflict])

	total := app.choiceVotes(t, q.Choices[0].ID) + app.choiceVotes(t, q.Choices[1].ID)
	assert.Equal(t, int64(1), total)
}

func TestVote_ConcurrentManyUsers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	q := app.insertQuestion(t, "Crowd?", time.Now(), 7, "a")

	const voters = 20
	tokens := make([]string, voters)
	for i := range tokens {
		_, tokens[i] = app.createUser(t, false)
	}

	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			resp := app.request(t, http.MethodPost, votePath(q), token, map[string]any{"choice_id": q.Choices[0].ID})
			resp.Body.Close()
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
		}(token)
	}
	wg.Wait()

	assert.Equal(t, int64(voters), app.choiceVotes(t, q.Choices[0].ID))
}
