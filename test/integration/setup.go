package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/polls/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/polls/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/polls/internal/adapters/storage/local"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
	"github.com/vncsmyrnk/polls/internal/core/services"
	"github.com/vncsmyrnk/polls/internal/metrics"
)

const (
	testJWTSecret  = "test-secret"
	testMaxUpload  = 64 * 1024
	testGoogleUser = "test@example.com"
)

// MockVerifier accepts the Google token "valid_token" for a fixed email.
type MockVerifier struct {
	email string
}

func (v *MockVerifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	if token == "valid_token" {
		return &ports.TokenPayload{Email: v.email}, nil
	}
	return nil, assert.AnError
}

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	Questions   ports.QuestionRepository
	Votes       ports.VoteRepository
	Profiles    ports.ProfileRepository
	SummarySvc  ports.SummaryService
	DBContainer testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations(dbURL))

	db, err := repo.Open(ctx, dbURL)
	require.NoError(t, err)

	files, err := local.NewFileStore(t.TempDir())
	require.NoError(t, err)

	questionRepo := repo.NewQuestionRepository(db)
	voteRepo := repo.NewVoteRepository(db)
	resultRepo := repo.NewResultRepository(db)
	userRepo := repo.NewUserRepository(db)
	profileRepo := repo.NewProfileRepository(db)
	authRepo := repo.NewAuthRepository(db)

	questionSvc := services.NewQuestionService(questionRepo, resultRepo, userRepo, files, testMaxUpload)
	voteSvc := services.NewVoteService(questionRepo, voteRepo)
	profileSvc := services.NewProfileService(userRepo, profileRepo, questionRepo, files, testMaxUpload)
	authSvc := services.NewAuthService(userRepo, authRepo, &MockVerifier{email: testGoogleUser}, testJWTSecret, "client-id")

	collector := metrics.NewCollector(prometheus.NewRegistry())
	cookies := handler.CookieSettings{SameSite: http.SameSiteLaxMode}
	limiter := handler.NewVoteLimiter(1000, time.Minute, collector)
	t.Cleanup(limiter.Stop)

	router := handler.NewHandler(handler.RouterConfig{
		Questions:      handler.NewQuestionHandler(questionSvc, voteSvc, collector, testMaxUpload),
		Votes:          handler.NewVoteHandler(voteSvc, collector),
		Profiles:       handler.NewProfileHandler(profileSvc, cookies, testMaxUpload),
		Auth:           handler.NewAuthHandler(authSvc, "https://example.com/redirect", cookies),
		AuthMiddleware: handler.NewAuthMiddleware(authSvc),
		VoteLimiter:    limiter,
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Metrics:        collector,
		MediaDir:       files.Root(),
	})

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Questions:   questionRepo,
		Votes:       voteRepo,
		Profiles:    profileRepo,
		SummarySvc:  services.NewSummaryService(resultRepo),
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %s", err)
	}
}

// createUser inserts an account directly and returns it with a signed access token.
func (app *TestApp) createUser(t *testing.T, staff bool) (uuid.UUID, string) {
	t.Helper()

	userID := uuid.New()
	username := "user-" + userID.String()[:8]
	email := username + "@example.com"
	_, err := app.DB.Exec("INSERT INTO users (id, username, email, is_staff) VALUES ($1, $2, $3, $4)", userID, username, email, staff)
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	return userID, token
}

// insertQuestion stores a question published at publishedAt, bypassing the API
// so tests can place it anywhere in its lifecycle.
func (app *TestApp) insertQuestion(t *testing.T, text string, publishedAt time.Time, lifespanDays int, choices ...string) *domain.Question {
	t.Helper()

	q := &domain.Question{
		ID:           uuid.New(),
		Text:         text,
		PublishedAt:  publishedAt.UTC().Truncate(time.Microsecond),
		LifespanDays: lifespanDays,
	}
	for i, c := range choices {
		q.Choices = append(q.Choices, domain.Choice{ID: uuid.New(), QuestionID: q.ID, Text: c, Position: i})
	}
	require.NoError(t, app.Questions.Create(context.Background(), q))
	return q
}

func (app *TestApp) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type apiError struct {
	Code     string            `json:"code"`
	Next     string            `json:"next"`
	Fields   map[string]string `json:"fields"`
	ChoiceID *uuid.UUID        `json:"choice_id"`
	HasVoted *bool             `json:"has_voted"`
}

type questionBody struct {
	domain.Question
	Active   bool  `json:"active"`
	HasVoted *bool `json:"has_voted"`
}

type questionList struct {
	Questions []questionBody `json:"questions"`
	Page      int            `json:"page"`
}

func (app *TestApp) choiceVotes(t *testing.T, choiceID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, app.DB.QueryRow("SELECT vote_count FROM choices WHERE id = $1", choiceID).Scan(&count))
	return count
}
