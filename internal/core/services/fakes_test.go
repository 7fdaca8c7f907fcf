package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

// memStore backs every fake repository with one mutex, so multi-table
// operations behave like a single transaction.
type memStore struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*domain.Question
	votes     map[[2]uuid.UUID]*domain.Vote // {user, question}
	snapshots map[uuid.UUID]*domain.ResultSnapshot
	users     map[uuid.UUID]*domain.User
	profiles  map[uuid.UUID]*domain.Profile
	tokens    map[string]*domain.RefreshToken

	failSaveAccount error
}

func newMemStore() *memStore {
	return &memStore{
		questions: make(map[uuid.UUID]*domain.Question),
		votes:     make(map[[2]uuid.UUID]*domain.Vote),
		snapshots: make(map[uuid.UUID]*domain.ResultSnapshot),
		users:     make(map[uuid.UUID]*domain.User),
		profiles:  make(map[uuid.UUID]*domain.Profile),
		tokens:    make(map[string]*domain.RefreshToken),
	}
}

func cloneQuestion(q *domain.Question) *domain.Question {
	c := *q
	c.Choices = append([]domain.Choice{}, q.Choices...)
	return &c
}

func (s *memStore) addUser(username string, staff bool) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: uuid.New(), Username: username, Email: username + "@example.com", IsStaff: staff, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addQuestion(text string, publishedAt time.Time, lifespan int, choices ...string) *domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := &domain.Question{ID: uuid.New(), Text: text, PublishedAt: publishedAt, LifespanDays: lifespan}
	for i, c := range choices {
		q.Choices = append(q.Choices, domain.Choice{ID: uuid.New(), QuestionID: q.ID, Text: c, Position: i})
	}
	s.questions[q.ID] = q
	return cloneQuestion(q)
}

func (s *memStore) question(id uuid.UUID) *domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneQuestion(s.questions[id])
}

func (s *memStore) voteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.votes)
}

// --- questions ---

type memQuestionRepo struct{ s *memStore }

func (r memQuestionRepo) Create(ctx context.Context, q *domain.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.questions[q.ID]; ok {
		return domain.ErrIntegrityConflict
	}
	r.s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (r memQuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (r memQuestionRepo) sorted() []*domain.Question {
	out := make([]*domain.Question, 0, len(r.s.questions))
	for _, q := range r.s.questions {
		out = append(out, cloneQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out
}

func page(qs []*domain.Question, limit, offset int) []*domain.Question {
	if offset >= len(qs) {
		return nil
	}
	end := offset + limit
	if end > len(qs) {
		end = len(qs)
	}
	return qs[offset:end]
}

func (r memQuestionRepo) ListActive(ctx context.Context, now time.Time, limit, offset int) ([]*domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(domain.FilterActive(r.sorted(), now), limit, offset), nil
}

func (r memQuestionRepo) SearchActive(ctx context.Context, now time.Time, limit, offset int, query string) ([]*domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*domain.Question
	for _, q := range domain.FilterActive(r.sorted(), now) {
		if strings.Contains(strings.ToLower(q.Text), strings.ToLower(query)) {
			matched = append(matched, q)
		}
	}
	return page(matched, limit, offset), nil
}

func (r memQuestionRepo) ListExpired(ctx context.Context, now time.Time) ([]*domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return domain.FilterExpired(r.sorted(), now), nil
}

func (r memQuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(r.s.questions, id)
	delete(r.s.snapshots, id)
	for k := range r.s.votes {
		if k[1] == id {
			delete(r.s.votes, k)
		}
	}
	return nil
}

// --- votes ---

type memVoteRepo struct{ s *memStore }

func (r memVoteRepo) Cast(ctx context.Context, v *domain.Vote) (*domain.Choice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	q, ok := r.s.questions[v.QuestionID]
	if !ok {
		return nil, domain.ErrIntegrityConflict
	}
	if _, ok := r.s.users[v.UserID]; !ok {
		return nil, domain.ErrIntegrityConflict
	}

	key := [2]uuid.UUID{v.UserID, v.QuestionID}
	if existing, ok := r.s.votes[key]; ok {
		c, _ := q.Choice(existing.ChoiceID)
		return nil, &domain.AlreadyVotedError{Choice: c}
	}

	for i := range q.Choices {
		if q.Choices[i].ID == v.ChoiceID {
			stored := *v
			r.s.votes[key] = &stored
			q.Choices[i].VoteCount++
			c := q.Choices[i]
			return &c, nil
		}
	}
	return nil, domain.ErrInvalidChoice
}

func (r memVoteRepo) GetByUserAndQuestion(ctx context.Context, userID, questionID uuid.UUID) (*domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.votes[[2]uuid.UUID{userID, questionID}]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

// --- results ---

type memResultRepo struct{ s *memStore }

func (r memResultRepo) SaveSnapshot(ctx context.Context, snap *domain.ResultSnapshot) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.snapshots[snap.QuestionID]; ok {
		return false, nil
	}
	c := *snap
	r.s.snapshots[snap.QuestionID] = &c
	return true, nil
}

func (r memResultRepo) GetSnapshot(ctx context.Context, questionID uuid.UUID) (*domain.ResultSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	snap, ok := r.s.snapshots[questionID]
	if !ok {
		return nil, nil
	}
	c := *snap
	return &c, nil
}

func (r memResultRepo) ListUnsummarized(ctx context.Context, now time.Time) ([]*domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Question
	for _, q := range domain.FilterExpired(memQuestionRepo(r).sorted(), now) {
		if _, ok := r.s.snapshots[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// --- users and profiles ---

type memUserRepo struct{ s *memStore }

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.uniqueAccount(uuid.Nil, user.Username, user.Email); err != nil {
		return err
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (s *memStore) uniqueAccount(self uuid.UUID, username, email string) error {
	v := &domain.ValidationError{}
	for id, u := range s.users {
		if id == self {
			continue
		}
		if u.Username == username {
			v.Add("username", "a user with that username already exists")
		}
		if u.Email == email {
			v.Add("email", "a user with that email already exists")
		}
	}
	return v.Err()
}

type memProfileRepo struct{ s *memStore }

func (r memProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r memProfileRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	p, ok := r.s.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID}
		r.s.profiles[userID] = p
	}
	c := *p
	return &c, nil
}

func (r memProfileRepo) SaveAccount(ctx context.Context, user *domain.User, profile *domain.Profile) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failSaveAccount != nil {
		return "", r.s.failSaveAccount
	}
	stored, ok := r.s.users[user.ID]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	if err := r.s.uniqueAccount(user.ID, user.Username, user.Email); err != nil {
		return "", err
	}
	stored.Username = user.Username
	stored.Email = user.Email

	var previous string
	if p, ok := r.s.profiles[user.ID]; ok {
		previous = p.Avatar
	}
	if profile.Avatar == "" {
		profile.Avatar = previous
	}
	p := *profile
	p.UserID = user.ID
	r.s.profiles[user.ID] = &p
	if previous == profile.Avatar {
		return "", nil
	}
	return previous, nil
}

func (r memProfileRepo) ReplaceAvatar(ctx context.Context, userID uuid.UUID, avatar string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failSaveAccount != nil {
		return "", r.s.failSaveAccount
	}
	if _, ok := r.s.users[userID]; !ok {
		return "", domain.ErrUserNotFound
	}
	p, ok := r.s.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID}
		r.s.profiles[userID] = p
	}
	previous := p.Avatar
	p.Avatar = avatar
	return previous, nil
}

func (r memProfileRepo) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.profiles, userID)
	if _, ok := r.s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, userID)
	for k := range r.s.votes {
		if k[0] == userID {
			delete(r.s.votes, k)
		}
	}
	for h, t := range r.s.tokens {
		if t.UserID == userID {
			delete(r.s.tokens, h)
		}
	}
	return nil
}

// --- auth ---

type memAuthRepo struct{ s *memStore }

func (r memAuthRepo) StoreRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	c := *t
	r.s.tokens[t.TokenHash] = &c
	return nil
}

func (r memAuthRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[hash]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r memAuthRepo) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

type stubVerifier struct {
	payload *ports.TokenPayload
}

func (v stubVerifier) Verify(ctx context.Context, token, clientID string) (*ports.TokenPayload, error) {
	if token != "valid" || v.payload == nil {
		return nil, errors.New("bad token")
	}
	return v.payload, nil
}

// --- files ---

type memFileStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (f *memFileStore) Save(ctx context.Context, folder string, u *domain.ImageUpload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	ref := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), u.Extension())
	f.files[ref] = u.Data
	return ref, nil
}

func (f *memFileStore) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, ref)
	return nil
}

func (f *memFileStore) has(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[ref]
	return ok
}

func (f *memFileStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
