package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/metrics"
	"golang.org/x/time/rate"
)

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// VoteLimiter throttles vote attempts per authenticated user. Anonymous
// requests pass through; the vote service answers them.
type VoteLimiter struct {
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	recorder MetricsRecorder

	mu       sync.Mutex
	limiters map[uuid.UUID]*userLimiter

	stopCh chan struct{}
}

// NewVoteLimiter allows perMinute votes per user, with the same burst. Entries
// idle for longer than idleTTL are dropped in the background.
func NewVoteLimiter(perMinute int, idleTTL time.Duration, recorder MetricsRecorder) *VoteLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	vl := &VoteLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		idleTTL:  idleTTL,
		recorder: recorder,
		limiters: make(map[uuid.UUID]*userLimiter),
		stopCh:   make(chan struct{}),
	}

	go vl.cleanupLoop()

	return vl
}

func (vl *VoteLimiter) Stop() {
	close(vl.stopCh)
}

func (vl *VoteLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := principalFrom(r)
		if !principal.IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}

		if !vl.get(principal.UserID).Allow() {
			slog.WarnContext(r.Context(), "vote rate limit exceeded", "user_id", principal.UserID)
			if vl.recorder != nil {
				vl.recorder.RecordVote(metrics.VoteRateLimited)
			}
			retryAfter := int(math.Ceil(1.0 / float64(vl.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Code:    "rate_limited",
				Message: "too many votes, try again later",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Len reports how many users are currently tracked.
func (vl *VoteLimiter) Len() int {
	vl.mu.Lock()
	defer vl.mu.Unlock()
	return len(vl.limiters)
}

func (vl *VoteLimiter) get(userID uuid.UUID) *rate.Limiter {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	ul, ok := vl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(vl.limit, vl.burst)}
		vl.limiters[userID] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter
}

func (vl *VoteLimiter) cleanupLoop() {
	ticker := time.NewTicker(vl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			vl.cleanup(time.Now())
		case <-vl.stopCh:
			return
		}
	}
}

func (vl *VoteLimiter) cleanup(now time.Time) {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	for userID, ul := range vl.limiters {
		if now.Sub(ul.lastAccess) > vl.idleTTL {
			delete(vl.limiters, userID)
		}
	}
}
