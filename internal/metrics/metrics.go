// Package metrics exposes Prometheus counters for the polls service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Vote outcomes recorded by RecordVote.
const (
	VoteAccepted     = "accepted"
	VoteAlreadyVoted = "already_voted"
	VoteClosed       = "closed"
	VoteInvalid      = "invalid_choice"
	VoteRateLimited  = "rate_limited"
	VoteError        = "error"
)

type Collector struct {
	votes            *prometheus.CounterVec
	questionsCreated prometheus.Counter
	httpStatus       *prometheus.CounterVec
	httpLatency      prometheus.Histogram
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polls_votes_total",
			Help: "Vote attempts by outcome.",
		}, []string{"outcome"}),
		questionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polls_questions_created_total",
			Help: "Questions created.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polls_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "polls_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.votes,
		c.questionsCreated,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordVote(outcome string) {
	c.votes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordQuestionCreated() {
	c.questionsCreated.Inc()
}

func (c *Collector) RecordHTTPRequest(statusCode int, duration time.Duration) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
