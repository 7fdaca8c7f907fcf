package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionWithCounts(counts ...int64) *Question {
	q := &Question{ID: uuid.New()}
	for i, c := range counts {
		q.Choices = append(q.Choices, Choice{ID: uuid.New(), QuestionID: q.ID, Position: i, VoteCount: c})
	}
	return q
}

func TestComputeResults(t *testing.T) {
	tests := []struct {
		name   string
		counts []int64
		want   []float64
	}{
		{"no votes", []int64{0, 0}, []float64{0, 0}},
		{"thirds", []int64{1, 1, 1}, []float64{33.3, 33.3, 33.3}},
		{"two to one", []int64{2, 1}, []float64{66.7, 33.3}},
		{"single", []int64{4}, []float64{100}},
		{"no choices", nil, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := ComputeResults(questionWithCounts(tt.counts...))
			require.Len(t, results, len(tt.want))
			for i, r := range results {
				assert.Equal(t, tt.want[i], r.Percent)
				assert.Equal(t, i, r.Choice.Position)
			}
		})
	}
}

func TestNewResultSnapshot(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	q := questionWithCounts(3, 1)

	snap := NewResultSnapshot(q, now)
	assert.Equal(t, q.ID, snap.QuestionID)
	assert.Equal(t, int64(4), snap.TotalVotes)
	assert.Equal(t, now, snap.ComputedAt)
	assert.False(t, snap.Final)
	assert.Equal(t, 75.0, snap.Results[0].Percent)
	assert.Equal(t, 25.0, snap.Results[1].Percent)
}
