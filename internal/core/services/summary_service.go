package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type summaryService struct {
	resultRepo ports.ResultRepository
}

func NewSummaryService(resultRepo ports.ResultRepository) ports.SummaryService {
	return &summaryService{
		resultRepo: resultRepo,
	}
}

// SummarizeClosedQuestions archives the final results of every question whose
// voting window closed before now and which has no snapshot yet. It returns the
// number of snapshots written.
func (s *summaryService) SummarizeClosedQuestions(ctx context.Context, now time.Time) (int, error) {
	questions, err := s.resultRepo.ListUnsummarized(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch closed questions: %w", err)
	}

	var wg sync.WaitGroup
	var written atomic.Int64
	errChan := make(chan error, len(questions))

	for _, question := range questions {
		wg.Add(1)
		go func(q *domain.Question) {
			defer wg.Done()

			snapshot := domain.NewResultSnapshot(q, now)
			snapshot.Final = true

			ok, err := s.resultRepo.SaveSnapshot(ctx, snapshot)
			if err != nil {
				errChan <- fmt.Errorf("failed to summarize question %s: %w", q.ID, err)
				return
			}
			if ok {
				written.Add(1)
			}
		}(question)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return int(written.Load()), err
		}
	}

	slog.InfoContext(ctx, "closed questions summarized",
		"candidates", len(questions),
		"written", written.Load(),
	)

	return int(written.Load()), nil
}
