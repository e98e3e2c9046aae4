package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-app-service/internal/domain"
)

// ResultStore is an append-only in-memory result log.
type ResultStore struct {
	clock func() time.Time

	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{clock: time.Now}
}

// NewResultStoreWithClock is test-only for deterministic timestamps.
func NewResultStoreWithClock(now func() time.Time) *ResultStore {
	return &ResultStore{clock: now}
}

func (s *ResultStore) Add(_ context.Context, r domain.Result) (domain.Result, error) {
	if err := domain.ValidateResult(r); err != nil {
		return domain.Result{}, err
	}
	r.ID = uuid.NewString()
	r.SubmittedAt = s.clock().UTC()

	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
	return r, nil
}

func (s *ResultStore) Leaderboard(_ context.Context, quizID string) ([]domain.Result, error) {
	s.mu.RLock()
	board := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.QuizID == quizID {
			board = append(board, r)
		}
	}
	s.mu.RUnlock()

	// results are kept in insertion order, so a stable sort breaks ties by submission
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	return board, nil
}
