package app

import (
	"context"

	"quiz-app-service/internal/domain"
)

// ResultStore is the append-only result collection. Add validates with
// domain.ValidateResult; Leaderboard orders by score descending, ties in insertion order.
type ResultStore interface {
	Add(ctx context.Context, r domain.Result) (domain.Result, error)
	Leaderboard(ctx context.Context, quizID string) ([]domain.Result, error)
}

// ResultService records finished playthroughs and serves leaderboards.
type ResultService struct {
	results ResultStore
}

func NewResultService(results ResultStore) *ResultService {
	return &ResultService{results: results}
}

// Submit normalizes the participant name and stores the result.
func (s *ResultService) Submit(ctx context.Context, r domain.Result) (domain.Result, error) {
	r.ID = ""
	r.ParticipantName = domain.NormalizeParticipantName(r.ParticipantName)
	return s.results.Add(ctx, r)
}

// Leaderboard lists results for quizID, best score first.
func (s *ResultService) Leaderboard(ctx context.Context, quizID string) ([]domain.Result, error) {
	return s.results.Leaderboard(ctx, quizID)
}
