package app

import (
	"context"
	"errors"
	"time"

	"quiz-app-service/internal/domain"
)

// RunCountdown ticks s once per interval until the session is finished or abandoned,
// or ctx is canceled. The ticker restarts whenever a new question opens so every
// question gets its full countdown.
func RunCountdown(ctx context.Context, s *Session, interval time.Duration) error {
	updates, cancel := s.Subscribe()
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			switch snap.State {
			case StateFinished, StateAbandoned:
				return nil
			case StateInProgress:
				if snap.QuestionIndex != current {
					current = snap.QuestionIndex
					ticker.Reset(interval)
				}
			}
		case <-ticker.C:
			if current < 0 {
				continue
			}
			if _, err := s.Tick(ctx, current); err != nil {
				switch {
				case errors.Is(err, domain.ErrQuestionNotFound):
					// a manual "next" won the race; the new index arrives on updates
					continue
				case errors.Is(err, domain.ErrSessionNotActive):
					return nil
				default:
					return err
				}
			}
		}
	}
}
