package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-app-service/internal/domain"
)

// UserLookup resolves creators for expanded reads.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// QuizStore keeps quizzes in insertion order. When users is set, reads return
// expanded creators, mirroring the joined reads of the MongoDB store.
type QuizStore struct {
	users UserLookup
	clock func() time.Time

	mu      sync.RWMutex
	order   []string
	quizzes map[string]domain.Quiz
}

func NewQuizStore(users UserLookup) *QuizStore {
	return &QuizStore{
		users:   users,
		clock:   time.Now,
		quizzes: make(map[string]domain.Quiz),
	}
}

func (s *QuizStore) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	quiz = cloneQuiz(quiz)
	quiz.ID = uuid.NewString()
	quiz.CreatedAt = s.clock().UTC()
	quiz.Creator = domain.ReferenceTo(quiz.Creator.UserID())

	s.mu.Lock()
	s.quizzes[quiz.ID] = quiz
	s.order = append(s.order, quiz.ID)
	s.mu.Unlock()

	return s.expand(ctx, cloneQuiz(quiz)), nil
}

func (s *QuizStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	quiz, ok := s.quizzes[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.expand(ctx, cloneQuiz(quiz)), nil
}

func (s *QuizStore) List(ctx context.Context) ([]domain.Quiz, error) {
	return s.filter(ctx, func(domain.Quiz) bool { return true }), nil
}

func (s *QuizStore) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	return s.filter(ctx, func(q domain.Quiz) bool { return q.Category == category }), nil
}

func (s *QuizStore) Update(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	existing, ok := s.quizzes[quiz.ID]
	if !ok {
		s.mu.Unlock()
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	candidate := cloneQuiz(existing)
	candidate.Title = quiz.Title
	candidate.Questions = cloneQuiz(quiz).Questions
	if err := domain.ValidateQuiz(candidate); err != nil {
		s.mu.Unlock()
		return domain.Quiz{}, err
	}
	s.quizzes[quiz.ID] = candidate
	s.mu.Unlock()

	return s.expand(ctx, cloneQuiz(candidate)), nil
}

func (s *QuizStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *QuizStore) filter(ctx context.Context, keep func(domain.Quiz) bool) []domain.Quiz {
	s.mu.RLock()
	out := make([]domain.Quiz, 0, len(s.order))
	for _, id := range s.order {
		if q := s.quizzes[id]; keep(q) {
			out = append(out, cloneQuiz(q))
		}
	}
	s.mu.RUnlock()

	for i := range out {
		out[i] = s.expand(ctx, out[i])
	}
	return out
}

func (s *QuizStore) expand(ctx context.Context, quiz domain.Quiz) domain.Quiz {
	if s.users == nil {
		return quiz
	}
	u, err := s.users.GetByID(ctx, quiz.Creator.UserID())
	if err != nil {
		return quiz
	}
	quiz.Creator = domain.ExpandedTo(u.ID, u.Username)
	return quiz
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	if q.Questions != nil {
		out.Questions = make([]domain.Question, len(q.Questions))
		for i, question := range q.Questions {
			out.Questions[i] = question
			if question.Options != nil {
				out.Questions[i].Options = append([]string(nil), question.Options...)
			}
		}
	}
	return out
}
