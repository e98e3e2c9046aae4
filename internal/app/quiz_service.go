package app

import (
	"context"

	"go.uber.org/zap"

	"quiz-app-service/internal/domain"
)

// QuizStore is the persistent quiz collection. Implementations validate every write
// with domain.ValidateQuiz and persist nothing on failure.
type QuizStore interface {
	Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	Get(ctx context.Context, id string) (domain.Quiz, error)
	List(ctx context.Context) ([]domain.Quiz, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error)
	// Update replaces title and questions only.
	Update(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	Delete(ctx context.Context, id string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string) error
}

// QuizService contains the quiz use cases. Mutations take the caller explicitly.
type QuizService struct {
	store   QuizStore
	quizzes QuizRepository
	log     *zap.Logger
}

func NewQuizService(store QuizStore, quizzes QuizRepository, log *zap.Logger) *QuizService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizService{store: store, quizzes: quizzes, log: log}
}

// Create stores quiz with the caller as its creator. Any creator in the payload is ignored.
func (s *QuizService) Create(ctx context.Context, caller domain.Identity, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = ""
	quiz.Creator = domain.ReferenceTo(caller.UserID)
	return s.store.Create(ctx, quiz)
}

// Get reads a quiz through the cache.
func (s *QuizService) Get(ctx context.Context, id string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, id)
}

// List returns every quiz.
func (s *QuizService) List(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.List(ctx)
}

// ListByCategory returns quizzes whose category equals category exactly.
func (s *QuizService) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	if category == "" {
		return nil, domain.NewValidationError("category", "is required")
	}
	return s.store.ListByCategory(ctx, category)
}

// Update changes title and questions. Unknown quiz is ErrQuizNotFound, someone else's
// quiz is ErrForbidden.
func (s *QuizService) Update(ctx context.Context, caller domain.Identity, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		return domain.Quiz{}, domain.NewValidationError("id", "is required")
	}
	existing, err := s.store.Get(ctx, quiz.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := AuthorizeMutation(existing, caller); err != nil {
		return domain.Quiz{}, err
	}

	existing.Title = quiz.Title
	existing.Questions = quiz.Questions
	updated, err := s.store.Update(ctx, existing)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quiz.ID)
	return updated, nil
}

// Delete removes a quiz owned by caller.
func (s *QuizService) Delete(ctx context.Context, caller domain.Identity, id string) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeMutation(existing, caller); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// invalidate runs after the store write succeeded, so a cache failure is logged rather than
// returned; the entry still expires with its TTL.
func (s *QuizService) invalidate(ctx context.Context, id string) {
	if err := s.quizzes.Invalidate(ctx, id); err != nil {
		s.log.Warn("quiz cache invalidation failed", zap.String("quiz_id", id), zap.Error(err))
	}
}
