package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-app-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	store := NewQuizStore(nil)
	created, err := store.Create(context.Background(), sampleQuiz())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), created.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), created.ID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewQuizStore(nil)
	created, err := store.Create(ctx, sampleQuiz())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(ctx, created.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	created.Title = "Renamed"
	if _, err := store.Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.Invalidate(ctx, created.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	got, err := repo.GetQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("expected fresh title, got %q", got.Title)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewQuizStore(nil)}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.calls)
	}
}

func TestQuizRepositoryInvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	store := NewQuizStore(nil)
	created, err := store.Create(ctx, sampleQuiz())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loader := newGatedLoader(store)
	repo := NewQuizRepository(loader, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := repo.GetQuiz(ctx, created.ID)
		done <- err
	}()
	<-loader.entered

	created.Title = "Renamed"
	if _, err := store.Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.Invalidate(ctx, created.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight load: %v", err)
	}

	got, err := repo.GetQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("stale load was cached after invalidation, got %q", got.Title)
	}
}

// gatedLoader holds its first load open, after reading, until release is closed.
type gatedLoader struct {
	QuizLoader
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedLoader(inner QuizLoader) *gatedLoader {
	return &gatedLoader{QuizLoader: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLoader) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := l.QuizLoader.Get(ctx, quizID)
	first := false
	l.once.Do(func() { first = true })
	if first {
		close(l.entered)
		<-l.release
	}
	return quiz, err
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.Get(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title:    "Capitals",
		Category: "Geographie",
		Creator:  domain.ReferenceTo("user-1"),
		Questions: []domain.Question{
			{
				Statement:          "What is the capital of France?",
				Options:            []string{"Lyon", "Paris", "Nice"},
				CorrectOptionIndex: 1,
				Difficulty:         domain.DifficultyEasy,
			},
		},
	}
}
