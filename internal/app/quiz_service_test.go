package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/infra/memory"
)

func TestCreateAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	service := newQuizService()
	alice := domain.Identity{UserID: "alice-id", Username: "alice"}

	input := sampleQuiz(2)
	input.Creator = domain.ReferenceTo("someone-else")
	created, err := service.Create(ctx, alice, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", created)
	}
	if created.Creator.UserID() != alice.UserID {
		t.Fatalf("creator must come from the caller, got %q", created.Creator.UserID())
	}

	got, err := service.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != input.Title || got.Category != input.Category || len(got.Questions) != 2 {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if got.Questions[1].Statement != input.Questions[1].Statement || got.Questions[1].CorrectOptionIndex != 1 {
		t.Fatalf("question order or content changed: %+v", got.Questions)
	}
}

func TestOwnershipForbiddenVersusNotFound(t *testing.T) {
	ctx := context.Background()
	service := newQuizService()
	alice := domain.Identity{UserID: "alice-id", Username: "alice"}
	bob := domain.Identity{UserID: "bob-id", Username: "bob"}

	created, err := service.Create(ctx, alice, sampleQuiz(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	update := created
	update.Title = "Hijacked"
	if _, err := service.Update(ctx, bob, update); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for bob, got %v", err)
	}
	if err := service.Delete(ctx, bob, created.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden delete for bob, got %v", err)
	}

	update.ID = "unknown"
	if _, err := service.Update(ctx, bob, update); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	update = created
	update.Title = "Renamed"
	updated, err := service.Update(ctx, alice, update)
	if err != nil {
		t.Fatalf("alice update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("expected new title, got %q", updated.Title)
	}
	if err := service.Delete(ctx, alice, created.ID); err != nil {
		t.Fatalf("alice delete: %v", err)
	}
	if _, err := service.Get(ctx, created.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected deleted quiz gone from cache too, got %v", err)
	}
}

func TestAuthorizeMutationBothCreatorForms(t *testing.T) {
	caller := domain.Identity{UserID: "u1", Username: "alice"}
	for _, creator := range []domain.Creator{domain.ReferenceTo("u1"), domain.ExpandedTo("u1", "alice")} {
		if err := app.AuthorizeMutation(domain.Quiz{Creator: creator}, caller); err != nil {
			t.Fatalf("owner rejected for %+v: %v", creator, err)
		}
	}
	for _, creator := range []domain.Creator{domain.ReferenceTo("u2"), domain.ExpandedTo("u2", "alice"), {}} {
		if err := app.AuthorizeMutation(domain.Quiz{Creator: creator}, caller); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected forbidden for %+v, got %v", creator, err)
		}
	}
}

func TestInvalidQuizPersistsNothing(t *testing.T) {
	ctx := context.Background()
	service := newQuizService()
	caller := domain.Identity{UserID: "u1"}

	bad := sampleQuiz(1)
	bad.Questions[0].Options = []string{"only one"}
	bad.Questions[0].CorrectOptionIndex = 0
	if _, err := service.Create(ctx, caller, bad); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	all, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(all))
	}
}

func TestListByCategoryExactMatch(t *testing.T) {
	ctx := context.Background()
	service := newQuizService()
	caller := domain.Identity{UserID: "u1"}

	for _, category := range []string{"Histoire", "Science", "histoire"} {
		q := sampleQuiz(1)
		q.Category = category
		if _, err := service.Create(ctx, caller, q); err != nil {
			t.Fatalf("create %s: %v", category, err)
		}
	}
	got, err := service.ListByCategory(ctx, "Histoire")
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(got) != 1 || got[0].Category != "Histoire" {
		t.Fatalf("expected only the exact category, got %+v", got)
	}
	if _, err := service.ListByCategory(ctx, ""); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for empty category, got %v", err)
	}
}

func TestFailedInvalidationIsLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuizStore(nil)
	core, logs := observer.New(zap.WarnLevel)
	service := app.NewQuizService(store, failingCache{store}, zap.New(core))
	caller := domain.Identity{UserID: "u1"}

	created, err := service.Create(ctx, caller, sampleQuiz(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created.Title = "Renamed"
	if _, err := service.Update(ctx, caller, created); err != nil {
		t.Fatalf("update must succeed once stored, got %v", err)
	}
	if err := service.Delete(ctx, caller, created.ID); err != nil {
		t.Fatalf("delete must succeed once stored, got %v", err)
	}

	entries := logs.FilterMessage("quiz cache invalidation failed").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(entries))
	}
	if id := entries[0].ContextMap()["quiz_id"]; id != created.ID {
		t.Fatalf("expected quiz_id %s in log, got %v", created.ID, id)
	}
}

type failingCache struct {
	store app.QuizStore
}

func (c failingCache) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	return c.store.Get(ctx, id)
}

func (failingCache) Invalidate(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func newQuizService() *app.QuizService {
	store := memory.NewQuizStore(nil)
	return app.NewQuizService(store, memory.NewQuizRepository(store, time.Minute), zap.NewNop())
}

func sampleQuiz(questions int) domain.Quiz {
	q := domain.Quiz{Title: "Capitals", Category: "Geographie"}
	statements := []string{"France?", "Italy?", "Spain?", "Portugal?", "Greece?", "Poland?",
		"Austria?", "Sweden?", "Norway?", "Finland?", "Ireland?", "Belgium?"}
	for i := 0; i < questions; i++ {
		q.Questions = append(q.Questions, domain.Question{
			Statement:          statements[i%len(statements)],
			Options:            []string{"A", "B", "C"},
			CorrectOptionIndex: 1,
			Difficulty:         domain.DifficultyEasy,
		})
	}
	return q
}
