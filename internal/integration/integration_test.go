package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap/zaptest"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
	mongostore "quiz-app-service/internal/infra/mongo"
	pgstore "quiz-app-service/internal/infra/postgres"
	pgmigrations "quiz-app-service/internal/infra/postgres/migrations"
	infraredis "quiz-app-service/internal/infra/redis"
)

func TestMongoStoresEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	mongoURI, mongoCleanup := startMongo(t, ctx)
	defer mongoCleanup()

	client, db, err := mongostore.Connect(ctx, mongoURI, "quiz_test")
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	defer client.Disconnect(ctx)
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("indexes: %v", err)
	}

	users := mongostore.NewUserStore(db)
	alice := domain.User{Username: "alice", PasswordHash: "hash"}
	if err := users.Create(ctx, &alice); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := users.Create(ctx, &domain.User{Username: "alice", PasswordHash: "x"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected duplicate username rejected, got %v", err)
	}
	if _, err := users.GetByID(ctx, "not-an-object-id"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("malformed id must be not found, got %v", err)
	}

	quizzes := mongostore.NewQuizStore(db)
	service := app.NewQuizService(quizzes, nopCache{quizzes}, zaptest.NewLogger(t))
	caller := domain.Identity{UserID: alice.ID, Username: alice.Username}

	created, err := service.Create(ctx, caller, sampleQuiz("Histoire"))
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if created.Creator.Kind != domain.CreatorExpanded || created.Creator.DisplayName() != "alice" {
		t.Fatalf("expected expanded creator, got %+v", created.Creator)
	}
	if _, err := service.Create(ctx, caller, sampleQuiz("Science")); err != nil {
		t.Fatalf("create quiz 2: %v", err)
	}
	bad := sampleQuiz("Histoire")
	bad.Questions[0].CorrectOptionIndex = 9
	if _, err := service.Create(ctx, caller, bad); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	histoire, err := service.ListByCategory(ctx, "Histoire")
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(histoire) != 1 || histoire[0].ID != created.ID {
		t.Fatalf("expected one Histoire quiz, got %+v", histoire)
	}

	update := created
	update.Title = "Rome antique"
	if _, err := service.Update(ctx, domain.Identity{UserID: "someone-else"}, update); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := service.Update(ctx, caller, update)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Rome antique" || updated.Category != "Histoire" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if _, err := quizzes.Get(ctx, "zzz"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("malformed quiz id must be not found, got %v", err)
	}

	results := mongostore.NewResultStore(db)
	names := []string{"Ana", "Bob", "Cléo", "Dan"}
	for i, score := range []int{3, 7, 7, 2} {
		if _, err := results.Add(ctx, domain.Result{QuizID: created.ID, ParticipantName: names[i], Score: score}); err != nil {
			t.Fatalf("add result: %v", err)
		}
		// submitted_at has millisecond precision
		time.Sleep(2 * time.Millisecond)
	}
	board, err := results.Leaderboard(ctx, created.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []string{"Bob", "Cléo", "Ana", "Dan"}
	for i, name := range want {
		if board[i].ParticipantName != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, board[i].ParticipantName)
		}
	}

	if err := service.Delete(ctx, caller, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := quizzes.Get(ctx, created.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected deleted quiz gone, got %v", err)
	}
}

func TestRedisCacheOverMongo(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	mongoURI, mongoCleanup := startMongo(t, ctx)
	defer mongoCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	client, db, err := mongostore.Connect(ctx, mongoURI, "quiz_cache_test")
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	quizzes := mongostore.NewQuizStore(db)
	cache := infraredis.NewQuizRepository(redisClient, quizzes, 5*time.Minute)
	service := app.NewQuizService(quizzes, cache, zaptest.NewLogger(t))
	caller := domain.Identity{UserID: "u1"}

	created, err := service.Create(ctx, caller, sampleQuiz("Histoire"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.Get(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if n, _ := redisClient.Exists(ctx, "quiz:"+created.ID+":doc").Result(); n != 1 {
		t.Fatalf("expected cached quiz document")
	}

	update := created
	update.Title = "Renamed"
	if _, err := service.Update(ctx, caller, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := service.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("expected fresh title after invalidation, got %q", got.Title)
	}
}

func TestPostgresUserRepository(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateUsers(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	repo := pgstore.NewUserRepository(pool)
	u := domain.User{Username: "alice", PasswordHash: "h1"}
	if err := repo.Create(ctx, &u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "h2"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected duplicate rejected, got %v", err)
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "h1" {
		t.Fatalf("unexpected user %+v", got)
	}

	got.Username = "alice2"
	got.PasswordHash = "h3"
	updated, err := repo.Update(ctx, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "alice2" || updated.PasswordHash != "h3" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}

// nopCache reads straight through to the store.
type nopCache struct {
	store app.QuizStore
}

func (c nopCache) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	return c.store.Get(ctx, id)
}

func (nopCache) Invalidate(context.Context, string) error { return nil }

func startMongo(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start mongo: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("mongo host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("mongo port: %v", err)
	}
	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	return uri, func() {
		_ = container.Terminate(ctx)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateUsers(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz(category string) domain.Quiz {
	return domain.Quiz{
		Title:    "Rome",
		Category: category,
		Questions: []domain.Question{
			{
				Statement:          "When was Rome founded?",
				Options:            []string{"753 BC", "1066", "1492"},
				CorrectOptionIndex: 0,
				Difficulty:         domain.DifficultyMedium,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
