package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/config"
	"quiz-app-service/internal/infra/memory"
	mongostore "quiz-app-service/internal/infra/mongo"
	pgstore "quiz-app-service/internal/infra/postgres"
	rediscache "quiz-app-service/internal/infra/redis"
	"quiz-app-service/internal/logging"
	transport "quiz-app-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type stores struct {
	users    app.UserRepository
	quizzes  app.QuizStore
	results  app.ResultStore
	cache    app.QuizRepository
	sessions app.SessionRepository
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("persistence unavailable", zap.Error(err))
		return err
	}
	defer st.close()

	sessionOpts := app.SessionOptions{
		QuestionSeconds: cfg.Quiz.QuestionSeconds,
		MaxQuestions:    cfg.Quiz.MaxQuestions,
	}
	results := app.NewResultService(st.results)
	handler := transport.NewRouter(transport.Deps{
		Users:       app.NewUserService(st.users, cfg.Users.BcryptCost),
		Tokens:      app.NewTokenService(st.users, []byte(cfg.Auth.JWTSecret), config.TTLDuration(cfg.Auth.TokenTTL, app.DefaultTokenTTL)),
		Quizzes:     app.NewQuizService(st.quizzes, st.cache, logger),
		Results:     results,
		Sessions:    app.NewSessionService(st.sessions, st.cache, results, sessionOpts),
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case err := <-errCh:
		logger.Error("failed to start server", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStores connects every configured backend. A configured backend that cannot be
// reached is an error; an unconfigured one falls back to memory.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{}
	ok := false
	defer func() {
		if !ok {
			st.close()
		}
	}()

	if cfg.Mongo.URI != "" {
		client, db, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Disconnect(context.Background()) })
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		st.users = mongostore.NewUserStore(db)
		st.quizzes = mongostore.NewQuizStore(db)
		st.results = mongostore.NewResultStore(db)
		logger.Info("using mongodb", zap.String("database", cfg.Mongo.Database))
	} else {
		logger.Warn("mongo.uri not set, using in-memory stores")
		st.users = memory.NewUserRepository()
		st.results = memory.NewResultStore()
	}

	if cfg.Users.Backend == config.UsersBackendPostgres {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.users = pgstore.NewUserRepository(pool)
		logger.Info("using postgres credential store")
	}

	if st.quizzes == nil {
		st.quizzes = memory.NewQuizStore(st.users)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
		st.cache = rediscache.NewQuizRepository(redisClient, st.quizzes, quizTTL)
		st.sessions = rediscache.NewSessionStore(redisClient, redisTTL)
		logger.Info("using redis quiz cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		st.cache = memory.NewQuizRepository(st.quizzes, quizTTL)
		st.sessions = memory.NewSessionStore()
	}

	ok = true
	return st, nil
}
