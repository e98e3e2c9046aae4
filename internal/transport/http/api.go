package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"quiz-app-service/internal/app"
)

// Deps is everything the router needs.
type Deps struct {
	Users    *app.UserService
	Tokens   *app.TokenService
	Quizzes  *app.QuizService
	Results  *app.ResultService
	Sessions *app.SessionService
	Logger   *zap.Logger

	CORSOrigins []string
	// TickInterval is the countdown step of server-hosted sessions; zero means one second.
	TickInterval time.Duration
}

// API holds the REST handlers.
type API struct {
	users   *app.UserService
	tokens  *app.TokenService
	quizzes *app.QuizService
	results *app.ResultService
	log     *zap.Logger
}

// NewRouter mounts the REST surface, the play websocket and the health check.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	api := &API{users: d.Users, tokens: d.Tokens, quizzes: d.Quizzes, results: d.Results, log: log}
	ws := NewWSHandler(d.Sessions, d.TickInterval, log)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(AccessLog(log))
	r.Use(Recover(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/generatetoken", api.GenerateToken)

	r.Route("/users", func(r chi.Router) {
		r.Get("/all", api.ListUsers)
		r.Get("/{id}", api.GetUser)
		r.Post("/add", api.AddUser)
		r.Put("/update", api.UpdateUser)
		r.Delete("/delete/{id}", api.DeleteUser)
		r.Post("/verifier-nom", api.CheckUsername)
	})

	r.Route("/quizzs", func(r chi.Router) {
		r.Get("/all", api.ListQuizzes)
		r.Get("/categorie/{categorie}", api.ListQuizzesByCategory)
		r.Get("/{id}", api.GetQuiz)

		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity(d.Tokens, log))
			r.Post("/add", api.AddQuiz)
			r.Put("/update", api.UpdateQuiz)
			r.Delete("/delete/{id}", api.DeleteQuiz)
		})
	})

	r.Route("/resultats", func(r chi.Router) {
		r.Post("/add", api.AddResult)
		r.Get("/quiz/{quizId}", api.Leaderboard)
	})

	r.Get("/play/ws", ws.ServeWS)
	return r
}
