package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/infra/memory"
)

const testSecret = "test-secret"

type testEnv struct {
	server  *httptest.Server
	results *memory.ResultStore
}

func newTestEnv(t *testing.T, opts app.SessionOptions, tick time.Duration) *testEnv {
	t.Helper()
	users := memory.NewUserRepository()
	quizStore := memory.NewQuizStore(users)
	quizCache := memory.NewQuizRepository(quizStore, time.Minute)
	results := memory.NewResultStore()
	resultService := app.NewResultService(results)

	handler := NewRouter(Deps{
		Users:        app.NewUserService(users, bcrypt.MinCost),
		Tokens:       app.NewTokenService(users, []byte(testSecret), time.Hour),
		Quizzes:      app.NewQuizService(quizStore, quizCache, zaptest.NewLogger(t)),
		Results:      resultService,
		Sessions:     app.NewSessionService(memory.NewSessionStore(), quizCache, resultService, opts),
		Logger:       zaptest.NewLogger(t),
		TickInterval: tick,
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &testEnv{server: server, results: results}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// register creates an account and returns its id and a token for it.
func (e *testEnv) register(t *testing.T, username, password string) (string, string) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/users/add", "", map[string]any{
		"user": map[string]string{"username": username, "password": password},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var u domain.User
	require.NoError(t, json.Unmarshal(body["user"], &u))

	resp, body = e.do(t, http.MethodPost, "/generatetoken", "", map[string]any{
		"userlogin": map[string]string{"username": username, "password": password},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	return u.ID, token
}

func (e *testEnv) createQuiz(t *testing.T, token string, quiz map[string]any) domain.Quiz {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/quizzs/add", token, map[string]any{"quiz": quiz})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.Quiz
	require.NoError(t, json.Unmarshal(body["quiz"], &created))
	return created
}

func quizPayload(title, category string, questions int) map[string]any {
	qs := make([]map[string]any, 0, questions)
	for i := 0; i < questions; i++ {
		qs = append(qs, map[string]any{
			"statement":          "Question",
			"options":            []string{"a", "b", "c"},
			"correctOptionIndex": 1,
			"difficulty":         "medium",
		})
	}
	return map[string]any{"title": title, "category": category, "questions": qs}
}
