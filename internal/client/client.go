package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quiz-app-service/internal/domain"
)

// APIError is a non-2xx answer from the quiz API.
type APIError struct {
	Status  int
	Message string
	Fields  []domain.FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Sprintf("%d %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Is lets callers match API failures against the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusNotFound:
		return target == domain.ErrQuizNotFound || target == domain.ErrUserNotFound
	case http.StatusUnauthorized:
		return target == domain.ErrTokenMissing || target == domain.ErrInvalidCredentials
	case http.StatusForbidden:
		return target == domain.ErrForbidden || target == domain.ErrTokenInvalid
	}
	return false
}

// Client talks to the public endpoints. Authenticated calls go through a Session.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Session carries the bearer token explicitly; there is no ambient login state.
type Session struct {
	c     *Client
	Token string
}

// Login exchanges credentials for a token-bearing Session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]any{"userlogin": map[string]string{"username": username, "password": password}}
	if err := c.do(ctx, http.MethodPost, "/generatetoken", "", body, &out); err != nil {
		return nil, err
	}
	return &Session{c: c, Token: out.Token}, nil
}

// WithToken wraps an already issued token.
func (c *Client) WithToken(token string) *Session {
	return &Session{c: c, Token: token}
}

func (c *Client) Register(ctx context.Context, username, password string) (domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	body := map[string]any{"user": map[string]string{"username": username, "password": password}}
	err := c.do(ctx, http.MethodPost, "/users/add", "", body, &out)
	return out.User, err
}

func (c *Client) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	var out struct {
		Quiz domain.Quiz `json:"quiz"`
	}
	err := c.do(ctx, http.MethodGet, "/quizzs/"+url.PathEscape(id), "", nil, &out)
	return out.Quiz, err
}

func (c *Client) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var out struct {
		Quizzes []domain.Quiz `json:"quizzs"`
	}
	err := c.do(ctx, http.MethodGet, "/quizzs/all", "", nil, &out)
	return out.Quizzes, err
}

func (c *Client) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	var out struct {
		Quizzes []domain.Quiz `json:"quizzs"`
	}
	err := c.do(ctx, http.MethodGet, "/quizzs/categorie/"+url.PathEscape(category), "", nil, &out)
	return out.Quizzes, err
}

// Submit posts a finished playthrough; it satisfies app.ResultSubmitter.
func (c *Client) Submit(ctx context.Context, r domain.Result) (domain.Result, error) {
	var out struct {
		Result domain.Result `json:"resultat"`
	}
	err := c.do(ctx, http.MethodPost, "/resultats/add", "", map[string]any{"resultat": r}, &out)
	return out.Result, err
}

func (c *Client) Leaderboard(ctx context.Context, quizID string) ([]domain.Result, error) {
	var out struct {
		Board []domain.Result `json:"classement"`
	}
	err := c.do(ctx, http.MethodGet, "/resultats/quiz/"+url.PathEscape(quizID), "", nil, &out)
	return out.Board, err
}

func (s *Session) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	var out struct {
		Quiz domain.Quiz `json:"quiz"`
	}
	err := s.c.do(ctx, http.MethodPost, "/quizzs/add", s.Token, map[string]any{"quiz": quiz}, &out)
	return out.Quiz, err
}

func (s *Session) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	var out struct {
		Quiz domain.Quiz `json:"quiz"`
	}
	err := s.c.do(ctx, http.MethodPut, "/quizzs/update", s.Token, map[string]any{"quiz": quiz}, &out)
	return out.Quiz, err
}

func (s *Session) DeleteQuiz(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, "/quizzs/delete/"+url.PathEscape(id), s.Token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Error  string              `json:"error"`
			Fields []domain.FieldError `json:"fields"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil {
			apiErr.Message = eb.Error
			apiErr.Fields = eb.Fields
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
