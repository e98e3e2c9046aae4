package app

import (
	"context"

	"github.com/google/uuid"

	"quiz-app-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// SessionService opens and closes server-hosted quiz sessions.
type SessionService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	results  ResultSubmitter
	opts     SessionOptions
}

func NewSessionService(sessions SessionRepository, quizzes QuizRepository, results ResultSubmitter, opts SessionOptions) *SessionService {
	return &SessionService{sessions: sessions, quizzes: quizzes, results: results, opts: opts.withDefaults()}
}

// Options returns the effective countdown settings.
func (s *SessionService) Options() SessionOptions {
	return s.opts
}

// Open loads quizID and registers a fresh, not yet started session for it.
func (s *SessionService) Open(ctx context.Context, quizID string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	session := NewSession(uuid.NewString(), quiz, s.results, s.opts)
	s.sessions.Put(session)
	return session, nil
}

// Get returns an open session.
func (s *SessionService) Get(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close abandons the session if it is unfinished and forgets it.
func (s *SessionService) Close(id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.Abandon()
	s.sessions.Delete(id)
}
