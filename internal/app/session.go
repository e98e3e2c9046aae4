package app

import (
	"context"
	"sync"

	"quiz-app-service/internal/domain"
)

// SessionState is the lifecycle of one playthrough.
type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateInProgress SessionState = "in_progress"
	StateFinished   SessionState = "finished"
	StateAbandoned  SessionState = "abandoned"
)

const (
	// DefaultQuestionSeconds is the per-question countdown.
	DefaultQuestionSeconds = 15
	// DefaultMaxQuestions caps how many questions one session plays. Larger settings are clamped.
	DefaultMaxQuestions = 10
)

// SessionOptions tunes the countdown and the question cap. Zero values use the defaults;
// MaxQuestions can only lower the cap.
type SessionOptions struct {
	QuestionSeconds int
	MaxQuestions    int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.QuestionSeconds <= 0 {
		o.QuestionSeconds = DefaultQuestionSeconds
	}
	if o.MaxQuestions <= 0 || o.MaxQuestions > DefaultMaxQuestions {
		o.MaxQuestions = DefaultMaxQuestions
	}
	return o
}

// ResultSubmitter persists a finished playthrough.
type ResultSubmitter interface {
	Submit(ctx context.Context, r domain.Result) (domain.Result, error)
}

// QuestionView is a question without its answer.
type QuestionView struct {
	Statement  string            `json:"statement"`
	Options    []string          `json:"options"`
	Difficulty domain.Difficulty `json:"difficulty"`
}

// Snapshot is what a participant sees of the session at one instant.
type Snapshot struct {
	SessionID     string         `json:"sessionId"`
	QuizID        string         `json:"quizId"`
	Title         string         `json:"title"`
	State         SessionState   `json:"state"`
	QuestionIndex int            `json:"questionIndex"`
	Total         int            `json:"total"`
	Remaining     int            `json:"remaining"`
	Question      *QuestionView  `json:"question,omitempty"`
	Selection     *int           `json:"selection,omitempty"`
	Score         *int           `json:"score,omitempty"`
	Result        *domain.Result `json:"result,omitempty"`
}

// Session drives one participant through a quiz. Every way of leaving a question goes
// through advanceAndUnlock, which only runs while the session is in progress on the
// addressed question, so each question boundary is crossed at most once.
type Session struct {
	id           string
	quizID       string
	title        string
	questions    []domain.Question
	questionTime int
	submitter    ResultSubmitter

	mu          sync.Mutex
	state       SessionState
	participant string
	index       int
	remaining   int
	selection   int
	score       int
	result      *domain.Result
	subscribers map[chan Snapshot]struct{}
}

// NewSession prepares a session over quiz, keeping at most opts.MaxQuestions questions.
func NewSession(id string, quiz domain.Quiz, submitter ResultSubmitter, opts SessionOptions) *Session {
	opts = opts.withDefaults()
	n := len(quiz.Questions)
	if n > opts.MaxQuestions {
		n = opts.MaxQuestions
	}
	questions := make([]domain.Question, n)
	copy(questions, quiz.Questions[:n])

	return &Session{
		id:           id,
		quizID:       quiz.ID,
		title:        quiz.Title,
		questions:    questions,
		questionTime: opts.QuestionSeconds,
		submitter:    submitter,
		state:        StateNotStarted,
		selection:    -1,
		subscribers:  make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start validates the participant name and opens the first question.
func (s *Session) Start(name string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return s.snapshotLocked(), domain.ErrSessionStarted
	}
	if len(s.questions) == 0 {
		return s.snapshotLocked(), domain.NewValidationError("questions", "quiz has no questions")
	}
	name = domain.NormalizeParticipantName(name)
	if err := domain.CheckParticipantName(name); err != nil {
		return s.snapshotLocked(), err
	}

	s.participant = name
	s.state = StateInProgress
	s.index = 0
	s.remaining = s.questionTime
	s.selection = -1
	return s.broadcastLocked(), nil
}

// Select records option as the answer to the current question.
func (s *Session) Select(questionIndex, option int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCurrentLocked(questionIndex); err != nil {
		return s.snapshotLocked(), err
	}
	if option < 0 || option >= len(s.questions[s.index].Options) {
		return s.snapshotLocked(), domain.ErrOptionNotFound
	}
	s.selection = option
	return s.broadcastLocked(), nil
}

// Confirm is the participant's "next": it scores the selection and advances.
func (s *Session) Confirm(ctx context.Context, questionIndex int) (Snapshot, error) {
	s.mu.Lock()
	if err := s.checkCurrentLocked(questionIndex); err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}
	if s.selection < 0 {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrNoSelection
	}
	return s.advanceAndUnlock(ctx)
}

// Tick is one second of countdown on questionIndex. At zero the question is scored with
// whatever is selected (possibly nothing) and the session advances.
func (s *Session) Tick(ctx context.Context, questionIndex int) (Snapshot, error) {
	s.mu.Lock()
	if err := s.checkCurrentLocked(questionIndex); err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}
	s.remaining--
	if s.remaining > 0 {
		snap := s.broadcastLocked()
		s.mu.Unlock()
		return snap, nil
	}
	return s.advanceAndUnlock(ctx)
}

// Abandon stops an unfinished session; nothing is submitted afterwards.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateNotStarted || s.state == StateInProgress {
		s.state = StateAbandoned
		s.broadcastLocked()
	}
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// queued under the lock so no broadcast can overtake it
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) checkCurrentLocked(questionIndex int) error {
	if s.state != StateInProgress {
		return domain.ErrSessionNotActive
	}
	if questionIndex != s.index {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// advanceAndUnlock must be called with s.mu held and the current question checked.
func (s *Session) advanceAndUnlock(ctx context.Context) (Snapshot, error) {
	if s.selection == s.questions[s.index].CorrectOptionIndex {
		s.score++
	}
	if s.index < len(s.questions)-1 {
		s.index++
		s.remaining = s.questionTime
		s.selection = -1
		snap := s.broadcastLocked()
		s.mu.Unlock()
		return snap, nil
	}

	s.state = StateFinished
	s.remaining = 0
	pending := domain.Result{QuizID: s.quizID, ParticipantName: s.participant, Score: s.score}
	s.mu.Unlock()

	// Only the call that moved the session to Finished gets here.
	stored, err := s.submitter.Submit(ctx, pending)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.result = &stored
	}
	return s.broadcastLocked(), err
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot so a slow reader never blocks the session
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     s.id,
		QuizID:        s.quizID,
		Title:         s.title,
		State:         s.state,
		QuestionIndex: s.index,
		Total:         len(s.questions),
		Remaining:     s.remaining,
	}
	switch s.state {
	case StateInProgress:
		q := s.questions[s.index]
		opts := make([]string, len(q.Options))
		copy(opts, q.Options)
		snap.Question = &QuestionView{Statement: q.Statement, Options: opts, Difficulty: q.Difficulty}
		if s.selection >= 0 {
			sel := s.selection
			snap.Selection = &sel
		}
	case StateFinished:
		score := s.score
		snap.Score = &score
		if s.result != nil {
			r := *s.result
			snap.Result = &r
		}
	}
	return snap
}
