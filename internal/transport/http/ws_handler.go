package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
)

// WSHandler hosts one quiz-taking session per websocket connection.
type WSHandler struct {
	sessions *app.SessionService
	interval time.Duration
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions *app.SessionService, interval time.Duration, log *zap.Logger) *WSHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &WSHandler{
		sessions: sessions,
		interval: interval,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Name string `json:"name"`
}

type selectPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Option        int `json:"option"`
}

type nextPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type readyPayload struct {
	SessionID       string `json:"sessionId"`
	QuizID          string `json:"quizId"`
	Title           string `json:"title"`
	Total           int    `json:"total"`
	QuestionSeconds int    `json:"questionSeconds"`
}

type questionPayload struct {
	QuestionIndex int               `json:"questionIndex"`
	Total         int               `json:"total"`
	Remaining     int               `json:"remaining"`
	Question      *app.QuestionView `json:"question"`
	Selection     *int              `json:"selection,omitempty"`
}

type tickPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Remaining     int `json:"remaining"`
}

type finishedPayload struct {
	Score  int            `json:"score"`
	Total  int            `json:"total"`
	Result *domain.Result `json:"result,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS opens a session for ?quizId=, upgrades, and drives the session from client
// commands and a server-side countdown.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		writeError(w, http.StatusBadRequest, "missing quizId")
		return
	}

	session, err := h.sessions.Open(r.Context(), quizID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	defer h.sessions.Close(session.ID())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	countdownDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(countdownDone)
		if err := app.RunCountdown(ctx, session, h.interval); err != nil && !errors.Is(err, context.Canceled) {
			h.log.Error("countdown stopped", zap.String("session", session.ID()), zap.Error(err))
		}
	}()

	snap := session.Snapshot()
	send <- outboundMessage[any]{Type: "ready", Payload: readyPayload{
		SessionID:       session.ID(),
		QuizID:          snap.QuizID,
		Title:           snap.Title,
		Total:           snap.Total,
		QuestionSeconds: h.sessions.Options().QuestionSeconds,
	}}

	go func() {
		defer close(updatesDone)
		var last *app.Snapshot
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg, emit := snapshotMessage(last, update)
				last = &update
				if !emit {
					continue
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, session, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	session.Abandon()
	cancelCtx()
	<-countdownDone
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, session *app.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "start":
		var p startPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errors.New("invalid start payload")
		}
		_, err := session.Start(p.Name)
		return err
	case "select":
		var p selectPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errors.New("invalid select payload")
		}
		_, err := session.Select(p.QuestionIndex, p.Option)
		return err
	case "next":
		var p nextPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errors.New("invalid next payload")
		}
		_, err := session.Confirm(ctx, p.QuestionIndex)
		return err
	default:
		return errors.New("unsupported message type")
	}
}

// snapshotMessage turns a session update into the message the client needs, if any.
func snapshotMessage(prev *app.Snapshot, cur app.Snapshot) (outboundMessage[any], bool) {
	switch cur.State {
	case app.StateInProgress:
		sameQuestion := prev != nil && prev.State == app.StateInProgress && prev.QuestionIndex == cur.QuestionIndex
		if sameQuestion && prev.Remaining != cur.Remaining {
			return outboundMessage[any]{Type: "tick", Payload: tickPayload{
				QuestionIndex: cur.QuestionIndex,
				Remaining:     cur.Remaining,
			}}, true
		}
		return outboundMessage[any]{Type: "question", Payload: questionPayload{
			QuestionIndex: cur.QuestionIndex,
			Total:         cur.Total,
			Remaining:     cur.Remaining,
			Question:      cur.Question,
			Selection:     cur.Selection,
		}}, true
	case app.StateFinished:
		if prev != nil && prev.State == app.StateFinished && (prev.Result != nil || cur.Result == nil) {
			return outboundMessage[any]{}, false
		}
		payload := finishedPayload{Total: cur.Total, Result: cur.Result}
		if cur.Score != nil {
			payload.Score = *cur.Score
		}
		return outboundMessage[any]{Type: "finished", Payload: payload}, true
	default:
		return outboundMessage[any]{}, false
	}
}
