package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-starter-service/internal/app"
	"quiz-starter-service/internal/domain"
	"quiz-starter-service/internal/report"
)

// TopicSource resolves a topic ID to its quiz content.
type TopicSource interface {
	GetTopic(ctx context.Context, topicID string) (domain.Quiz, error)
}

type WSHandler struct {
	engine   *app.Engine
	topics   TopicSource
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, topics TopicSource, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		engine: engine,
		topics: topics,
		logger: logger,
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

// answerPayload accepts both a bare option index and an index array, the two
// encodings quiz content uses for single and multi answers.
type answerPayload struct {
	Selection domain.AnswerKey `json:"selection"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one quiz session over the socket.
// The topic "revision" assembles a quiz from the user's missed questions.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("topic")
	userID := r.URL.Query().Get("user")
	if topicID == "" || userID == "" {
		http.Error(w, "missing topic or user", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	quiz, err := h.resolveQuiz(r, topicID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	session, err := h.engine.Start(r.Context(), quiz, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer session.Close()

	events, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(event.Type), Payload: event.Payload}:
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
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if _, err := session.SubmitAnswer(r.Context(), payload.Selection.Normalized()); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "reset":
			session.Reset(r.Context())
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// resolveQuiz fetches regular topics from the catalog and builds revision
// quizzes from the caller's history.
func (h *WSHandler) resolveQuiz(r *http.Request, topicID, userID string) (domain.Quiz, error) {
	if topicID == domain.RevisionQuizID {
		records, err := h.engine.Ledger().ReadAll(r.Context(), userID)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz, ok := report.BuildRevisionQuiz(records)
		if !ok {
			return domain.Quiz{}, domain.ErrNoFailedQuestions
		}
		return quiz, nil
	}
	return h.topics.GetTopic(r.Context(), topicID)
}
