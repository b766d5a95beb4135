package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"weld-academy-service/internal/app"
	"weld-academy-service/internal/domain"
)

// WSHandler runs one placement quiz session per websocket connection.
type WSHandler struct {
	service  *app.PlacementService
	limiter  *UserLimiter
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PlacementService, limiter *UserLimiter, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		limiter: limiter,
		log:     log,
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

type topicPayload struct {
	Topic string `json:"topic"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type questionsPayload struct {
	Topic     domain.Topic          `json:"topic"`
	Questions []domain.QuestionView `json:"questions"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and drives a session from client messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.StartSession(ctx, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.service.CloseSession(cleanupCtx, sessionID); err != nil {
			h.log.Warn("close session failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	hello := outboundMessage{Type: "session", Payload: sessionBody{SessionID: sessionID, UserID: userID, State: session.State()}}
	if enqueue(send, writerDone, hello) {
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				break
			}
			if !enqueue(send, writerDone, h.dispatch(ctx, sessionID, userID, inbound)) {
				break
			}
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, sessionID, userID string, in inboundMessage) outboundMessage {
	switch in.Type {
	case "selectTopic":
		var payload topicPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return errorMessage("invalid topic payload")
		}
		topic, err := domain.ParseTopic(payload.Topic)
		if err != nil {
			return errorMessage(err.Error())
		}
		questions, err := h.service.SelectTopic(ctx, sessionID, topic)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage{Type: "questions", Payload: questionsPayload{Topic: topic, Questions: domain.Views(questions)}}

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil || payload.QuestionID == "" {
			return errorMessage("invalid answer payload")
		}
		progress, err := h.service.RecordAnswer(ctx, sessionID, payload.QuestionID, payload.OptionID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage{Type: "progress", Payload: progress}

	case "next":
		question, progress, err := h.service.NextQuestion(ctx, sessionID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage{Type: "question", Payload: questionBody{Question: question.View(), Progress: progress}}

	case "submit":
		if !h.limiter.Allow(userID) {
			return errorMessage("too many grading requests")
		}
		outcome, err := h.service.Submit(ctx, sessionID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage{Type: "result", Payload: outcome}

	case "reset":
		if err := h.service.ResetSession(ctx, sessionID); err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage{Type: "session", Payload: sessionBody{SessionID: sessionID, UserID: userID, State: app.StateTopicUnselected}}

	default:
		return errorMessage("unsupported message type")
	}
}

// enqueue hands msg to the writer. It reports false once the writer has exited.
func enqueue(send chan<- outboundMessage, writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}
