package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
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

// answerPayload selects an answer by text or by its displayed position.
type answerPayload struct {
	Answer string `json:"answer"`
	Index  *int   `json:"index"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and hosts the client's quiz session on the
// socket until it disconnects or logs out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		http.Error(w, "missing clientId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	controller, err := h.service.Mount(ctx, clientID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Unmount(clientID, controller)

	updates, cancel := controller.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: view}:
				case <-closeSignals:
					return
				}
				h.service.Touch(clientID)
			case <-closeSignals:
				return
			}
		}
	}()

	go h.load(ctx, controller)

	reply := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.service.Touch(clientID)
		if done := h.dispatch(ctx, controller, inbound, reply); done {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one client message. It reports whether the connection
// should be closed.
func (h *WSHandler) dispatch(ctx context.Context, controller *app.Controller, inbound inboundMessage, reply func(outboundMessage)) bool {
	var err error
	switch inbound.Type {
	case "start":
		err = controller.Start()
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			reply(errorMessage("invalid answer payload"))
			return false
		}
		if payload.Index != nil {
			err = controller.AnswerIndex(*payload.Index)
		} else {
			err = controller.Answer(payload.Answer)
		}
	case "retry":
		err = controller.Retry(ctx)
	case "reload":
		go h.load(ctx, controller)
	case "logout":
		if err := controller.Logout(ctx); err != nil {
			h.logger.Error("logout failed", zap.Error(err))
		}
		reply(outboundMessage{Type: "loggedOut"})
		return true
	default:
		reply(errorMessage("unsupported message type"))
		return false
	}
	if err != nil {
		reply(errorMessage(err.Error()))
	}
	return false
}

func (h *WSHandler) load(ctx context.Context, controller *app.Controller) {
	err := controller.EnsureQuestionsLoaded(ctx)
	if err != nil && !errors.Is(err, domain.ErrSessionClosed) {
		// The view already reports the questions as unavailable.
		h.logger.Warn("questions unavailable", zap.Error(err))
	}
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}
