package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

type testEnv struct {
	server      *httptest.Server
	service     *app.QuizService
	auth        *app.AuthService
	credentials *memory.CredentialStore
	progress    *memory.ProgressStore
}

func newTestEnv(t *testing.T, source app.QuestionSource) *testEnv {
	t.Helper()
	credentials := memory.NewCredentialStore()
	progress := memory.NewProgressStore()
	service := app.NewQuizService(memory.NewSessionStore(), credentials, progress, source, app.DefaultSettings(), nil)
	auth := app.NewAuthService(credentials, progress, nil).WithHashCost(bcrypt.MinCost)

	server := httptest.NewServer(NewRouter(service, auth, nil))
	t.Cleanup(server.Close)
	return &testEnv{
		server:      server,
		service:     service,
		auth:        auth,
		credentials: credentials,
		progress:    progress,
	}
}

func (e *testEnv) dial(t *testing.T, clientID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?clientId=" + clientID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func readState(t *testing.T, conn *websocket.Conn, match func(domain.SessionView) bool) domain.SessionView {
	t.Helper()
	var view domain.SessionView
	readUntil(t, conn, func(msg wsMessage) bool {
		if msg.Type != "state" {
			return false
		}
		if err := json.Unmarshal(msg.Payload, &view); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		return match(view)
	})
	return view
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func loaded(v domain.SessionView) bool {
	return !v.Loading && v.TotalQuestions > 0
}

func TestWebSocketAnswerFlowPersistsProgress(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticQuestionSource(memory.SampleQuestions()))
	ctx := context.Background()
	if _, err := env.auth.Login(ctx, "c1", "alice", "passw0rd!"); err != nil {
		t.Fatalf("login: %v", err)
	}

	conn := env.dial(t, "c1")
	view := readState(t, conn, loaded)
	if view.Username != "alice" || view.Phase != domain.PhaseNotStarted {
		t.Fatalf("unexpected initial view: %+v", view)
	}

	send(t, conn, "start", nil)
	view = readState(t, conn, func(v domain.SessionView) bool { return v.Phase == domain.PhaseInProgress })
	if view.QuestionNumber != 1 || len(view.Answers) != 4 {
		t.Fatalf("unexpected first question view: %+v", view)
	}

	send(t, conn, "answer", map[string]any{"index": 0})
	view = readState(t, conn, func(v domain.SessionView) bool { return v.AnsweredCount == 1 })
	if view.QuestionNumber != 2 {
		t.Fatalf("expected second question, got %+v", view)
	}

	snapshot, err := env.progress.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if snapshot.AnsweredCount != 1 || snapshot.CurrentIndex != 1 {
		t.Fatalf("unexpected saved snapshot: %+v", snapshot)
	}
}

func TestWebSocketRejectsInvalidMessages(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticQuestionSource(memory.SampleQuestions()))
	conn := env.dial(t, "anon")
	readState(t, conn, loaded)

	// Answering before the quiz starts is not a valid transition.
	send(t, conn, "answer", map[string]any{"answer": "nope"})
	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	if !strings.Contains(string(msg.Payload), domain.ErrInvalidTransition.Error()) {
		t.Fatalf("expected invalid transition error, got %s", msg.Payload)
	}

	send(t, conn, "dance", nil)
	msg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	if !strings.Contains(string(msg.Payload), "unsupported") {
		t.Fatalf("expected unsupported message error, got %s", msg.Payload)
	}
}

func TestWebSocketLogoutClearsProgress(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticQuestionSource(memory.SampleQuestions()))
	ctx := context.Background()
	if _, err := env.auth.Login(ctx, "c1", "alice", "passw0rd!"); err != nil {
		t.Fatalf("login: %v", err)
	}

	conn := env.dial(t, "c1")
	readState(t, conn, loaded)
	send(t, conn, "start", nil)
	readState(t, conn, func(v domain.SessionView) bool { return v.Phase == domain.PhaseInProgress })

	send(t, conn, "logout", nil)
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "loggedOut" })

	if _, err := env.progress.Load(ctx, "alice"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected progress cleared, got %v", err)
	}
	user, err := env.credentials.CurrentUser(ctx, "c1")
	if err != nil || user != "" {
		t.Fatalf("expected no current user, got %q (%v)", user, err)
	}
}

func TestWebSocketReportsUnavailableQuestions(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticQuestionSource(nil))
	conn := env.dial(t, "anon")

	view := readState(t, conn, func(v domain.SessionView) bool { return v.QuestionsUnavailable })
	if view.TotalQuestions != 0 {
		t.Fatalf("expected no questions, got %+v", view)
	}

	send(t, conn, "start", nil)
	view = readState(t, conn, func(v domain.SessionView) bool { return v.Phase == domain.PhaseInProgress })
	if view.Question != "" {
		t.Fatalf("expected no question while unavailable, got %q", view.Question)
	}
}

func TestWebSocketRequiresClientID(t *testing.T) {
	env := newTestEnv(t, memory.NewStaticQuestionSource(memory.SampleQuestions()))
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %+v", resp)
	}
}
