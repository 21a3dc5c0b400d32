package http

import (
	"net/http"

	"go.uber.org/zap"
	"trivia-quiz-service/internal/app"
)

// NewRouter mounts the health, auth and websocket endpoints.
func NewRouter(service *app.QuizService, auth *app.AuthService, logger *zap.Logger) http.Handler {
	wsHandler := NewWSHandler(service, logger)
	authHandler := NewAuthHandler(auth, service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)
	return mux
}
