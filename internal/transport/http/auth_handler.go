package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// AuthHandler serves the login and logout endpoints.
type AuthHandler struct {
	auth    *app.AuthService
	service *app.QuizService
	logger  *zap.Logger
}

func NewAuthHandler(auth *app.AuthService, service *app.QuizService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, service: service, logger: logger}
}

type loginRequest struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ClientID   string `json:"clientId"`
	Username   string `json:"username"`
	Registered bool   `json:"registered"`
}

type logoutRequest struct {
	ClientID string `json:"clientId"`
}

// Login registers unknown usernames and signs the client in. Clients without
// an id get a fresh one.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	registered, err := h.auth.Login(r.Context(), req.ClientID, req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrEmptyUsername), errors.Is(err, domain.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrIncorrectPassword):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		h.logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		ClientID:   req.ClientID,
		Username:   req.Username,
		Registered: registered,
	})
}

// Logout signs the client out and forgets its user's progress. A session
// mounted for the client continues anonymously.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "missing clientId")
		return
	}

	if controller, err := h.service.Session(req.ClientID); err == nil {
		if err := controller.Logout(r.Context()); err != nil {
			h.logger.Warn("session logout failed", zap.String("client_id", req.ClientID), zap.Error(err))
		}
	}
	if err := h.auth.Logout(r.Context(), req.ClientID); err != nil {
		h.logger.Error("logout failed", zap.String("client_id", req.ClientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
