package memory

import (
	"sync"

	"trivia-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Controller
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Controller),
	}
}

func (s *SessionStore) Put(clientID string, c *app.Controller) *app.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessions[clientID]
	s.sessions[clientID] = c
	return previous
}

func (s *SessionStore) Get(clientID string) (*app.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[clientID]
	return session, ok
}

func (s *SessionStore) Delete(clientID string, c *app.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[clientID] == c {
		delete(s.sessions, clientID)
	}
}

// Touch is a no-op; mounted sessions stay until deleted.
func (s *SessionStore) Touch(string) {}

// Len reports the number of mounted sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
