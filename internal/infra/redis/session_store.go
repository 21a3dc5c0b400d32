package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Controllers live in process (their countdowns are local timers); Redis only
// carries a best-effort liveness marker per mounted client so operators can
// see which clients are playing across instances. The marker is refreshed by
// Touch and expires after ttl without activity.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	clock    func() time.Time
	mu       sync.RWMutex
	sessions map[string]*app.Controller
	touched  map[string]time.Time
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*app.Controller),
		touched:  make(map[string]time.Time),
	}
}

func (s *SessionStore) Put(clientID string, c *app.Controller) *app.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessions[clientID]
	s.sessions[clientID] = c
	s.markLocked(clientID)
	return previous
}

// Touch refreshes the liveness marker, at most once per quarter ttl.
func (s *SessionStore) Touch(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[clientID]; !ok {
		return
	}
	if s.clock().Sub(s.touched[clientID]) < s.ttl/4 {
		return
	}
	s.markLocked(clientID)
}

func (s *SessionStore) markLocked(clientID string) {
	s.touched[clientID] = s.clock()
	_ = s.client.Set(context.Background(), s.key(clientID), "1", s.ttl).Err()
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
	if s.sessions[clientID] != c {
		return
	}
	delete(s.sessions, clientID)
	delete(s.touched, clientID)
	_ = s.client.Del(context.Background(), s.key(clientID)).Err()
}

func (s *SessionStore) key(clientID string) string {
	return "quiz:session:" + clientID
}
