package memory

import (
	"context"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// CredentialStore is an in-memory implementation of app.CredentialStore.
type CredentialStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	current map[string]string
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		users:   make(map[string]domain.User),
		current: make(map[string]string),
	}
}

func (s *CredentialStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *CredentialStore) UpsertUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *CredentialStore) FindUser(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *CredentialStore) CurrentUser(_ context.Context, clientID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current[clientID], nil
}

func (s *CredentialStore) SetCurrentUser(_ context.Context, clientID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[clientID] = username
	return nil
}

func (s *CredentialStore) ClearCurrentUser(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.current, clientID)
	return nil
}
