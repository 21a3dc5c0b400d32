package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// ProgressStore keeps serialized snapshots in a map, like browser local storage.
type ProgressStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{data: make(map[string][]byte)}
}

func (s *ProgressStore) Save(_ context.Context, username string, snapshot domain.Snapshot) error {
	if username == "" {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	s.mu.Lock()
	s.data[domain.ProgressKey(username)] = raw
	s.mu.Unlock()
	return nil
}

func (s *ProgressStore) Load(_ context.Context, username string) (domain.Snapshot, error) {
	if username == "" {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	s.mu.RLock()
	raw, ok := s.data[domain.ProgressKey(username)]
	s.mu.RUnlock()
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *ProgressStore) Clear(_ context.Context, username string) error {
	s.mu.Lock()
	delete(s.data, domain.ProgressKey(username))
	s.mu.Unlock()
	return nil
}

// SetRaw stores raw bytes under a user's key, bypassing serialization.
func (s *ProgressStore) SetRaw(username string, raw []byte) {
	s.mu.Lock()
	s.data[domain.ProgressKey(username)] = raw
	s.mu.Unlock()
}
