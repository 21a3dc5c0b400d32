package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/domain"
)

// ProgressStore keeps one JSON snapshot per user under quizProgress_<username>.
// A zero ttl keeps snapshots until they are cleared.
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressStore(client *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{client: client, ttl: ttl}
}

func (s *ProgressStore) Save(ctx context.Context, username string, snapshot domain.Snapshot) error {
	if username == "" {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, domain.ProgressKey(username), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Load(ctx context.Context, username string) (domain.Snapshot, error) {
	if username == "" {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	raw, err := s.client.Get(ctx, domain.ProgressKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("load progress: %w", err)
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *ProgressStore) Clear(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	if err := s.client.Del(ctx, domain.ProgressKey(username)).Err(); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
