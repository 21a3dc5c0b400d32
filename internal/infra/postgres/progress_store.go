package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz-service/internal/domain"
)

// ProgressStore keeps snapshots as JSONB, one row per username.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) Save(ctx context.Context, username string, snapshot domain.Snapshot) error {
	if username == "" {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_progress (username, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (username) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, username, raw)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Load(ctx context.Context, username string) (domain.Snapshot, error) {
	if username == "" {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quiz_progress WHERE username = $1`, username).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_progress WHERE username = $1`, username); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
