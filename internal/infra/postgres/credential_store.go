package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz-service/internal/domain"
)

// CredentialStore keeps users and per-client login markers in Postgres.
type CredentialStore struct {
	pool *pgxpool.Pool
}

func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

func (s *CredentialStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT username, password_hash, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *CredentialStore) UpsertUser(ctx context.Context, user domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *CredentialStore) FindUser(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *CredentialStore) CurrentUser(ctx context.Context, clientID string) (string, error) {
	var username string
	err := s.pool.QueryRow(ctx, `SELECT username FROM client_sessions WHERE client_id = $1`, clientID).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("current user: %w", err)
	}
	return username, nil
}

func (s *CredentialStore) SetCurrentUser(ctx context.Context, clientID, username string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_sessions (client_id, username, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (client_id) DO UPDATE SET
			username = EXCLUDED.username,
			updated_at = EXCLUDED.updated_at
	`, clientID, username)
	if err != nil {
		return fmt.Errorf("set current user: %w", err)
	}
	return nil
}

func (s *CredentialStore) ClearCurrentUser(ctx context.Context, clientID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM client_sessions WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}
