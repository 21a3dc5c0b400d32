package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/domain"
)

const usersKey = "quiz:users"

// CredentialStore keeps users in a single hash (HSET quiz:users {username} {json})
// and each client's current user under quiz:client:{clientID}:user.
type CredentialStore struct {
	client *redis.Client
}

func NewCredentialStore(client *redis.Client) *CredentialStore {
	return &CredentialStore{client: client}
}

func (s *CredentialStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	raw, err := s.client.HGetAll(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.User, 0, len(raw))
	for name, data := range raw {
		var user domain.User
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			return nil, fmt.Errorf("unmarshal user %s: %w", name, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *CredentialStore) UpsertUser(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.client.HSet(ctx, usersKey, user.Username, data).Err(); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *CredentialStore) FindUser(ctx context.Context, username string) (domain.User, error) {
	data, err := s.client.HGet(ctx, usersKey, username).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return user, nil
}

func (s *CredentialStore) CurrentUser(ctx context.Context, clientID string) (string, error) {
	name, err := s.client.Get(ctx, currentUserKey(clientID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("current user: %w", err)
	}
	return name, nil
}

func (s *CredentialStore) SetCurrentUser(ctx context.Context, clientID, username string) error {
	return s.client.Set(ctx, currentUserKey(clientID), username, 0).Err()
}

func (s *CredentialStore) ClearCurrentUser(ctx context.Context, clientID string) error {
	return s.client.Del(ctx, currentUserKey(clientID)).Err()
}

func currentUserKey(clientID string) string {
	return "quiz:client:" + clientID + ":user"
}
