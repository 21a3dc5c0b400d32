package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"trivia-quiz-service/internal/domain"
)

const (
	minPasswordLength = 8
	passwordSpecials  = "!@#$%^&*"
)

// ValidatePassword reports whether password has at least 8 characters drawn
// from letters, digits and !@#$%^&*, with at least one digit and one of the
// special characters.
func ValidatePassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	var digit, special bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return digit && special
}

// AuthService registers and logs in players.
type AuthService struct {
	credentials CredentialStore
	progress    ProgressStore
	logger      *zap.Logger
	now         func() time.Time
	hashCost    int
}

func NewAuthService(credentials CredentialStore, progress ProgressStore, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		credentials: credentials,
		progress:    progress,
		logger:      logger,
		now:         time.Now,
		hashCost:    bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (a *AuthService) WithHashCost(cost int) *AuthService {
	a.hashCost = cost
	return a
}

// Login authenticates username, registering it on first use, and marks it as
// the current user of clientID. registered is true when a new account was created.
func (a *AuthService) Login(ctx context.Context, clientID, username, password string) (registered bool, err error) {
	if username == "" {
		return false, domain.ErrEmptyUsername
	}
	if !ValidatePassword(password) {
		return false, domain.ErrWeakPassword
	}

	user, err := a.credentials.FindUser(ctx, username)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return false, domain.ErrIncorrectPassword
		}
	case errors.Is(err, domain.ErrUserNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(password), a.hashCost)
		if err != nil {
			return false, fmt.Errorf("hash password: %w", err)
		}
		user = domain.User{Username: username, PasswordHash: string(hash), CreatedAt: a.now().UTC()}
		if err := a.credentials.UpsertUser(ctx, user); err != nil {
			return false, fmt.Errorf("register user: %w", err)
		}
		registered = true
		a.logger.Info("user registered", zap.String("username", username))
	default:
		return false, fmt.Errorf("find user: %w", err)
	}

	if err := a.credentials.SetCurrentUser(ctx, clientID, username); err != nil {
		return registered, fmt.Errorf("set current user: %w", err)
	}
	a.logger.Info("user logged in", zap.String("username", username), zap.String("client_id", clientID))
	return registered, nil
}

// Logout clears the saved progress of the client's current user and the
// current-user marker itself.
func (a *AuthService) Logout(ctx context.Context, clientID string) error {
	username, err := a.credentials.CurrentUser(ctx, clientID)
	if err != nil {
		return fmt.Errorf("current user: %w", err)
	}
	if username != "" && a.progress != nil {
		if err := a.progress.Clear(ctx, username); err != nil {
			return fmt.Errorf("clear progress: %w", err)
		}
	}
	if err := a.credentials.ClearCurrentUser(ctx, clientID); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

// CurrentUser returns the username logged in on clientID, or "".
func (a *AuthService) CurrentUser(ctx context.Context, clientID string) (string, error) {
	return a.credentials.CurrentUser(ctx, clientID)
}

// Usernames lists registered usernames in alphabetical order.
func (a *AuthService) Usernames(ctx context.Context) ([]string, error) {
	users, err := a.credentials.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	sort.Strings(names)
	return names, nil
}
