package app_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{name: "valid", password: "secret1!", want: true},
		{name: "too short", password: "se1!", want: false},
		{name: "missing digit", password: "secret!!", want: false},
		{name: "missing special", password: "secret12", want: false},
		{name: "disallowed character", password: "secret1!?", want: false},
		{name: "space", password: "secret 1!", want: false},
		{name: "long mixed case", password: "CorrectHorse9#", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := app.ValidatePassword(tt.password); got != tt.want {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestLoginRegistersThenAuthenticates(t *testing.T) {
	ctx := context.Background()
	credentials := memory.NewCredentialStore()
	auth := app.NewAuthService(credentials, memory.NewProgressStore(), nil).WithHashCost(bcrypt.MinCost)

	registered, err := auth.Login(ctx, "c1", "alice", "secret1!")
	if err != nil || !registered {
		t.Fatalf("expected registration, got registered=%v err=%v", registered, err)
	}
	user, _ := credentials.FindUser(ctx, "alice")
	if user.PasswordHash == "secret1!" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}

	registered, err = auth.Login(ctx, "c2", "alice", "secret1!")
	if err != nil || registered {
		t.Fatalf("expected login, got registered=%v err=%v", registered, err)
	}
	if name, _ := auth.CurrentUser(ctx, "c2"); name != "alice" {
		t.Fatalf("expected alice on c2, got %q", name)
	}

	if _, err := auth.Login(ctx, "c3", "alice", "wrong12!"); !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("expected incorrect password, got %v", err)
	}
	if name, _ := auth.CurrentUser(ctx, "c3"); name != "" {
		t.Fatalf("failed login must not set current user")
	}
}

func TestLoginRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	auth := app.NewAuthService(memory.NewCredentialStore(), nil, nil).WithHashCost(bcrypt.MinCost)

	if _, err := auth.Login(ctx, "c1", "", "secret1!"); !errors.Is(err, domain.ErrEmptyUsername) {
		t.Fatalf("expected empty username, got %v", err)
	}
	if _, err := auth.Login(ctx, "c1", "bob", "short"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	names, _ := auth.Usernames(ctx)
	if len(names) != 0 {
		t.Fatalf("expected no users, got %v", names)
	}
}

func TestAuthLogoutClearsProgress(t *testing.T) {
	ctx := context.Background()
	credentials := memory.NewCredentialStore()
	progress := memory.NewProgressStore()
	auth := app.NewAuthService(credentials, progress, nil).WithHashCost(bcrypt.MinCost)

	if _, err := auth.Login(ctx, "c1", "alice", "secret1!"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_ = progress.Save(ctx, "alice", domain.Snapshot{SecondsRemaining: 10})

	if err := auth.Logout(ctx, "c1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := progress.Load(ctx, "alice"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected progress cleared, got %v", err)
	}
	if name, _ := auth.CurrentUser(ctx, "c1"); name != "" {
		t.Fatalf("expected logged out, got %q", name)
	}
	if err := auth.Logout(ctx, "c1"); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestUsernamesSorted(t *testing.T) {
	ctx := context.Background()
	auth := app.NewAuthService(memory.NewCredentialStore(), nil, nil).WithHashCost(bcrypt.MinCost)
	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := auth.Login(ctx, "c-"+name, name, "secret1!"); err != nil {
			t.Fatalf("login %s: %v", name, err)
		}
	}
	names, err := auth.Usernames(ctx)
	if err != nil {
		t.Fatalf("usernames: %v", err)
	}
	if len(names) != 3 || names[0] != "alice" || names[2] != "carol" {
		t.Fatalf("unexpected names %v", names)
	}
}
