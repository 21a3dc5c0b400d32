package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trivia-quiz-service/internal/config"
)

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "play", "users", "bank"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected subcommand %s, got %v (%v)", name, sub, err)
		}
	}
	if sub, _, err := cmd.Find([]string{"bank", "import"}); err != nil || sub.Name() != "import" {
		t.Fatalf("expected bank import, got %v (%v)", sub, err)
	}
}

func TestUsersCommandWithoutBackends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("quiz:\n  source: static\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"users", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("users: %v", err)
	}
	if strings.TrimSpace(out.String()) != "" {
		t.Fatalf("expected no users in a fresh memory store, got %q", out.String())
	}
}

func TestBackendsFallBackToMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Quiz.Source = config.SourceStatic
	b := &backends{cfg: cfg}

	if _, err := b.questionSource(); err != nil {
		t.Fatalf("static source: %v", err)
	}
	if b.progressStore() == nil || b.credentialStore() == nil || b.sessionStore() == nil {
		t.Fatalf("expected memory stores")
	}

	b.cfg.Quiz.Source = config.SourcePostgres
	if _, err := b.questionSource(); err == nil {
		t.Fatalf("expected postgres source to require a pool")
	}
	b.cfg.Quiz.Source = "carrier-pigeon"
	if _, err := b.questionSource(); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestSettingsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Quiz.Amount = 5
	cfg.Quiz.TimeLimit = 20
	b := &backends{cfg: cfg}

	s := b.settings()
	if s.Query.Amount != 5 || s.Query.Category != 30 || s.Query.Difficulty != "easy" || s.TimeLimit != 20 {
		t.Fatalf("unexpected settings: %+v", s)
	}
}
