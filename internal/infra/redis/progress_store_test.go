package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func TestProgressStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := startMiniredis(t)
	store := NewProgressStore(newClient(mr), 0)

	saved := domain.Snapshot{
		Questions:        memory.SampleQuestions(),
		CurrentIndex:     4,
		CorrectCount:     3,
		AnsweredCount:    4,
		SecondsRemaining: 6,
	}
	if err := store.Save(ctx, "alice", saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quizProgress_alice") {
		t.Fatalf("expected progress key")
	}

	got, err := store.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CurrentIndex != 4 || got.CorrectCount != 3 || got.AnsweredCount != 4 || got.SecondsRemaining != 6 || got.Finished {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if len(got.Questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(got.Questions))
	}

	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(ctx, "alice"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressStoreTTLAndEmptyUser(t *testing.T) {
	ctx := context.Background()
	mr := startMiniredis(t)
	store := NewProgressStore(newClient(mr), time.Hour)

	if err := store.Save(ctx, "", domain.Snapshot{}); err != nil {
		t.Fatalf("save empty user: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected nothing stored for empty username, got %v", mr.Keys())
	}

	_ = store.Save(ctx, "bob", domain.Snapshot{SecondsRemaining: 10})
	if ttl := mr.TTL("quizProgress_bob"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := store.Load(ctx, "bob"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected expired snapshot, got %v", err)
	}
}

func TestProgressStoreMalformedSnapshot(t *testing.T) {
	mr := startMiniredis(t)
	store := NewProgressStore(newClient(mr), 0)
	_ = mr.Set("quizProgress_carol", "not json")

	_, err := store.Load(context.Background(), "carol")
	if err == nil || errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func startMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
