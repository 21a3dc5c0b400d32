package memory

import (
	"context"
	"errors"
	"testing"

	"trivia-quiz-service/internal/domain"
)

func TestProgressStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	saved := domain.Snapshot{
		Questions:        SampleQuestions()[:2],
		CurrentIndex:     1,
		CorrectCount:     1,
		AnsweredCount:    1,
		SecondsRemaining: 7,
	}

	if err := store.Save(ctx, "alice", saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CurrentIndex != 1 || got.CorrectCount != 1 || got.AnsweredCount != 1 || got.SecondsRemaining != 7 || got.Finished {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if len(got.Questions) != 2 || got.Questions[1].CorrectAnswer != saved.Questions[1].CorrectAnswer {
		t.Fatalf("questions not restored: %+v", got.Questions)
	}

	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(ctx, "alice"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected not found after clear, got %v", err)
	}
	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear absent: %v", err)
	}
}

func TestProgressStoreIgnoresEmptyUsername(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	if err := store.Save(ctx, "", domain.Snapshot{CurrentIndex: 0}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(ctx, ""); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressStoreMalformedData(t *testing.T) {
	store := NewProgressStore()
	store.SetRaw("bob", []byte("{not json"))

	_, err := store.Load(context.Background(), "bob")
	if err == nil || errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
