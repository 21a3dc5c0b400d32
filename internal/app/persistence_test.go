package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

// stallingStore holds the first Save until release is closed.
type stallingStore struct {
	*memory.ProgressStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingStore) Save(ctx context.Context, username string, snapshot domain.Snapshot) error {
	first := false
	s.once.Do(func() {
		first = true
		close(s.entered)
	})
	if first {
		<-s.release
	}
	return s.ProgressStore.Save(ctx, username, snapshot)
}

func TestSlowStoreDoesNotBlockSession(t *testing.T) {
	store := &stallingStore{
		ProgressStore: memory.NewProgressStore(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	c := app.NewController("gina", memory.NewStaticQuestionSource(memory.SampleQuestions()), store, app.WithClock(&manualClock{}))
	defer c.Close()
	if err := c.EnsureQuestionsLoaded(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	started := make(chan error, 1)
	go func() { started <- c.Start() }()
	<-store.entered

	viewed := make(chan domain.SessionView, 1)
	go func() { viewed <- c.View() }()
	select {
	case view := <-viewed:
		if view.Phase != domain.PhaseInProgress {
			t.Fatalf("expected in progress while saving, got %s", view.Phase)
		}
	case <-time.After(time.Second):
		t.Fatalf("view blocked behind a pending store write")
	}

	close(store.release)
	if err := <-started; err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.SubmitAnswer(true); err != nil {
		t.Fatalf("answer: %v", err)
	}

	snap, err := store.Load(context.Background(), "gina")
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if snap.AnsweredCount != 1 || snap.CurrentIndex != 1 {
		t.Fatalf("expected latest snapshot saved, got %+v", snap)
	}
}

func TestRetryClearWinsOverQueuedSave(t *testing.T) {
	store := &stallingStore{
		ProgressStore: memory.NewProgressStore(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	c := app.NewController("hank", memory.NewStaticQuestionSource(memory.SampleQuestions()), store, app.WithClock(&manualClock{}))
	defer c.Close()
	if err := c.EnsureQuestionsLoaded(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	started := make(chan error, 1)
	go func() { started <- c.Start() }()
	<-store.entered

	retried := make(chan error, 1)
	go func() { retried <- c.Retry(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	if err := <-started; err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := <-retried; err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.Phase() != domain.PhaseNotStarted {
		t.Fatalf("expected not started after retry, got %s", c.Phase())
	}
	if _, err := store.Load(context.Background(), "hank"); err == nil {
		t.Fatalf("expected retry to leave no saved progress")
	}
}
