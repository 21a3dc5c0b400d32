package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func newLoadedModel(t *testing.T) (Model, *app.Controller) {
	t.Helper()
	ctx := context.Background()
	controller := app.NewController("", memory.NewStaticQuestionSource(memory.SampleQuestions()), nil)
	t.Cleanup(controller.Close)
	if err := controller.EnsureQuestionsLoaded(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	m := NewModel(ctx, controller)
	return m, controller
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, controller *app.Controller, k string) Model {
	t.Helper()
	next, _ := m.Update(key(k))
	next, _ = next.Update(viewMsg(controller.View()))
	return next.(Model)
}

func TestModelStartsAndAnswers(t *testing.T) {
	m, controller := newLoadedModel(t)
	if !strings.Contains(m.View(), "Press s to start") {
		t.Fatalf("expected start prompt, got:\n%s", m.View())
	}

	m = press(t, m, controller, "s")
	if controller.Phase() != domain.PhaseInProgress {
		t.Fatalf("expected in progress, got %s", controller.Phase())
	}
	if !strings.Contains(m.View(), "Question 1 of 10") {
		t.Fatalf("expected first question, got:\n%s", m.View())
	}

	m = press(t, m, controller, "down")
	if m.cursor != 1 {
		t.Fatalf("expected cursor on second answer, got %d", m.cursor)
	}
	m = press(t, m, controller, "enter")
	if got := controller.Snapshot().AnsweredCount; got != 1 {
		t.Fatalf("expected one answer, got %d", got)
	}
	if m.cursor != 0 {
		t.Fatalf("expected cursor reset on next question, got %d", m.cursor)
	}
	if !strings.Contains(m.View(), "Question 2 of 10") {
		t.Fatalf("expected second question, got:\n%s", m.View())
	}
}

func TestModelShowsScoreAndRetries(t *testing.T) {
	m, controller := newLoadedModel(t)
	m = press(t, m, controller, "s")
	for i := 0; i < 10; i++ {
		m = press(t, m, controller, "1")
	}
	if controller.Phase() != domain.PhaseFinished {
		t.Fatalf("expected finished, got %s", controller.Phase())
	}
	if !strings.Contains(m.View(), "Score:") {
		t.Fatalf("expected score screen, got:\n%s", m.View())
	}

	m = press(t, m, controller, "r")
	if controller.Phase() != domain.PhaseNotStarted {
		t.Fatalf("expected retry to reset, got %s", controller.Phase())
	}
}

func TestModelReportsInvalidAction(t *testing.T) {
	m, _ := newLoadedModel(t)
	next, cmd := m.Update(key("r"))
	if cmd != nil {
		t.Fatalf("retry before finishing should be ignored")
	}
	m = next.(Model)

	next, _ = m.Update(actionErrMsg{err: domain.ErrInvalidTransition})
	if !strings.Contains(next.View(), domain.ErrInvalidTransition.Error()) {
		t.Fatalf("expected error in view, got:\n%s", next.View())
	}
}

func TestModelQuitsWhenSessionCloses(t *testing.T) {
	m, _ := newLoadedModel(t)
	next, cmd := m.Update(closedMsg{})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if next.View() != "" {
		t.Fatalf("expected empty view after quit")
	}
}
