// Package tui implements the terminal quiz client using Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const (
	keyCtrlC = "ctrl+c"
	keyEnter = "enter"
	keyUp    = "up"
	keyDown  = "down"
)

type viewMsg domain.SessionView

type closedMsg struct{}

type loadedMsg struct{ err error }

type actionErrMsg struct{ err error }

type loggedOutMsg struct{ err error }

// Model renders one controller and forwards key presses to it.
type Model struct {
	ctx        context.Context
	controller *app.Controller
	updates    <-chan domain.SessionView
	cancel     func()

	view     domain.SessionView
	cursor   int
	err      string
	quitting bool
}

// NewModel subscribes to controller. The subscription is released when the
// program quits.
func NewModel(ctx context.Context, controller *app.Controller) Model {
	updates, cancel := controller.Subscribe()
	return Model{
		ctx:        ctx,
		controller: controller,
		updates:    updates,
		cancel:     cancel,
		view:       controller.View(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForView(), m.load())
}

func (m Model) waitForView() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		view, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return viewMsg(view)
	}
}

func (m Model) load() tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		return loadedMsg{err: controller.EnsureQuestionsLoaded(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		prev := m.view
		m.view = domain.SessionView(msg)
		if m.view.QuestionNumber != prev.QuestionNumber || m.view.Phase != prev.Phase {
			m.cursor = 0
		}
		return m, m.waitForView()
	case closedMsg:
		return m.quit()
	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		}
		return m, nil
	case actionErrMsg:
		m.err = msg.err.Error()
		return m, nil
	case loggedOutMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		}
		return m.quit()
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	m.err = ""
	switch key {
	case keyCtrlC, "q":
		return m.quit()
	case "L":
		ctx, controller := m.ctx, m.controller
		return m, func() tea.Msg {
			return loggedOutMsg{err: controller.Logout(ctx)}
		}
	}

	switch m.view.Phase {
	case domain.PhaseNotStarted:
		if key == "s" || key == keyEnter {
			return m.act(m.controller.Start())
		}
	case domain.PhaseInProgress:
		switch key {
		case keyUp, "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case keyDown, "j":
			if m.cursor < len(m.view.Answers)-1 {
				m.cursor++
			}
		case keyEnter:
			return m.act(m.controller.AnswerIndex(m.cursor))
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			return m.act(m.controller.AnswerIndex(int(key[0] - '1')))
		}
	case domain.PhaseFinished:
		if key == "r" {
			return m.act(m.controller.Retry(m.ctx))
		}
	}

	if key == "u" && m.view.QuestionsUnavailable {
		return m, m.load()
	}
	return m, nil
}

func (m Model) act(err error) (tea.Model, tea.Cmd) {
	if err != nil {
		return m, func() tea.Msg { return actionErrMsg{err: err} }
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Trivia Quiz"))
	if m.view.Username != "" {
		b.WriteString(DimStyle.Render("  playing as " + m.view.Username))
	}
	b.WriteString("\n\n")

	switch m.view.Phase {
	case domain.PhaseNotStarted:
		b.WriteString(m.renderStart())
	case domain.PhaseInProgress:
		b.WriteString(m.renderQuestion())
	case domain.PhaseFinished:
		b.WriteString(m.renderScore())
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.err))
	}
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("q quit · L log out"))
	return BoxStyle.Render(b.String())
}

func (m Model) renderStart() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d questions, %d seconds each.\n", m.view.TotalQuestions, m.view.SecondsRemaining))
	switch {
	case m.view.Loading:
		b.WriteString(DimStyle.Render("Loading questions..."))
	case m.view.QuestionsUnavailable:
		b.WriteString(ErrorStyle.Render("Questions could not be loaded. Press u to try again."))
	default:
		b.WriteString("Press s to start.")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderQuestion() string {
	if m.view.Question == "" {
		if m.view.QuestionsUnavailable {
			return ErrorStyle.Render("Questions could not be loaded. Press u to try again.") + "\n"
		}
		return DimStyle.Render("Loading questions...") + "\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Question %d of %d  ", m.view.QuestionNumber, m.view.TotalQuestions))
	b.WriteString(TimerStyle.Render(fmt.Sprintf("%ds left", m.view.SecondsRemaining)))
	b.WriteString("\n")
	b.WriteString(QuestionStyle.Render(m.view.Question))
	b.WriteString("\n")
	for i, answer := range m.view.Answers {
		line := fmt.Sprintf("%d. %s", i+1, answer)
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderScore() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Score: %.2f%%\n", m.view.Score))
	b.WriteString(fmt.Sprintf("Correct: %d  Wrong: %d  Answered: %d of %d\n",
		m.view.CorrectCount, m.view.WrongCount, m.view.AnsweredCount, m.view.TotalQuestions))
	b.WriteString("Press r to retry.\n")
	return b.String()
}

// Run starts the terminal client on controller and blocks until it exits.
func Run(ctx context.Context, controller *app.Controller) error {
	p := tea.NewProgram(NewModel(ctx, controller), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
