package domain

import (
	"fmt"
	"time"
)

// Phase is the coarse lifecycle state of a quiz session.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

// Question is a single multiple-choice trivia question. Text fields hold plain
// text; provider markup is decoded before a Question is built.
type Question struct {
	Category         string   `json:"category,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"`
	Text             string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

// Choices returns the incorrect answers followed by the correct one.
func (q Question) Choices() []string {
	choices := make([]string, 0, len(q.IncorrectAnswers)+1)
	choices = append(choices, q.IncorrectAnswers...)
	return append(choices, q.CorrectAnswer)
}

// QuestionQuery describes the batch requested from a question source.
type QuestionQuery struct {
	Amount     int    `json:"amount"`
	Category   int    `json:"category"`
	Difficulty string `json:"difficulty"`
}

// Key identifies the query for caching.
func (q QuestionQuery) Key() string {
	return fmt.Sprintf("%d:%s:%d", q.Category, q.Difficulty, q.Amount)
}

// Snapshot is the persisted form of a session, stored per username.
type Snapshot struct {
	Questions        []Question `json:"questions"`
	CurrentIndex     int        `json:"currentIndex"`
	CorrectCount     int        `json:"correctCount"`
	AnsweredCount    int        `json:"answeredCount"`
	SecondsRemaining int        `json:"secondsRemaining"`
	Finished         bool       `json:"finished"`
}

// ProgressKey is the storage key of a user's snapshot.
func ProgressKey(username string) string {
	return "quizProgress_" + username
}

// Validate checks the counter invariants of a snapshot.
func (s Snapshot) Validate() error {
	total := len(s.Questions)
	switch {
	case s.CurrentIndex < 0, s.CorrectCount < 0, s.AnsweredCount < 0, s.SecondsRemaining < 0:
		return fmt.Errorf("%w: negative counter", ErrInvalidSnapshot)
	case s.CurrentIndex > total:
		return fmt.Errorf("%w: index %d beyond %d questions", ErrInvalidSnapshot, s.CurrentIndex, total)
	case s.AnsweredCount > total:
		return fmt.Errorf("%w: %d answered of %d questions", ErrInvalidSnapshot, s.AnsweredCount, total)
	case s.CorrectCount > s.AnsweredCount:
		return fmt.Errorf("%w: %d correct of %d answered", ErrInvalidSnapshot, s.CorrectCount, s.AnsweredCount)
	}
	return nil
}

// User is a registered quiz player.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionView is the render model of a session pushed to clients.
type SessionView struct {
	Username             string   `json:"username"`
	Phase                Phase    `json:"phase"`
	QuestionNumber       int      `json:"questionNumber"`
	TotalQuestions       int      `json:"totalQuestions"`
	Question             string   `json:"question,omitempty"`
	Answers              []string `json:"answers,omitempty"`
	SecondsRemaining     int      `json:"secondsRemaining"`
	CorrectCount         int      `json:"correctCount"`
	AnsweredCount        int      `json:"answeredCount"`
	WrongCount           int      `json:"wrongCount"`
	Score                float64  `json:"score"`
	Loading              bool     `json:"loading"`
	QuestionsUnavailable bool     `json:"questionsUnavailable"`
}
