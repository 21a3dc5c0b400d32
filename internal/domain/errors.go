package domain

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrQuestionsUnavailable indicates the question batch has not been loaded.
	ErrQuestionsUnavailable = errors.New("questions unavailable")
	// ErrSessionClosed is returned once a controller has been unmounted.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrSessionNotFound is returned when no controller is mounted for a client.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUnknownAnswer indicates a submitted answer is not among the displayed choices.
	ErrUnknownAnswer = errors.New("answer not offered for current question")
	// ErrSnapshotNotFound is returned by progress stores when nothing is saved for a user.
	ErrSnapshotNotFound = errors.New("progress snapshot not found")
	// ErrInvalidSnapshot indicates a stored snapshot violates its invariants.
	ErrInvalidSnapshot = errors.New("invalid progress snapshot")
	// ErrNoQuestions indicates a question source returned an empty batch.
	ErrNoQuestions = errors.New("no questions available")

	// ErrUserNotFound is returned by credential stores for unknown usernames.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmptyUsername rejects logins without a username.
	ErrEmptyUsername = errors.New("username is required")
	// ErrWeakPassword rejects passwords that do not meet the strength rule.
	ErrWeakPassword = errors.New("password must be at least 8 characters long, include at least 1 number, and 1 special character")
	// ErrIncorrectPassword is returned when a known user supplies the wrong password.
	ErrIncorrectPassword = errors.New("incorrect password")
)
