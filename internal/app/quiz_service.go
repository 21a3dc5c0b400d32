package app

import (
	"context"

	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
)

// QuestionSource provides batches of trivia questions (HTTP provider, database, etc).
type QuestionSource interface {
	FetchQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error)
}

// ProgressStore persists one session snapshot per username.
// Implementations treat an empty username as a no-op.
type ProgressStore interface {
	Save(ctx context.Context, username string, snapshot domain.Snapshot) error
	// Load returns domain.ErrSnapshotNotFound when nothing is stored.
	Load(ctx context.Context, username string) (domain.Snapshot, error)
	Clear(ctx context.Context, username string) error
}

// CredentialStore keeps registered users and the current user of each client.
type CredentialStore interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpsertUser(ctx context.Context, user domain.User) error
	// FindUser returns domain.ErrUserNotFound for unknown usernames.
	FindUser(ctx context.Context, username string) (domain.User, error)
	// CurrentUser returns an empty string when the client is not logged in.
	CurrentUser(ctx context.Context, clientID string) (string, error)
	SetCurrentUser(ctx context.Context, clientID, username string) error
	ClearCurrentUser(ctx context.Context, clientID string) error
}

// SessionRepository tracks the controller mounted for each client.
type SessionRepository interface {
	// Put mounts c for clientID and returns the controller it replaced, if any.
	Put(clientID string, c *Controller) *Controller
	Get(clientID string) (*Controller, bool)
	// Delete forgets c only if it is still the controller mounted for clientID.
	Delete(clientID string, c *Controller)
	// Touch marks the client's session as still active.
	Touch(clientID string)
}

// Settings configures the sessions created by QuizService.
type Settings struct {
	Query     domain.QuestionQuery
	TimeLimit int
}

func DefaultSettings() Settings {
	return Settings{Query: DefaultQuery(), TimeLimit: DefaultTimeLimit}
}

// QuizService mounts quiz sessions for clients.
type QuizService struct {
	sessions    SessionRepository
	credentials CredentialStore
	progress    ProgressStore
	source      QuestionSource
	settings    Settings
	logger      *zap.Logger
	clock       Clock
}

func NewQuizService(sessions SessionRepository, credentials CredentialStore, progress ProgressStore, source QuestionSource, settings Settings, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		sessions:    sessions,
		credentials: credentials,
		progress:    progress,
		source:      source,
		settings:    settings,
		logger:      logger,
		clock:       SystemClock(),
	}
}

// NewQuizServiceWithClock is test-only for driving countdowns by hand.
func NewQuizServiceWithClock(sessions SessionRepository, credentials CredentialStore, progress ProgressStore, source QuestionSource, settings Settings, clock Clock) *QuizService {
	s := NewQuizService(sessions, credentials, progress, source, settings, nil)
	s.clock = clock
	return s
}

// Mount creates the session for clientID and restores its user's progress.
// A session previously mounted for the same client is closed so only one
// countdown writes that user's snapshot.
func (s *QuizService) Mount(ctx context.Context, clientID string) (*Controller, error) {
	username, err := s.credentials.CurrentUser(ctx, clientID)
	if err != nil {
		// Play continues without persistence.
		s.logger.Warn("failed to read current user", zap.String("client_id", clientID), zap.Error(err))
		username = ""
	}

	controller := NewController(username, s.source, s.progress,
		WithQuery(s.settings.Query),
		WithTimeLimit(s.settings.TimeLimit),
		WithClock(s.clock),
		WithLogger(s.logger.With(zap.String("client_id", clientID))),
		WithSignOut(func(ctx context.Context) error {
			return s.credentials.ClearCurrentUser(ctx, clientID)
		}),
	)
	if err := controller.Initialize(ctx); err != nil {
		return nil, err
	}

	if previous := s.sessions.Put(clientID, controller); previous != nil && previous != controller {
		previous.Close()
	}
	return controller, nil
}

// Unmount closes the controller and forgets it.
func (s *QuizService) Unmount(clientID string, controller *Controller) {
	controller.Close()
	s.sessions.Delete(clientID, controller)
}

// Touch reports activity on clientID's session.
func (s *QuizService) Touch(clientID string) {
	s.sessions.Touch(clientID)
}

// Session returns the controller mounted for clientID.
func (s *QuizService) Session(clientID string) (*Controller, error) {
	controller, ok := s.sessions.Get(clientID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return controller, nil
}
