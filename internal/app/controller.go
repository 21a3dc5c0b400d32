package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
)

const (
	// DefaultTimeLimit is the number of seconds allowed per question.
	DefaultTimeLimit = 10
	// DefaultAmount is the number of questions in a session.
	DefaultAmount = 10
	// DefaultCategory is the OpenTDB "Science: Gadgets" category.
	DefaultCategory = 30
	// DefaultDifficulty is the difficulty requested from the question source.
	DefaultDifficulty = "easy"

	defaultPersistTimeout = 3 * time.Second
)

// DefaultQuery is the batch requested for every new session.
func DefaultQuery() domain.QuestionQuery {
	return domain.QuestionQuery{
		Amount:     DefaultAmount,
		Category:   DefaultCategory,
		Difficulty: DefaultDifficulty,
	}
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) { c.clock = clock }
}

func WithShuffler(s *Shuffler) ControllerOption {
	return func(c *Controller) { c.shuffler = s }
}

func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

func WithQuery(query domain.QuestionQuery) ControllerOption {
	return func(c *Controller) { c.query = query }
}

// WithTimeLimit sets the per-question countdown in seconds.
func WithTimeLimit(seconds int) ControllerOption {
	return func(c *Controller) {
		if seconds > 0 {
			c.timeLimit = seconds
		}
	}
}

// WithSignOut installs the hook Logout uses to drop the current-user marker.
func WithSignOut(fn func(ctx context.Context) error) ControllerOption {
	return func(c *Controller) { c.signOut = fn }
}

type displayKey struct {
	round uint64
	index int
}

// Controller owns one user's quiz session: question sequencing, the
// per-question countdown, scoring and progress persistence.
// All transitions are serialized by mu; the countdown and manual answers
// therefore never advance the same question twice.
type Controller struct {
	query          domain.QuestionQuery
	timeLimit      int
	source         QuestionSource
	progress       ProgressStore
	signOut        func(ctx context.Context) error
	shuffler       *Shuffler
	clock          Clock
	logger         *zap.Logger
	persistTimeout time.Duration

	mu               sync.Mutex
	username         string
	initialized      bool
	closed           bool
	loading          bool
	loadErr          error
	phase            domain.Phase
	questions        []domain.Question
	currentIndex     int
	correctCount     int
	answeredCount    int
	secondsRemaining int

	// round changes whenever the question list or its position is reset, so a
	// retried quiz gets fresh answer orderings.
	round        uint64
	displayed    []string
	displayedKey displayKey

	countdown  Stopper
	generation uint64

	// Store writes happen after mu is released. ioMu orders them and
	// persistSeq lets only the newest queued snapshot reach the store.
	ioMu       sync.Mutex
	persistSeq atomic.Uint64
	pending    *pendingSave

	subscribers map[chan domain.SessionView]struct{}
}

type pendingSave struct {
	seq      uint64
	username string
	snapshot domain.Snapshot
}

// NewController builds a session for username. An empty username or a nil
// progress store keeps the session in memory only.
func NewController(username string, source QuestionSource, progress ProgressStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		query:          DefaultQuery(),
		timeLimit:      DefaultTimeLimit,
		source:         source,
		progress:       progress,
		shuffler:       NewShuffler(),
		clock:          SystemClock(),
		logger:         zap.NewNop(),
		persistTimeout: defaultPersistTimeout,
		username:       username,
		phase:          domain.PhaseNotStarted,
		subscribers:    make(map[chan domain.SessionView]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.secondsRemaining = c.timeLimit
	c.logger = c.logger.With(zap.String("username", username))
	return c
}

// Initialize restores the saved snapshot for the session's user, if any.
// Only the first call has an effect.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	if c.initialized {
		return nil
	}
	c.initialized = true
	if !c.persistent() {
		return nil
	}

	snap, err := c.progress.Load(ctx, c.username)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			c.logger.Warn("ignoring unreadable progress", zap.Error(err))
		}
		return nil
	}
	if err := snap.Validate(); err != nil {
		c.logger.Warn("ignoring invalid progress", zap.Error(err))
		return nil
	}

	c.questions = snap.Questions
	c.currentIndex = snap.CurrentIndex
	c.correctCount = snap.CorrectCount
	c.answeredCount = snap.AnsweredCount
	c.secondsRemaining = snap.SecondsRemaining
	c.round++
	switch {
	case snap.Finished:
		c.phase = domain.PhaseFinished
	case len(c.questions) > 0 && c.currentIndex >= len(c.questions):
		c.phase = domain.PhaseFinished
	default:
		c.phase = domain.PhaseInProgress
	}
	c.logger.Info("progress restored",
		zap.String("phase", string(c.phase)),
		zap.Int("current_index", c.currentIndex),
		zap.Int("answered", c.answeredCount),
	)
	c.scheduleLocked()
	c.broadcastLocked()
	return nil
}

// EnsureQuestionsLoaded fetches a batch when the session has no questions.
// The lock is not held during the fetch, so ticks and answers keep flowing.
// On failure the question list stays empty and the view reports the questions
// as unavailable.
func (c *Controller) EnsureQuestionsLoaded(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if len(c.questions) > 0 || c.loading {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	c.loadErr = nil
	query := c.query
	c.broadcastLocked()
	c.mu.Unlock()

	questions, err := c.source.FetchQuestions(ctx, query)
	if err == nil && len(questions) == 0 {
		err = domain.ErrNoQuestions
	}

	c.mu.Lock()
	defer c.unlock()
	c.loading = false
	if c.closed {
		return domain.ErrSessionClosed
	}
	if err != nil {
		c.loadErr = err
		c.logger.Error("failed to fetch questions", zap.Error(err))
		c.broadcastLocked()
		return fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}
	if len(c.questions) == 0 {
		c.questions = append([]domain.Question(nil), questions...)
		c.round++
		c.logger.Info("questions loaded", zap.Int("count", len(c.questions)))
	}
	if c.phase != domain.PhaseNotStarted {
		c.persistLocked()
	}
	c.scheduleLocked()
	c.broadcastLocked()
	return nil
}

// Start begins a session that has not been started yet.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	if c.phase != domain.PhaseNotStarted {
		return domain.ErrInvalidTransition
	}
	c.phase = domain.PhaseInProgress
	c.secondsRemaining = c.timeLimit
	c.persistLocked()
	c.scheduleLocked()
	c.broadcastLocked()
	return nil
}

// SubmitAnswer records the outcome for the current question and advances.
func (c *Controller) SubmitAnswer(isCorrect bool) error {
	c.mu.Lock()
	defer c.unlock()
	return c.submitLocked(isCorrect)
}

// Answer submits one of the displayed answers for the current question.
func (c *Controller) Answer(choice string) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.answerableLocked(); err != nil {
		return err
	}
	for _, answer := range c.displayedLocked() {
		if answer == choice {
			return c.submitLocked(choice == c.questions[c.currentIndex].CorrectAnswer)
		}
	}
	return domain.ErrUnknownAnswer
}

// AnswerIndex submits the displayed answer at position i.
func (c *Controller) AnswerIndex(i int) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.answerableLocked(); err != nil {
		return err
	}
	answers := c.displayedLocked()
	if i < 0 || i >= len(answers) {
		return domain.ErrUnknownAnswer
	}
	return c.submitLocked(answers[i] == c.questions[c.currentIndex].CorrectAnswer)
}

// Tick advances the countdown by one second. When it runs out the current
// question is recorded as answered incorrectly.
func (c *Controller) Tick() error {
	c.mu.Lock()
	defer c.unlock()
	return c.tickLocked()
}

// Retry forgets the saved progress and returns the session to NotStarted.
// The fetched questions are kept; their answers are reshuffled.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	err := c.clearLocked(ctx)
	c.resetLocked()
	c.broadcastLocked()
	return err
}

// Logout forgets the saved progress and the current-user marker. The session
// continues anonymously; callers are expected to unmount it.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	var errs []error
	if err := c.clearLocked(ctx); err != nil {
		errs = append(errs, err)
	}
	if c.signOut != nil {
		if err := c.signOut(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear current user: %w", err))
		}
	}
	c.logger.Info("logged out")
	c.username = ""
	c.resetLocked()
	c.broadcastLocked()
	return errors.Join(errs...)
}

// Score returns the percentage of correct answers rounded to two decimals.
func (c *Controller) Score() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scoreLocked()
}

// Phase reports the lifecycle state of the session.
func (c *Controller) Phase() domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns the current session state in its persisted form.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// View returns the render model of the session.
func (c *Controller) View() domain.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe returns a channel receiving a view after every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	ch <- c.viewLocked()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Close unmounts the session: the countdown is cancelled and subscribers are
// released. Saved progress is left untouched.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopCountdownLocked()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

func (c *Controller) persistent() bool {
	return c.username != "" && c.progress != nil
}

func (c *Controller) answerableLocked() error {
	if c.closed {
		return domain.ErrSessionClosed
	}
	if c.phase != domain.PhaseInProgress {
		return domain.ErrInvalidTransition
	}
	if len(c.questions) == 0 {
		return domain.ErrQuestionsUnavailable
	}
	if c.currentIndex >= len(c.questions) {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (c *Controller) submitLocked(isCorrect bool) error {
	if err := c.answerableLocked(); err != nil {
		return err
	}
	if isCorrect {
		c.correctCount++
	}
	c.answeredCount++
	c.secondsRemaining = c.timeLimit
	if c.currentIndex < len(c.questions)-1 {
		c.currentIndex++
	} else {
		c.phase = domain.PhaseFinished
		c.logger.Info("quiz finished",
			zap.Int("correct", c.correctCount),
			zap.Int("answered", c.answeredCount),
			zap.Float64("score", c.scoreLocked()),
		)
	}
	c.persistLocked()
	c.scheduleLocked()
	c.broadcastLocked()
	return nil
}

func (c *Controller) tickLocked() error {
	if err := c.answerableLocked(); err != nil {
		return err
	}
	c.secondsRemaining--
	if c.secondsRemaining <= 0 {
		c.logger.Debug("question timed out", zap.Int("index", c.currentIndex))
		return c.submitLocked(false)
	}
	c.persistLocked()
	c.scheduleLocked()
	c.broadcastLocked()
	return nil
}

func (c *Controller) resetLocked() {
	c.stopCountdownLocked()
	c.phase = domain.PhaseNotStarted
	c.currentIndex = 0
	c.correctCount = 0
	c.answeredCount = 0
	c.secondsRemaining = c.timeLimit
	c.round++
}

func (c *Controller) scoreLocked() float64 {
	if len(c.questions) == 0 {
		return 0
	}
	pct := float64(c.correctCount) / float64(len(c.questions)) * 100
	return math.Round(pct*100) / 100
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Questions:        c.questions,
		CurrentIndex:     c.currentIndex,
		CorrectCount:     c.correctCount,
		AnsweredCount:    c.answeredCount,
		SecondsRemaining: c.secondsRemaining,
		Finished:         c.phase == domain.PhaseFinished,
	}
}

// displayedLocked returns the shuffled answers of the current question,
// shuffling only when the question identity changed.
func (c *Controller) displayedLocked() []string {
	if c.currentIndex >= len(c.questions) {
		return nil
	}
	key := displayKey{round: c.round, index: c.currentIndex}
	if c.displayed == nil || c.displayedKey != key {
		c.displayed = c.shuffler.Shuffle(c.questions[c.currentIndex])
		c.displayedKey = key
	}
	return c.displayed
}

func (c *Controller) viewLocked() domain.SessionView {
	view := domain.SessionView{
		Username:             c.username,
		Phase:                c.phase,
		TotalQuestions:       len(c.questions),
		SecondsRemaining:     c.secondsRemaining,
		CorrectCount:         c.correctCount,
		AnsweredCount:        c.answeredCount,
		WrongCount:           c.answeredCount - c.correctCount,
		Score:                c.scoreLocked(),
		Loading:              c.loading,
		QuestionsUnavailable: c.loadErr != nil && len(c.questions) == 0,
	}
	if c.phase == domain.PhaseInProgress && c.currentIndex < len(c.questions) {
		view.QuestionNumber = c.currentIndex + 1
		view.Question = c.questions[c.currentIndex].Text
		view.Answers = append([]string(nil), c.displayedLocked()...)
	}
	return view
}

// persistLocked queues the current snapshot; unlock writes it once mu is
// released, so a slow store never stalls answers, ticks or views.
func (c *Controller) persistLocked() {
	if !c.persistent() {
		return
	}
	c.pending = &pendingSave{
		seq:      c.persistSeq.Add(1),
		username: c.username,
		snapshot: c.snapshotLocked(),
	}
}

// unlock releases mu, then writes the snapshot queued while it was held.
func (c *Controller) unlock() {
	p := c.pending
	c.pending = nil
	c.mu.Unlock()
	if p != nil {
		c.save(p)
	}
}

func (c *Controller) save(p *pendingSave) {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	if p.seq != c.persistSeq.Load() {
		// a newer snapshot or a clear superseded this one
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
	defer cancel()
	if err := c.progress.Save(ctx, p.username, p.snapshot); err != nil {
		c.logger.Warn("failed to save progress", zap.Error(err))
	}
}

// clearLocked drops queued snapshots and waits out any write in flight, so
// cleared progress is never written back.
func (c *Controller) clearLocked(ctx context.Context) error {
	if !c.persistent() {
		return nil
	}
	c.persistSeq.Add(1)
	c.pending = nil
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	if err := c.progress.Clear(ctx, c.username); err != nil {
		c.logger.Warn("failed to clear progress", zap.Error(err))
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

func (c *Controller) broadcastLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	view := c.viewLocked()
	for ch := range c.subscribers {
		select {
		case ch <- view:
		default:
			// a slow reader only needs the latest view
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
