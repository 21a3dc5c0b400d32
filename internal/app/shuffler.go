package app

import (
	"math/rand"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// Shuffler produces a random display order for a question's answers.
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffler() *Shuffler {
	return NewSeededShuffler(time.Now().UnixNano())
}

// NewSeededShuffler is useful for reproducible orderings in tests.
func NewSeededShuffler(seed int64) *Shuffler {
	return &Shuffler{rnd: rand.New(rand.NewSource(seed))}
}

// Shuffle returns the incorrect answers plus the correct answer in random order.
// The question itself is not modified.
func (s *Shuffler) Shuffle(q domain.Question) []string {
	answers := q.Choices()
	s.mu.Lock()
	s.rnd.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	s.mu.Unlock()
	return answers
}
