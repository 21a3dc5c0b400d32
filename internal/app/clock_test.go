package app_test

import (
	"sync"
	"sync/atomic"
	"time"

	"trivia-quiz-service/internal/app"
)

// manualClock records scheduled callbacks; Advance runs the live ones as if
// one second had elapsed.
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
	all     []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped atomic.Bool
}

func (t *manualTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) app.Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.pending = append(c.pending, t)
	c.all = append(c.all, t)
	return t
}

func (c *manualClock) Advance() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, t := range pending {
		if t.Stop() {
			t.f()
		}
	}
}

func (c *manualClock) AdvanceN(n int) {
	for i := 0; i < n; i++ {
		c.Advance()
	}
}

// Live reports how many scheduled callbacks are still armed.
func (c *manualClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := 0
	for _, t := range c.pending {
		if !t.stopped.Load() {
			live++
		}
	}
	return live
}

func (c *manualClock) Scheduled() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*manualTimer(nil), c.all...)
}
