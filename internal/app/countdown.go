package app

import (
	"time"

	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
)

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Clock schedules the per-second countdown callbacks of a controller.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// SystemClock schedules callbacks with time.AfterFunc.
func SystemClock() Clock {
	return systemClock{}
}

const tickInterval = time.Second

// scheduleLocked replaces any pending countdown callback with a fresh one.
// Nothing is scheduled unless the session is in progress with questions loaded.
func (c *Controller) scheduleLocked() {
	c.stopCountdownLocked()
	if c.closed || c.phase != domain.PhaseInProgress || len(c.questions) == 0 {
		return
	}
	gen := c.generation
	c.countdown = c.clock.AfterFunc(tickInterval, func() {
		c.fire(gen)
	})
}

// stopCountdownLocked invalidates every callback scheduled so far, including
// one that already fired and is waiting for the lock.
func (c *Controller) stopCountdownLocked() {
	c.generation++
	if c.countdown != nil {
		c.countdown.Stop()
		c.countdown = nil
	}
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed || gen != c.generation {
		return
	}
	c.countdown = nil
	if err := c.tickLocked(); err != nil {
		c.logger.Debug("countdown tick ignored", zap.Error(err))
	}
}
