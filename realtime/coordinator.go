// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package realtime

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// State is the state of a Coordinator.
type State int

const (
	// Idle coordinators have nothing scheduled and would run the
	// next invalidation.
	Idle State = iota

	// DebouncePending coordinators have an invalidation scheduled
	// at the end of the debounce window.
	DebouncePending

	// Cooldown coordinators have nothing scheduled, but ran an
	// invalidation too recently for another to run.
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DebouncePending:
		return "debounce-pending"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Stats counts what a Coordinator has done.
type Stats struct {
	// Requested is the number of accepted Request calls.
	Requested int

	// Executed is the number of invalidations run.
	Executed int

	// Suppressed is the number of debounce windows that ended
	// inside the cooldown period.
	Suppressed int
}

// Coordinator turns a stream of invalidation requests into a
// throttled sequence of invalidations.
//
// Every request restarts a short debounce timer, so a burst of
// requests collapses into one.  When the timer fires, the
// invalidation runs only if at least the cooldown period has passed
// since the last one ran; otherwise it is dropped, and the next
// request starts over.
//
// Fill in the exported fields before the first call to Request.
type Coordinator struct {
	// Invalidate is the action being throttled.  This field is
	// required.
	Invalidate func()

	// Debounce is the quiet period after a request before the
	// invalidation is considered.  If unset, 500ms.
	Debounce time.Duration

	// Cooldown is the minimum time between two invalidations.  If
	// unset, 2s.
	Cooldown time.Duration

	// Clock is the time source.  Only test code should need to
	// set this.
	Clock clock.Clock

	// Log receives diagnostics.  If unset, uses the standard
	// logrus logger.
	Log logrus.FieldLogger

	once sync.Once

	// lock protects everything below.
	lock       sync.Mutex
	timer      *clock.Timer
	generation uint64
	last       time.Time
	ran        bool
	stopped    bool
	stats      Stats

	// running is held while an invalidation executes, so Stop
	// can wait for it.
	running sync.Mutex
}

func (c *Coordinator) setDefaults() {
	c.once.Do(func() {
		if c.Debounce == 0 {
			c.Debounce = 500 * time.Millisecond
		}
		if c.Cooldown == 0 {
			c.Cooldown = 2 * time.Second
		}
		if c.Clock == nil {
			c.Clock = clock.New()
		}
		if c.Log == nil {
			c.Log = logrus.StandardLogger()
		}
	})
}

// Request asks for an invalidation on behalf of sig.  It never
// blocks on the invalidation itself.  After Stop, it does nothing.
func (c *Coordinator) Request(sig Signal) {
	c.setDefaults()
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.stopped {
		return
	}
	c.stats.Requested++
	signals.WithLabelValues(sig.String()).Inc()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.generation++
	gen := c.generation
	c.timer = c.Clock.AfterFunc(c.Debounce, func() { c.fire(gen, sig) })
}

// fire ends the debounce window started by request number gen.  A
// timer that was replaced or stopped may still call this; it is
// recognized by its stale generation and ignored.
func (c *Coordinator) fire(gen uint64, sig Signal) {
	c.running.Lock()
	defer c.running.Unlock()

	c.lock.Lock()
	if c.stopped || gen != c.generation {
		c.lock.Unlock()
		return
	}
	c.timer = nil
	now := c.Clock.Now()
	if c.ran && now.Sub(c.last) < c.Cooldown {
		c.stats.Suppressed++
		c.lock.Unlock()
		outcomes.WithLabelValues("suppressed").Inc()
		c.Log.WithFields(logrus.Fields{
			"signal": sig,
			"since":  now.Sub(c.last),
		}).Debug("invalidation suppressed by cooldown")
		return
	}
	c.last = now
	c.ran = true
	c.stats.Executed++
	c.lock.Unlock()

	outcomes.WithLabelValues("executed").Inc()
	c.run(sig)
}

func (c *Coordinator) run(sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			c.Log.WithFields(logrus.Fields{
				"signal": sig,
				"panic":  r,
			}).Error("invalidation panicked")
		}
	}()
	if c.Invalidate != nil {
		c.Invalidate()
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.setDefaults()
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.timer != nil {
		return DebouncePending
	}
	if c.ran && c.Clock.Now().Sub(c.last) < c.Cooldown {
		return Cooldown
	}
	return Idle
}

// Stats returns counts of requests and invalidations.
func (c *Coordinator) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.stats
}

// Stop cancels any scheduled invalidation and waits for a running one
// to finish.  No invalidation runs after Stop returns.  Stop may be
// called more than once.
func (c *Coordinator) Stop() {
	c.lock.Lock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.lock.Unlock()

	c.running.Lock()
	c.running.Unlock()
}
