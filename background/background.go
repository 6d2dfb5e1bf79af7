// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package background refreshes cached coffee and balance data on a
// fixed schedule, independent of user interaction or contract
// events, for as long as the client is visible.
package background

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/sirupsen/logrus"
)

// Invalidator marks cache entries stale.  *querycache.Cache
// implements it.
type Invalidator interface {
	Invalidate(querycache.Predicate) int
}

// Visibility reports whether anybody is looking.  *realtime.Presence
// implements it.
type Visibility interface {
	Visible() bool
}

// Stats counts what a Scheduler has done.
type Stats struct {
	// Coffees is the number of coffee list invalidations.
	Coffees int

	// Balances is the number of balance invalidations.
	Balances int

	// Skipped is the number of ticks ignored because the client
	// was not visible.
	Skipped int
}

// Scheduler runs the periodic refresh.
type Scheduler struct {
	// Cache is invalidated on every tick.  This field is
	// required.
	Cache Invalidator

	// Visibility gates every tick.  If unset, the client is
	// always considered visible.
	Visibility Visibility

	// Coffees selects the coffee list entries.  If unset, uses
	// policy.Coffees.
	Coffees querycache.Predicate

	// Balances selects the balance entries.  If unset, uses
	// policy.Balances.
	Balances querycache.Predicate

	// CoffeeInterval is the coffee list refresh period.  If
	// unset, defaults to 15 seconds.
	CoffeeInterval time.Duration

	// BalanceInterval is the balance refresh period.  If unset,
	// defaults to 30 seconds.
	BalanceInterval time.Duration

	// Clock defines a time source for the scheduler.  Only test
	// code should need to set this.  If unset, uses a time source
	// backed by real wall-clock time.
	Clock clock.Clock

	// Log receives diagnostics.  If unset, uses the standard
	// logrus logger.
	Log logrus.FieldLogger

	lock   sync.Mutex
	stats  Stats
	cancel context.CancelFunc
	done   chan struct{}
}

// setDefaults sets default values for any Scheduler fields that are
// uninitialized.
func (s *Scheduler) setDefaults() {
	if s.Coffees == nil {
		s.Coffees = policy.Coffees
	}
	if s.Balances == nil {
		s.Balances = policy.Balances
	}
	if s.CoffeeInterval == time.Duration(0) {
		s.CoffeeInterval = 15 * time.Second
	}
	if s.BalanceInterval == time.Duration(0) {
		s.BalanceInterval = 30 * time.Second
	}
	if s.Clock == nil {
		s.Clock = clock.New()
	}
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
}

// Run refreshes the cache until ctx is cancelled.  It always returns
// nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.setDefaults()
	coffees := s.Clock.Ticker(s.CoffeeInterval)
	balances := s.Clock.Ticker(s.BalanceInterval)
	s.loop(ctx, coffees, balances)
	return nil
}

// Start runs the scheduler in the background.  Its timers are
// running when Start returns.  Call Stop to end it.
func (s *Scheduler) Start(ctx context.Context) {
	s.setDefaults()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.lock.Lock()
	s.cancel = cancel
	s.done = done
	s.lock.Unlock()

	coffees := s.Clock.Ticker(s.CoffeeInterval)
	balances := s.Clock.Ticker(s.BalanceInterval)
	go func() {
		defer close(done)
		s.loop(ctx, coffees, balances)
	}()
}

// Stop ends a scheduler begun with Start and waits for it to exit.
// No invalidation happens after Stop returns.
func (s *Scheduler) Stop() {
	s.lock.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lock.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, coffees, balances *clock.Ticker) {
	defer coffees.Stop()
	defer balances.Stop()
	for {
		select {
		case <-ctx.Done():
			return

		case <-coffees.C:
			s.tick("coffees", s.Coffees, func(st *Stats) { st.Coffees++ })

		case <-balances.C:
			s.tick("balances", s.Balances, func(st *Stats) { st.Balances++ })
		}
	}
}

// tick invalidates one class of data if the client is visible.
func (s *Scheduler) tick(class string, pred querycache.Predicate, count func(*Stats)) {
	if s.Visibility != nil && !s.Visibility.Visible() {
		s.lock.Lock()
		s.stats.Skipped++
		s.lock.Unlock()
		return
	}
	n := s.Cache.Invalidate(pred)
	s.lock.Lock()
	count(&s.stats)
	s.lock.Unlock()
	refreshes.WithLabelValues(class).Inc()
	s.Log.WithFields(logrus.Fields{
		"class":   class,
		"entries": n,
	}).Debug("background refresh")
}

// Stats returns counts of invalidations so far.
func (s *Scheduler) Stats() Stats {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stats
}
