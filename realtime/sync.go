// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/sirupsen/logrus"
)

// EventSource delivers coffee events from the contract.
type EventSource interface {
	// WatchCoffees calls fn for every new coffee until ctx is
	// cancelled.  Implementations fall back to polling when the
	// transport cannot push.  It returns nil when ctx is
	// cancelled, or an error if watching is impossible.
	WatchCoffees(ctx context.Context, fn func(coffee.Event)) error
}

// BlockSource delivers new block numbers.
type BlockSource interface {
	// WatchBlocks calls fn for every new block until ctx is
	// cancelled, with the same return conventions as
	// EventSource.WatchCoffees.
	WatchBlocks(ctx context.Context, fn func(number uint64)) error
}

// Confirmer resolves optimistic records when their coffee is seen
// on chain.
type Confirmer interface {
	// Confirm reports whether ev matched an outstanding
	// optimistic record, which is then confirmed.
	Confirm(ev coffee.Event) bool
}

// Sync connects the signal sources to a Coordinator.
type Sync struct {
	// Coordinator receives every signal.  This field is
	// required.
	Coordinator *Coordinator

	// Presence, if set, contributes visibility, focus and
	// connectivity signals, and gates the periodic timer.
	Presence *Presence

	// Events, if set, contributes contract event signals.
	Events EventSource

	// Blocks, if set, contributes new block signals.
	Blocks BlockSource

	// Confirmer, if set, sees every contract event before it is
	// turned into a signal.
	Confirmer Confirmer

	// Interval is the period of the refresh timer, which fires
	// only while Presence is active.  If unset, 30s.
	Interval time.Duration

	// BlockEvery says how many blocks make one signal.  If
	// unset, 3.
	BlockEvery int

	// Clock drives the refresh timer.
	Clock clock.Clock

	// Log receives diagnostics.
	Log logrus.FieldLogger

	lock      sync.Mutex
	cancel    context.CancelFunc
	stopWatch func()
	closed    bool
	blocks    uint64
	wg        sync.WaitGroup
}

func (s *Sync) setDefaults() {
	if s.Interval == 0 {
		s.Interval = 30 * time.Second
	}
	if s.BlockEvery <= 0 {
		s.BlockEvery = 3
	}
	if s.Clock == nil {
		s.Clock = clock.New()
	}
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
}

// Start subscribes to every configured source.  A source that fails
// is logged and dropped; the others keep running.
func (s *Sync) Start(ctx context.Context) {
	s.setDefaults()
	ctx, cancel := context.WithCancel(ctx)
	s.lock.Lock()
	s.cancel = cancel
	s.lock.Unlock()

	if s.Presence != nil {
		stop := s.Presence.Watch(s.Request)
		s.lock.Lock()
		s.stopWatch = stop
		s.lock.Unlock()
	}
	if s.Events != nil {
		s.source(ctx, "events", func(ctx context.Context) error {
			return s.Events.WatchCoffees(ctx, s.onEvent)
		})
	}
	if s.Blocks != nil {
		s.source(ctx, "blocks", func(ctx context.Context) error {
			return s.Blocks.WatchBlocks(ctx, s.onBlock)
		})
	}
	s.wg.Add(1)
	go s.tick(ctx)
}

// source runs one watcher in its own goroutine.
func (s *Sync) source(ctx context.Context, name string, watch func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				sourceFailures.WithLabelValues(name).Inc()
				s.Log.WithFields(logrus.Fields{
					"source": name,
					"panic":  r,
				}).Error("signal source panicked")
			}
		}()
		err := watch(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			sourceFailures.WithLabelValues(name).Inc()
			s.Log.WithFields(logrus.Fields{
				"source": name,
				"err":    err,
			}).Warn("signal source failed, continuing without it")
		}
	}()
}

func (s *Sync) tick(ctx context.Context) {
	defer s.wg.Done()
	ticker := s.Clock.Ticker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Presence == nil || s.Presence.Active() {
				s.Request(SignalTimer)
			}
		}
	}
}

func (s *Sync) isClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

func (s *Sync) onEvent(ev coffee.Event) {
	if s.isClosed() {
		return
	}
	s.guard("events", func() {
		if s.Confirmer != nil && s.Confirmer.Confirm(ev) {
			s.Log.WithFields(logrus.Fields{
				"creator": ev.Creator,
				"tx":      ev.TxHash,
			}).Debug("confirmed optimistic coffee")
		}
	})
	s.Request(SignalEvent)
}

func (s *Sync) onBlock(number uint64) {
	s.lock.Lock()
	s.blocks++
	fire := s.blocks%uint64(s.BlockEvery) == 0
	s.lock.Unlock()
	if fire {
		s.Request(SignalBlock)
	}
}

// guard runs fn, logging rather than propagating a panic.
func (s *Sync) guard(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.WithFields(logrus.Fields{
				"source": name,
				"panic":  r,
			}).Error("signal handler panicked")
		}
	}()
	fn()
}

// Request forwards a signal to the coordinator, unless the sync has
// been closed.
func (s *Sync) Request(sig Signal) {
	if s.isClosed() {
		return
	}
	s.Coordinator.Request(sig)
}

// Close unsubscribes from every source, stops the coordinator, and
// waits for the source goroutines to exit.
func (s *Sync) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	cancel, stopWatch := s.cancel, s.stopWatch
	s.lock.Unlock()

	if stopWatch != nil {
		stopWatch()
	}
	s.Coordinator.Stop()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
