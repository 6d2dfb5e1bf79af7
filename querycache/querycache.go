// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package querycache provides a key-value cache for remote read
// results, with staleness, garbage collection and retry policies.
//
// Every entry has two deadlines.  The staleness deadline decides
// whether Fetch may answer from the cache or must go back to the
// remote gateway; Invalidate moves it into the past.  The garbage
// collection deadline decides when an unused entry is dropped
// altogether; it is pushed back whenever the entry is read or
// written.  Stale entries remain readable through Get until they are
// collected, which is what optimistic updates build on.
//
// Concurrent Fetch calls for one key share a single remote request,
// which runs detached from any one caller's context: a caller that
// gives up stops waiting without failing the others.  Invalidating a
// key while its request is in flight makes later Fetch calls start a
// new request, and the older result is stored already stale.
// Failed requests are retried with exponential backoff a bounded
// number of times, except for errors the Retryable policy rejects;
// by default a user-rejected transaction is never retried.
package querycache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Key identifies one remote read: a contract address, an ABI
// identity, a function name and its canonically encoded arguments.
type Key struct {
	Address  string
	ABI      string
	Function string
	Args     string
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Address)
	b.WriteByte('/')
	b.WriteString(k.ABI)
	b.WriteByte('/')
	b.WriteString(k.Function)
	if k.Args != "" {
		b.WriteByte('(')
		b.WriteString(k.Args)
		b.WriteByte(')')
	}
	return b.String()
}

// Predicate selects cache keys, typically for invalidation.
type Predicate func(Key) bool

// Durations holds the lifetime policy of an entry.
type Durations struct {
	// Stale is how long after an update the entry may be served
	// without refetching.
	Stale time.Duration

	// GC is how long an unused entry is retained.
	GC time.Duration
}

// EventKind says what happened to the keys in an Event.
type EventKind int

const (
	// Invalidated entries were marked stale.
	Invalidated EventKind = iota

	// Updated entries received a new value.
	Updated

	// Removed entries were deleted.
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Invalidated:
		return "invalidated"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers when entries change.
type Event struct {
	Kind EventKind
	Keys []Key
}

// Options configures a Cache.  Zero fields take the defaults noted.
type Options struct {
	// Clock is the time source for staleness.  Defaults to the
	// wall clock.
	Clock clock.Clock

	// Defaults are the durations for entries written with Set
	// before any Fetch.  Defaults to 30s stale, 5m GC.
	Defaults Durations

	// MaxRetries is the number of retries after the first failed
	// attempt.  Defaults to 3; negative disables retries.
	MaxRetries int

	// RetryInitial is the first retry delay.  Defaults to 1s.
	RetryInitial time.Duration

	// RetryMax caps the retry delay.  Defaults to 30s.
	RetryMax time.Duration

	// Retryable decides whether an error may be retried.  Defaults
	// to DefaultRetryable.
	Retryable func(error) bool

	// Log receives retry and fetch diagnostics.  Defaults to the
	// standard logrus logger.
	Log logrus.FieldLogger
}

// DefaultRetryable retries everything except user rejections and
// context cancellation.
func DefaultRetryable(err error) bool {
	if coffee.IsUserRejected(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Defaults.Stale == 0 {
		o.Defaults.Stale = 30 * time.Second
	}
	if o.Defaults.GC == 0 {
		o.Defaults.GC = 5 * time.Minute
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryInitial == 0 {
		o.RetryInitial = time.Second
	}
	if o.RetryMax == 0 {
		o.RetryMax = 30 * time.Second
	}
	if o.Retryable == nil {
		o.Retryable = DefaultRetryable
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
}

// entry is the stored form of a cached value.  Entries are replaced,
// never modified in place.
type entry struct {
	value       interface{}
	updatedAt   time.Time
	staleAt     time.Time
	durations   Durations
	invalidated bool
}

// Cache is a query cache.  It is safe for concurrent use.  Construct
// one per process and share it.
type Cache struct {
	opts  Options
	store *ttlcache.Cache[Key, *entry]
	group singleflight.Group

	// lock serializes read-modify-write sequences on the store
	// and guards listeners.
	lock         sync.Mutex
	listeners    map[int]func(Event)
	nextListener int

	// flights tracks keys with a remote request in progress.
	flights map[Key]*flight
}

// flight counts the invalidations of a key seen while requests for
// it are outstanding.
type flight struct {
	epoch   uint64
	pending int
}

// New creates a new cache and starts its garbage collector.  Call
// Close to stop it.
func New(opts Options) *Cache {
	opts.setDefaults()
	c := &Cache{
		opts: opts,
		store: ttlcache.New[Key, *entry](
			ttlcache.WithTTL[Key, *entry](opts.Defaults.GC),
		),
		listeners: make(map[int]func(Event)),
		flights:   make(map[Key]*flight),
	}
	go c.store.Start()
	return c
}

// Close stops the garbage collector.  The cache remains usable.
func (c *Cache) Close() {
	c.store.Stop()
}

// Fetch returns the value for key.  A fresh entry is returned
// directly; otherwise fetch is called, with retries, and its result
// stored with durations d.  Concurrent callers for the same key share
// one call of fetch.  It receives a context carrying the first
// caller's values but not its cancellation; each caller only stops
// waiting when its own ctx is done.
func (c *Cache) Fetch(ctx context.Context, key Key, d Durations, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e := c.lookup(key); e != nil && c.fresh(e) {
		requests.WithLabelValues("hit").Inc()
		return e.value, nil
	}
	requests.WithLabelValues("miss").Inc()

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		epoch := c.begin(key)
		value, err := c.retry(shared, key, fetch)
		if err != nil {
			c.end(key)
			return nil, err
		}
		c.put(key, value, d, epoch)
		return value, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			requests.WithLabelValues("error").Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// retry calls fetch until it succeeds, returns a non-retryable
// error, or the retry budget runs out.
func (c *Cache) retry(ctx context.Context, key Key, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.RetryInitial
	policy.MaxInterval = c.opts.RetryMax
	policy.MaxElapsedTime = 0

	var value interface{}
	operation := func() error {
		v, err := fetch(ctx)
		if err != nil {
			if !c.opts.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		value = v
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.opts.Log.WithFields(logrus.Fields{
			"key":   key.String(),
			"err":   err,
			"retry": next,
		}).Debug("query failed, retrying")
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.opts.MaxRetries)), ctx)
	err := backoff.RetryNotify(operation, bo, notify)
	return value, err
}

// lookup returns the live entry for key, or nil.
func (c *Cache) lookup(key Key) *entry {
	item := c.store.Get(key)
	if item == nil {
		return nil
	}
	return item.Value()
}

func (c *Cache) fresh(e *entry) bool {
	return !e.invalidated && c.opts.Clock.Now().Before(e.staleAt)
}

// begin records the start of a remote request for key and returns
// the key's invalidation epoch at that point.
func (c *Cache) begin(key Key) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.flights[key]
	if f == nil {
		f = &flight{}
		c.flights[key] = f
	}
	f.pending++
	return f.epoch
}

// endLocked records the end of a remote request for key and reports
// whether key was invalidated since the request's epoch.
func (c *Cache) endLocked(key Key, epoch uint64) bool {
	f := c.flights[key]
	invalidated := f.epoch != epoch
	f.pending--
	if f.pending == 0 {
		delete(c.flights, key)
	}
	return invalidated
}

func (c *Cache) end(key Key) {
	c.lock.Lock()
	c.endLocked(key, c.flights[key].epoch)
	c.lock.Unlock()
}

// put stores a value fetched by a request that began at epoch.  If
// key was invalidated in the meantime the value is stored stale, and
// is dropped entirely when a newer request already stored a fresh
// value.
func (c *Cache) put(key Key, value interface{}, d Durations, epoch uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	now := c.opts.Clock.Now()
	e := &entry{
		value:     value,
		updatedAt: now,
		staleAt:   now.Add(d.Stale),
		durations: d,
	}
	if c.endLocked(key, epoch) {
		if old := c.lookup(key); old != nil && c.fresh(old) {
			return
		}
		e.invalidated = true
		e.staleAt = time.Time{}
	}
	c.store.Set(key, e, d.GC)
}

// Get returns the cached value for key, fresh or stale, without
// fetching.
func (c *Cache) Get(key Key) (interface{}, bool) {
	e := c.lookup(key)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Set writes a value directly, as an optimistic update does.  The
// entry keeps the durations of its last fetch, or the cache defaults
// if it was never fetched, and is fresh from now.
func (c *Cache) Set(key Key, value interface{}) {
	c.lock.Lock()
	c.setLocked(key, value)
	c.lock.Unlock()
	c.notify(Event{Kind: Updated, Keys: []Key{key}})
}

func (c *Cache) setLocked(key Key, value interface{}) {
	d := c.opts.Defaults
	if e := c.lookup(key); e != nil {
		d = e.durations
	}
	now := c.opts.Clock.Now()
	c.store.Set(key, &entry{
		value:     value,
		updatedAt: now,
		staleAt:   now.Add(d.Stale),
		durations: d,
	}, d.GC)
}

// Update atomically replaces the value for key with the result of
// fn, which receives the current value and whether it was present.
// If fn returns false as its second result, nothing is written.
func (c *Cache) Update(key Key, fn func(old interface{}, present bool) (interface{}, bool)) bool {
	c.lock.Lock()
	var old interface{}
	e := c.lookup(key)
	if e != nil {
		old = e.value
	}
	value, write := fn(old, e != nil)
	if write {
		c.setLocked(key, value)
	}
	c.lock.Unlock()
	if write {
		c.notify(Event{Kind: Updated, Keys: []Key{key}})
	}
	return write
}

// Remove deletes the entry for key, if any.
func (c *Cache) Remove(key Key) {
	c.lock.Lock()
	present := c.store.Get(key) != nil
	c.store.Delete(key)
	c.lock.Unlock()
	if present {
		c.notify(Event{Kind: Removed, Keys: []Key{key}})
	}
}

// Invalidate marks every entry matching pred as stale, so that the
// next Fetch goes back to the remote gateway, and returns the number
// of entries marked.  Invalidating an already-stale entry has no
// further effect.
func (c *Cache) Invalidate(pred Predicate) int {
	c.lock.Lock()
	keys := c.matching(pred)
	for _, key := range keys {
		e := c.lookup(key)
		if e == nil {
			continue
		}
		marked := *e
		marked.invalidated = true
		marked.staleAt = time.Time{}
		c.store.Set(key, &marked, e.durations.GC)
	}
	for key, f := range c.flights {
		if pred(key) {
			f.epoch++
			c.group.Forget(key.String())
		}
	}
	c.lock.Unlock()

	invalidations.Add(float64(len(keys)))
	if len(keys) > 0 {
		c.notify(Event{Kind: Invalidated, Keys: keys})
	}
	return len(keys)
}

// matching returns the live keys selected by pred.
func (c *Cache) matching(pred Predicate) []Key {
	var keys []Key
	c.store.Range(func(item *ttlcache.Item[Key, *entry]) bool {
		if !item.IsExpired() && pred(item.Key()) {
			keys = append(keys, item.Key())
		}
		return true
	})
	return keys
}

// IsStale reports whether a Fetch of key would go to the remote
// gateway.  Absent keys are stale.
func (c *Cache) IsStale(key Key) bool {
	e := c.lookup(key)
	return e == nil || !c.fresh(e)
}

// UpdatedAt returns the time key was last written.
func (c *Cache) UpdatedAt(key Key) (time.Time, bool) {
	e := c.lookup(key)
	if e == nil {
		return time.Time{}, false
	}
	return e.updatedAt, true
}

// Keys returns the keys of every live entry.
func (c *Cache) Keys() []Key {
	return c.matching(func(Key) bool { return true })
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return len(c.Keys())
}

// Subscribe registers fn to receive change events and returns a
// function that unregisters it.  fn is called synchronously from the
// goroutine making the change, and must not call back into the cache
// with a lock held.
func (c *Cache) Subscribe(fn func(Event)) (cancel func()) {
	c.lock.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.lock.Unlock()
	return func() {
		c.lock.Lock()
		delete(c.listeners, id)
		c.lock.Unlock()
	}
}

func (c *Cache) notify(ev Event) {
	c.lock.Lock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lock.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
