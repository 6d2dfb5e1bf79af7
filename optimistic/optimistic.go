// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package optimistic inserts provisional coffee records into the
// query cache before the transaction that creates them is confirmed,
// and removes them again if it fails.
//
// Each call to Manager.Add returns a Pending, which owns the snapshot
// of the cached lists taken just before its record was inserted.
// Callers resolve a Pending exactly once, with Confirm or Revert;
// further calls are no-ops.  Concurrent submissions are independent:
// reverting one restores its snapshot and then re-applies every later
// submission that has not itself been reverted, so no other record is
// lost.  A Pending that is never resolved is reverted after
// Options.Timeout.
package optimistic

import (
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/querycache"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout is how long a submission may stay unresolved before
// it is reverted automatically.
const DefaultTimeout = 5 * time.Minute

// Options configures a Manager.
type Options struct {
	// Clock provides record timestamps and the automatic revert
	// timer.  Defaults to the wall clock.
	Clock clock.Clock

	// Timeout is how long a Pending may stay unresolved.  Zero
	// means DefaultTimeout; negative disables the timeout.
	Timeout time.Duration

	// MaxRecent caps the recent coffees list.  Defaults to
	// policy.MaxRecentCoffees.
	MaxRecent int

	// Log defaults to the standard logrus logger.
	Log logrus.FieldLogger
}

// State is the resolution state of a Pending.
type State int

const (
	// Unresolved submissions are still shown as optimistic.
	Unresolved State = iota

	// Confirmed submissions have had their flag cleared.
	Confirmed

	// Reverted submissions have been removed from the cache.
	Reverted
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Confirmed:
		return "confirmed"
	case Reverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// snapshot is the prior value of one cached list.
type snapshot struct {
	value   []coffee.Coffee
	present bool
}

func (s snapshot) clone() snapshot {
	return snapshot{value: coffee.CopyCoffees(s.value), present: s.present}
}

// Manager applies optimistic updates to the coffee lists of one
// creator.  It is safe for concurrent use.
type Manager struct {
	cache  *querycache.Cache
	recent querycache.Key
	all    querycache.Key
	opts   Options

	lock sync.Mutex
	// order holds submissions in Add order, from the oldest one
	// that is still unresolved.
	order []*Pending
}

// New creates a manager for the coffee lists of creator on contract.
func New(cache *querycache.Cache, contract, creator string, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRecent <= 0 {
		opts.MaxRecent = policy.MaxRecentCoffees
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Manager{
		cache:  cache,
		recent: policy.RecentCoffeesKey(contract, creator),
		all:    policy.AllCoffeesKey(contract, creator),
		opts:   opts,
	}
}

// RecentKey returns the cache key of the recent coffees list.
func (m *Manager) RecentKey() querycache.Key { return m.recent }

// AllKey returns the cache key of the full coffee list.
func (m *Manager) AllKey() querycache.Key { return m.all }

// Pending is one unconfirmed submission.
type Pending struct {
	m      *Manager
	record coffee.Coffee
	state  State
	timer  *clock.Timer
	recent snapshot
	all    snapshot
}

// Coffee returns the optimistic record as inserted.
func (p *Pending) Coffee() coffee.Coffee {
	c := p.record
	c.Amount = new(big.Int).Set(p.record.Amount)
	return c
}

// LocalID returns the identifier of the optimistic record.
func (p *Pending) LocalID() string {
	return p.record.LocalID
}

// State returns the resolution state.
func (p *Pending) State() State {
	p.m.lock.Lock()
	defer p.m.lock.Unlock()
	return p.state
}

// Confirm clears the optimistic flag on this submission's record in
// the cache, without refetching.  It returns false if the submission
// was already resolved.
func (p *Pending) Confirm() bool {
	return p.m.confirm(p)
}

// Revert removes this submission's record from the cache, restoring
// the lists as they were before it was added.  It returns false if
// the submission was already resolved.
func (p *Pending) Revert() bool {
	return p.m.revert(p)
}

// Add inserts a provisional record at the head of both coffee lists.
// The amount is not validated.
func (m *Manager) Add(from, name, message string, amount *big.Int) *Pending {
	if amount == nil {
		amount = new(big.Int)
	}
	p := &Pending{
		m: m,
		record: coffee.Coffee{
			From:       coffee.NormalizeAddress(from),
			Name:       name,
			Message:    message,
			Amount:     new(big.Int).Set(amount),
			Timestamp:  m.opts.Clock.Now().Unix(),
			Optimistic: true,
			LocalID:    uuid.NewV4().String(),
		},
	}

	m.lock.Lock()
	p.recent = m.prepend(m.recent, p.record, m.opts.MaxRecent)
	p.all = m.prepend(m.all, p.record, 0)
	m.order = append(m.order, p)
	if m.opts.Timeout > 0 {
		p.timer = m.opts.Clock.AfterFunc(m.opts.Timeout, func() { m.expire(p) })
	}
	m.lock.Unlock()

	outcomes.WithLabelValues("added").Inc()
	m.opts.Log.WithFields(logrus.Fields{
		"key":      m.recent.String(),
		"local_id": p.record.LocalID,
	}).Debug("added optimistic coffee")
	return p
}

// prepend atomically adds c to the head of the list at key, capped
// at limit if positive, and returns the prior value.
func (m *Manager) prepend(key querycache.Key, c coffee.Coffee, limit int) snapshot {
	var prior snapshot
	m.cache.Update(key, func(old interface{}, present bool) (interface{}, bool) {
		list, _ := old.([]coffee.Coffee)
		prior = snapshot{value: coffee.CopyCoffees(list), present: present}
		return withHead(list, c, limit), true
	})
	return prior
}

// withHead returns a new list with c followed by list, truncated to
// limit entries if limit is positive.
func withHead(list []coffee.Coffee, c coffee.Coffee, limit int) []coffee.Coffee {
	out := make([]coffee.Coffee, 0, len(list)+1)
	out = append(out, c)
	out = append(out, coffee.CopyCoffees(list)...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Manager) confirm(p *Pending) bool {
	m.lock.Lock()
	if p.state != Unresolved {
		m.lock.Unlock()
		return false
	}
	p.state = Confirmed
	p.stopTimer()
	p.recent, p.all = snapshot{}, snapshot{}
	id := p.record.LocalID
	mine := func(c *coffee.Coffee) bool { return c.LocalID == id }
	m.clearFlags(m.recent, mine)
	m.clearFlags(m.all, mine)
	for _, q := range m.after(p) {
		clearInList(q.recent.value, mine)
		clearInList(q.all.value, mine)
	}
	m.prune()
	m.lock.Unlock()

	outcomes.WithLabelValues("confirmed").Inc()
	return true
}

// ConfirmAll clears the optimistic flag on every cached coffee
// record and resolves every outstanding submission as confirmed.
func (m *Manager) ConfirmAll() {
	m.lock.Lock()
	n := 0
	for _, p := range m.order {
		if p.state == Unresolved {
			p.state = Confirmed
			p.stopTimer()
			n++
		}
		p.recent, p.all = snapshot{}, snapshot{}
	}
	m.order = nil
	everything := func(*coffee.Coffee) bool { return true }
	m.clearFlags(m.recent, everything)
	m.clearFlags(m.all, everything)
	m.lock.Unlock()

	outcomes.WithLabelValues("confirmed").Add(float64(n))
}

func (m *Manager) revert(p *Pending) bool {
	m.lock.Lock()
	ok := m.revertLocked(p)
	m.lock.Unlock()
	if ok {
		outcomes.WithLabelValues("reverted").Inc()
	}
	return ok
}

func (m *Manager) revertLocked(p *Pending) bool {
	if p.state != Unresolved {
		return false
	}
	p.state = Reverted
	p.stopTimer()

	recent, all := p.recent.clone(), p.all.clone()
	id := p.record.LocalID
	for _, q := range m.after(p) {
		q.recent.value = without(q.recent.value, id)
		q.all.value = without(q.all.value, id)
		if q.state == Reverted {
			continue
		}
		c := q.record
		c.Optimistic = q.state == Unresolved
		recent = snapshot{value: withHead(recent.value, c, m.opts.MaxRecent), present: true}
		all = snapshot{value: withHead(all.value, c, 0), present: true}
	}
	m.restore(m.recent, recent)
	m.restore(m.all, all)
	p.recent, p.all = snapshot{}, snapshot{}

	for i, q := range m.order {
		if q == p {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	m.prune()
	return true
}

func (m *Manager) expire(p *Pending) {
	m.lock.Lock()
	ok := m.revertLocked(p)
	m.lock.Unlock()
	if !ok {
		return
	}
	outcomes.WithLabelValues("expired").Inc()
	m.opts.Log.WithFields(logrus.Fields{
		"key":      m.recent.String(),
		"local_id": p.record.LocalID,
		"timeout":  m.opts.Timeout,
	}).Warn("optimistic coffee never resolved, reverting")
}

// Match returns the oldest unresolved submission whose record has the
// same sender, message and amount as c, or nil.
func (m *Manager) Match(c coffee.Coffee) *Pending {
	from := coffee.NormalizeAddress(c.From)
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, p := range m.order {
		if p.state != Unresolved {
			continue
		}
		r := p.record
		if r.From != from || r.Message != c.Message {
			continue
		}
		if c.Amount == nil || r.Amount.Cmp(c.Amount) != 0 {
			continue
		}
		return p
	}
	return nil
}

// Outstanding returns the number of unresolved submissions.
func (m *Manager) Outstanding() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	n := 0
	for _, p := range m.order {
		if p.state == Unresolved {
			n++
		}
	}
	return n
}

// after returns the submissions added after p.
func (m *Manager) after(p *Pending) []*Pending {
	for i, q := range m.order {
		if q == p {
			return m.order[i+1:]
		}
	}
	return nil
}

// prune drops resolved submissions from the head of the order; they
// no longer need re-applying by anyone.
func (m *Manager) prune() {
	i := 0
	for i < len(m.order) && m.order[i].state != Unresolved {
		i++
	}
	m.order = m.order[i:]
}

func (m *Manager) restore(key querycache.Key, s snapshot) {
	if !s.present {
		m.cache.Remove(key)
		return
	}
	m.cache.Set(key, s.value)
}

func (m *Manager) clearFlags(key querycache.Key, match func(*coffee.Coffee) bool) {
	m.cache.Update(key, func(old interface{}, present bool) (interface{}, bool) {
		list, ok := old.([]coffee.Coffee)
		if !present || !ok {
			return nil, false
		}
		list = coffee.CopyCoffees(list)
		if !clearInList(list, match) {
			return nil, false
		}
		return list, true
	})
}

// clearInList clears the optimistic flag on matching records in
// place and reports whether any changed.
func clearInList(list []coffee.Coffee, match func(*coffee.Coffee) bool) bool {
	changed := false
	for i := range list {
		if list[i].Optimistic && match(&list[i]) {
			list[i].Optimistic = false
			changed = true
		}
	}
	return changed
}

// without returns list minus the record with the given local ID.
func without(list []coffee.Coffee, id string) []coffee.Coffee {
	for i := range list {
		if list[i].LocalID == id {
			out := make([]coffee.Coffee, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}

func (p *Pending) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
	}
}
