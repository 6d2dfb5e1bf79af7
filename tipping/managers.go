// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tipping

import (
	"sync"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/optimistic"
	"github.com/diffeo/go-coffeetip/querycache"
)

// Managers holds one optimistic update manager per creator, created
// on first use.  It also confirms optimistic records when their
// coffee is seen on chain, so it can serve as a realtime.Confirmer.
type Managers struct {
	cache    *querycache.Cache
	contract string
	opts     optimistic.Options

	lock     sync.Mutex
	managers map[string]*optimistic.Manager
}

// NewManagers creates an empty set of managers for contract.
func NewManagers(cache *querycache.Cache, contract string, opts optimistic.Options) *Managers {
	return &Managers{
		cache:    cache,
		contract: contract,
		opts:     opts,
		managers: make(map[string]*optimistic.Manager),
	}
}

// For returns the manager for creator.
func (m *Managers) For(creator string) *optimistic.Manager {
	creator = coffee.NormalizeAddress(creator)
	m.lock.Lock()
	defer m.lock.Unlock()
	mgr, present := m.managers[creator]
	if !present {
		mgr = optimistic.New(m.cache, m.contract, creator, m.opts)
		m.managers[creator] = mgr
	}
	return mgr
}

// Confirm resolves the oldest outstanding submission matching ev, if
// any.
func (m *Managers) Confirm(ev coffee.Event) bool {
	m.lock.Lock()
	mgr := m.managers[coffee.NormalizeAddress(ev.Creator)]
	m.lock.Unlock()
	if mgr == nil {
		return false
	}
	p := mgr.Match(ev.Coffee)
	if p == nil {
		return false
	}
	return p.Confirm()
}
