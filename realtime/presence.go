// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package realtime

import "sync"

// PresenceState is what the client last reported about itself.
type PresenceState struct {
	// Visible is true if the page is showing.
	Visible bool `json:"visible"`

	// Focused is true if the page has input focus.
	Focused bool `json:"focused"`

	// Online is true if the client has network connectivity.
	Online bool `json:"online"`
}

// Presence tracks visibility, focus and connectivity.  Every
// transition into the visible, focused or online state is reported
// to watchers as a signal.  A new Presence starts visible, focused
// and online.
type Presence struct {
	lock     sync.Mutex
	state    PresenceState
	watchers map[int]func(Signal)
	nextID   int
}

// NewPresence creates a presence tracker in the fully active state.
func NewPresence() *Presence {
	return &Presence{
		state:    PresenceState{Visible: true, Focused: true, Online: true},
		watchers: make(map[int]func(Signal)),
	}
}

// Watch registers fn to receive presence signals and returns a
// function that unregisters it.
func (p *Presence) Watch(fn func(Signal)) (cancel func()) {
	p.lock.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = fn
	p.lock.Unlock()
	return func() {
		p.lock.Lock()
		delete(p.watchers, id)
		p.lock.Unlock()
	}
}

// Set replaces the whole state, signalling each transition.
func (p *Presence) Set(state PresenceState) {
	p.Update(func(s *PresenceState) { *s = state })
}

// Update changes the state with fn, which runs with the tracker
// locked, and signals each transition it caused.  It returns the new
// state.
func (p *Presence) Update(fn func(*PresenceState)) PresenceState {
	p.lock.Lock()
	old := p.state
	fn(&p.state)
	state := p.state
	var sigs []Signal
	if state.Visible && !old.Visible {
		sigs = append(sigs, SignalVisible)
	}
	if state.Focused && !old.Focused {
		sigs = append(sigs, SignalFocus)
	}
	if state.Online && !old.Online {
		sigs = append(sigs, SignalOnline)
	}
	fns := make([]func(Signal), 0, len(p.watchers))
	for _, watch := range p.watchers {
		fns = append(fns, watch)
	}
	p.lock.Unlock()

	for _, sig := range sigs {
		for _, watch := range fns {
			watch(sig)
		}
	}
	return state
}

// SetVisible records a visibility change.
func (p *Presence) SetVisible(visible bool) {
	p.Update(func(s *PresenceState) { s.Visible = visible })
}

// SetFocused records a focus change.
func (p *Presence) SetFocused(focused bool) {
	p.Update(func(s *PresenceState) { s.Focused = focused })
}

// SetOnline records a connectivity change.
func (p *Presence) SetOnline(online bool) {
	p.Update(func(s *PresenceState) { s.Online = online })
}

// State returns the current state.
func (p *Presence) State() PresenceState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.state
}

// Visible reports whether the page is showing.
func (p *Presence) Visible() bool {
	return p.State().Visible
}

// Active reports whether the page is both visible and focused.
func (p *Presence) Active() bool {
	s := p.State()
	return s.Visible && s.Focused
}
