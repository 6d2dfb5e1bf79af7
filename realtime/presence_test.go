// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceTransitions(t *testing.T) {
	p := NewPresence()
	assert.True(t, p.Visible())
	assert.True(t, p.Active())

	var got []Signal
	cancel := p.Watch(func(sig Signal) { got = append(got, sig) })

	p.SetVisible(true)
	assert.Empty(t, got, "no transition, no signal")

	p.SetVisible(false)
	assert.False(t, p.Visible())
	assert.False(t, p.Active())
	p.SetVisible(true)
	p.SetFocused(false)
	assert.True(t, p.Visible())
	assert.False(t, p.Active())
	p.SetFocused(true)
	p.SetOnline(false)
	p.SetOnline(true)
	assert.Equal(t, []Signal{SignalVisible, SignalFocus, SignalOnline}, got)

	cancel()
	p.SetOnline(false)
	p.SetOnline(true)
	assert.Len(t, got, 3)
	assert.Equal(t, PresenceState{Visible: true, Focused: true, Online: true}, p.State())
}

func TestPresenceConcurrentUpdates(t *testing.T) {
	p := NewPresence()
	var lock sync.Mutex
	got := map[Signal]int{}
	p.Watch(func(sig Signal) {
		lock.Lock()
		got[sig]++
		lock.Unlock()
	})

	const rounds = 200
	for i := 0; i < rounds; i++ {
		p.Set(PresenceState{Online: true})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.SetVisible(true)
		}()
		go func() {
			defer wg.Done()
			p.Update(func(s *PresenceState) { s.Focused = true })
		}()
		wg.Wait()
		require.Equal(t, PresenceState{Visible: true, Focused: true, Online: true}, p.State())
	}

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, rounds, got[SignalVisible])
	assert.Equal(t, rounds, got[SignalFocus])
	assert.Zero(t, got[SignalOnline])
}

func TestPresenceUpdateReturnsState(t *testing.T) {
	p := NewPresence()
	state := p.Update(func(s *PresenceState) { s.Online = false })
	assert.Equal(t, PresenceState{Visible: true, Focused: true}, state)
	assert.Equal(t, state, p.State())
}
