// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package optimistic_test

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/optimistic"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contract = "0xC0FFEE"
	creator  = "0xBEEF"
)

type fixture struct {
	Clock   *clock.Mock
	Cache   *querycache.Cache
	Manager *optimistic.Manager
}

func setup(t *testing.T, opts optimistic.Options) *fixture {
	f := &fixture{Clock: clock.NewMock()}
	f.Clock.Set(time.Unix(1700000000, 0))
	f.Cache = querycache.New(querycache.Options{Clock: f.Clock})
	t.Cleanup(f.Cache.Close)
	opts.Clock = f.Clock
	f.Manager = optimistic.New(f.Cache, contract, creator, opts)
	return f
}

func (f *fixture) list(t *testing.T, key querycache.Key) []coffee.Coffee {
	v, present := f.Cache.Get(key)
	require.True(t, present, "no value for %v", key)
	return v.([]coffee.Coffee)
}

func chainCoffee(i int) coffee.Coffee {
	return coffee.Coffee{
		From:      fmt.Sprintf("0x%03d", i),
		Name:      fmt.Sprintf("fan %d", i),
		Message:   "thanks",
		Amount:    big.NewInt(int64(100 * i)),
		Timestamp: int64(1600000000 + i),
	}
}

func TestKeys(t *testing.T) {
	f := setup(t, optimistic.Options{})
	assert.Equal(t, "0xc0ffee", f.Manager.RecentKey().Address)
	assert.Equal(t, policy.FnRecentCoffees, f.Manager.RecentKey().Function)
	assert.Equal(t, "0xbeef", f.Manager.RecentKey().Args)
	assert.Equal(t, policy.FnAllCoffees, f.Manager.AllKey().Function)
}

func TestAddThenRevertExample(t *testing.T) {
	f := setup(t, optimistic.Options{})
	f.Cache.Set(f.Manager.RecentKey(), []coffee.Coffee{})

	p := f.Manager.Add("0xAAA", "Bob", "nice", big.NewInt(1000))
	list := f.list(t, f.Manager.RecentKey())
	if assert.Len(t, list, 1) {
		c := list[0]
		assert.Equal(t, "0xaaa", c.From)
		assert.Equal(t, "Bob", c.Name)
		assert.Equal(t, "nice", c.Message)
		assert.Equal(t, 0, c.Amount.Cmp(big.NewInt(1000)))
		assert.True(t, c.Optimistic)
		assert.Equal(t, f.Clock.Now().Unix(), c.Timestamp)
		assert.Equal(t, p.LocalID(), c.LocalID)
	}

	assert.True(t, p.Revert())
	assert.Equal(t, []coffee.Coffee{}, f.list(t, f.Manager.RecentKey()))
	_, present := f.Cache.Get(f.Manager.AllKey())
	assert.False(t, present, "all coffees was absent before the add")
	assert.Equal(t, optimistic.Reverted, p.State())
}

func TestAddThenConfirm(t *testing.T) {
	f := setup(t, optimistic.Options{})
	p := f.Manager.Add("0xaaa", "Bob", "nice", big.NewInt(1000))
	assert.True(t, p.Confirm())

	for _, key := range []querycache.Key{f.Manager.RecentKey(), f.Manager.AllKey()} {
		list := f.list(t, key)
		if assert.Len(t, list, 1) {
			c := list[0]
			assert.False(t, c.Optimistic)
			assert.Equal(t, "0xaaa", c.From)
			assert.Equal(t, "Bob", c.Name)
			assert.Equal(t, "nice", c.Message)
			assert.Equal(t, 0, c.Amount.Cmp(big.NewInt(1000)))
		}
	}
	assert.False(t, p.Confirm())
	assert.False(t, p.Revert(), "revert after confirm is a no-op")
	assert.Len(t, f.list(t, f.Manager.RecentKey()), 1)
}

func TestRevertRestoresExactly(t *testing.T) {
	f := setup(t, optimistic.Options{})
	v := []coffee.Coffee{chainCoffee(1), chainCoffee(2)}
	all := []coffee.Coffee{chainCoffee(1), chainCoffee(2), chainCoffee(3)}
	f.Cache.Set(f.Manager.RecentKey(), coffee.CopyCoffees(v))
	f.Cache.Set(f.Manager.AllKey(), coffee.CopyCoffees(all))

	p := f.Manager.Add("0xaaa", "Bob", "nice", big.NewInt(1))
	assert.Len(t, f.list(t, f.Manager.RecentKey()), 3)
	assert.Len(t, f.list(t, f.Manager.AllKey()), 4)

	assert.True(t, p.Revert())
	assert.Equal(t, v, f.list(t, f.Manager.RecentKey()))
	assert.Equal(t, all, f.list(t, f.Manager.AllKey()))

	assert.False(t, p.Revert(), "second revert is a no-op")
	assert.Equal(t, v, f.list(t, f.Manager.RecentKey()))
}

func TestRecentCap(t *testing.T) {
	f := setup(t, optimistic.Options{})
	var full []coffee.Coffee
	for i := 0; i < policy.MaxRecentCoffees; i++ {
		full = append(full, chainCoffee(i))
	}
	f.Cache.Set(f.Manager.RecentKey(), coffee.CopyCoffees(full))

	p := f.Manager.Add("0xaaa", "Bob", "nice", big.NewInt(1))
	list := f.list(t, f.Manager.RecentKey())
	assert.Len(t, list, policy.MaxRecentCoffees)
	assert.Equal(t, p.LocalID(), list[0].LocalID)
	assert.Equal(t, full[:policy.MaxRecentCoffees-1], list[1:])
	assert.Equal(t, full[len(full)-2], list[len(list)-1])
}

func TestConcurrentSubmissionsIndependent(t *testing.T) {
	f := setup(t, optimistic.Options{})
	base := []coffee.Coffee{chainCoffee(1)}
	f.Cache.Set(f.Manager.RecentKey(), coffee.CopyCoffees(base))

	first := f.Manager.Add("0xaaa", "A", "one", big.NewInt(1))
	second := f.Manager.Add("0xbbb", "B", "two", big.NewInt(2))
	third := f.Manager.Add("0xccc", "C", "three", big.NewInt(3))
	assert.Equal(t, 3, f.Manager.Outstanding())

	// Resolving the middle submission first must not disturb the
	// others.
	assert.True(t, second.Confirm())
	assert.True(t, first.Revert())

	list := f.list(t, f.Manager.RecentKey())
	if assert.Len(t, list, 3) {
		assert.Equal(t, third.LocalID(), list[0].LocalID)
		assert.True(t, list[0].Optimistic)
		assert.Equal(t, second.LocalID(), list[1].LocalID)
		assert.False(t, list[1].Optimistic)
		assert.Equal(t, base[0], list[2])
	}

	assert.True(t, third.Revert())
	list = f.list(t, f.Manager.RecentKey())
	if assert.Len(t, list, 2) {
		assert.Equal(t, second.LocalID(), list[0].LocalID)
		assert.False(t, list[0].Optimistic)
		assert.Equal(t, base[0], list[1])
	}
	assert.Equal(t, 0, f.Manager.Outstanding())
}

func TestRevertLatestKeepsEarlier(t *testing.T) {
	f := setup(t, optimistic.Options{})
	first := f.Manager.Add("0xaaa", "A", "one", big.NewInt(1))
	second := f.Manager.Add("0xbbb", "B", "two", big.NewInt(2))

	assert.True(t, second.Revert())
	list := f.list(t, f.Manager.AllKey())
	if assert.Len(t, list, 1) {
		assert.Equal(t, first.LocalID(), list[0].LocalID)
		assert.True(t, list[0].Optimistic)
	}
	assert.True(t, first.Revert())
	_, present := f.Cache.Get(f.Manager.AllKey())
	assert.False(t, present)
}

func TestConfirmAll(t *testing.T) {
	f := setup(t, optimistic.Options{})
	a := f.Manager.Add("0xaaa", "A", "one", big.NewInt(1))
	b := f.Manager.Add("0xbbb", "B", "two", big.NewInt(2))
	f.Manager.ConfirmAll()

	for _, c := range f.list(t, f.Manager.AllKey()) {
		assert.False(t, c.Optimistic)
	}
	assert.Equal(t, optimistic.Confirmed, a.State())
	assert.Equal(t, optimistic.Confirmed, b.State())
	assert.False(t, a.Revert())
	assert.Len(t, f.list(t, f.Manager.RecentKey()), 2)
}

func TestMatch(t *testing.T) {
	f := setup(t, optimistic.Options{})
	a := f.Manager.Add("0xaaa", "A", "same", big.NewInt(5))
	b := f.Manager.Add("0xaaa", "A", "same", big.NewInt(5))
	f.Manager.Add("0xaaa", "A", "other", big.NewInt(5))

	event := coffee.Coffee{From: "0xAAA", Name: "A", Message: "same", Amount: big.NewInt(5)}
	assert.Same(t, a, f.Manager.Match(event))
	a.Confirm()
	assert.Same(t, b, f.Manager.Match(event))

	event.Amount = big.NewInt(6)
	assert.Nil(t, f.Manager.Match(event))
	event.Amount = nil
	assert.Nil(t, f.Manager.Match(event))
}

func TestTimeoutReverts(t *testing.T) {
	f := setup(t, optimistic.Options{Timeout: time.Minute})
	f.Cache.Set(f.Manager.RecentKey(), []coffee.Coffee{})
	p := f.Manager.Add("0xaaa", "A", "one", big.NewInt(1))
	kept := f.Manager.Add("0xbbb", "B", "two", big.NewInt(2))

	f.Clock.Add(30 * time.Second)
	assert.True(t, kept.Confirm())
	assert.Equal(t, optimistic.Unresolved, p.State())

	f.Clock.Add(31 * time.Second)
	assert.Eventually(t, func() bool {
		return p.State() == optimistic.Reverted
	}, time.Second, time.Millisecond)

	list := f.list(t, f.Manager.RecentKey())
	if assert.Len(t, list, 1) {
		assert.Equal(t, kept.LocalID(), list[0].LocalID)
	}
	assert.Equal(t, optimistic.Confirmed, kept.State())
}

func TestTimeoutDisabled(t *testing.T) {
	f := setup(t, optimistic.Options{Timeout: -1})
	p := f.Manager.Add("0xaaa", "A", "one", big.NewInt(1))
	f.Clock.Add(24 * time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, optimistic.Unresolved, p.State())
}
