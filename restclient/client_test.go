// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient_test

import (
	"context"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/memory"
	"github.com/diffeo/go-coffeetip/optimistic"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/queries"
	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/diffeo/go-coffeetip/realtime"
	"github.com/diffeo/go-coffeetip/restclient"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/diffeo/go-coffeetip/restserver"
	"github.com/diffeo/go-coffeetip/tipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contract = "0x000000000000000000000000000000000000c0ff"
	sender   = "0x000000000000000000000000000000000000c0de"
)

var _ coffee.Chain = (*restclient.Client)(nil)

type nullRequester struct{}

func (nullRequester) Request(realtime.Signal) {}

// setup builds a stack where the REST client talks to the REST
// server, which points at in-memory backends.
func setup(t *testing.T) (*restclient.Client, *querycache.Cache) {
	clk := clock.NewMock()
	chain := memory.NewChain(contract, clk)
	chain.SetSender(sender)
	cache := querycache.New(querycache.Options{Clock: clk})
	t.Cleanup(cache.Close)
	reader := queries.New(cache, chain)
	profiles := memory.NewProfilesWithClock(clk)
	router := restserver.NewRouter(restserver.API{
		Reader:   reader,
		Profiles: profiles,
		Sender:   sender,
		Tipping: &tipping.Service{
			Chain:    chain,
			Profiles: profiles,
			Reader:   reader,
			Managers: tipping.NewManagers(cache, contract, optimistic.Options{Clock: clk}),
			Sync:     nullRequester{},
		},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	client, err := restclient.New(context.Background(), server.URL)
	require.NoError(t, err)
	return client, cache
}

func TestEmptyURL(t *testing.T) {
	_, err := restclient.New(context.Background(), "")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, _ := setup(t)
	assert.Equal(t, contract, client.ContractAddress())
	assert.True(t, client.WritesEnabled())

	free, err := client.UsernameAvailable(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, free)

	profile, err := client.Register(ctx, restdata.Registration{Username: "alice", Bio: "makes things"})
	require.NoError(t, err)
	assert.Equal(t, sender, profile.Address)
	assert.Equal(t, "alice", profile.Username)

	_, err = client.Register(ctx, restdata.Registration{Username: "alice"})
	assert.Equal(t, coffee.ErrUsernameTaken, err)

	free, err = client.UsernameAvailable(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, free)

	result, err := client.BuyCoffee(ctx, sender, restdata.Tip{Name: "Bob", Message: "hi", Amount: "250"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.TxHash)

	coffees, err := client.AllCoffees(ctx, sender)
	require.NoError(t, err)
	if assert.Len(t, coffees, 1) {
		assert.Equal(t, "Bob", coffees[0].Name)
		assert.Equal(t, 0, big.NewInt(250).Cmp(coffees[0].Amount))
	}
	coffees, err = client.RecentCoffees(ctx, sender)
	require.NoError(t, err)
	assert.Len(t, coffees, 1)

	balance, err := client.Balance(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, "250", balance.String())

	creator, err := client.CreatorInfo(ctx, sender)
	require.NoError(t, err)
	assert.True(t, creator.Registered)
	assert.Equal(t, int64(1), creator.TotalCoffees)
	assert.Equal(t, "250", creator.TotalAmount.String())

	byName, err := client.ByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "makes things", byName.Bio)
	byAddress, err := client.ByAddress(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, byName, byAddress)

	recent, err := client.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
	count, err := client.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestErrorsRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, _ := setup(t)

	_, err := client.ByUsername(ctx, "nobody")
	assert.Equal(t, coffee.ErrNoSuchProfile{Key: "nobody"}, err)

	_, err = client.BuyCoffee(ctx, sender, restdata.Tip{Name: "Bob", Amount: "0"})
	assert.Equal(t, coffee.ErrInvalid{Field: "amount", Reason: "must be positive"}, err)

	_, err = client.Balance(ctx, "not-an-address")
	assert.IsType(t, coffee.ErrInvalid{}, err)
}

func TestPresence(t *testing.T) {
	ctx := context.Background()
	client, _ := setup(t)

	offline := false
	state, err := client.SetPresence(ctx, restdata.Presence{Online: &offline})
	require.NoError(t, err)
	if assert.NotNil(t, state.Online) && assert.NotNil(t, state.Visible) {
		assert.False(t, *state.Online)
		assert.True(t, *state.Visible)
	}

	state, err = client.Presence(ctx)
	require.NoError(t, err)
	if assert.NotNil(t, state.Online) {
		assert.False(t, *state.Online)
	}
}

func TestEvents(t *testing.T) {
	client, cache := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	var lock sync.Mutex
	var events []restdata.Event
	finished := make(chan error, 1)
	go func() {
		finished <- client.Events(ctx, func(ev restdata.Event) {
			lock.Lock()
			events = append(events, ev)
			lock.Unlock()
		})
	}()

	key := policy.CreatorInfoKey(contract, sender)
	assert.Eventually(t, func() bool {
		cache.Set(key, coffee.Creator{Address: sender})
		lock.Lock()
		defer lock.Unlock()
		return len(events) > 0
	}, 5*time.Second, 10*time.Millisecond)

	lock.Lock()
	assert.Equal(t, "updated", events[0].Kind)
	assert.Equal(t, []string{key.String()}, events[0].Keys)
	lock.Unlock()

	cancel()
	select {
	case err := <-finished:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not stop")
	}
}
