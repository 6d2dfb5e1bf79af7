// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"io/ioutil"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/config"
	"github.com/diffeo/go-coffeetip/restclient"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	Clock  *clock.Mock
	Daemon *daemon
	Hook   *logtest.Hook
	Server *httptest.Server
	Client *restclient.Client
}

func setup(t *testing.T) *fixture {
	ctx := context.Background()
	log, hook := logtest.NewNullLogger()
	f := &fixture{Clock: clock.NewMock(), Hook: hook}
	d, err := newDaemon(ctx, config.Default(), options{
		Simulate: true,
		Clock:    f.Clock,
		Log:      log,
	})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	f.Daemon = d
	f.Server = httptest.NewServer(d.Handler())
	t.Cleanup(f.Server.Close)
	f.Client, err = restclient.New(ctx, f.Server.URL)
	require.NoError(t, err)
	return f
}

func TestSimulatedDaemon(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	assert.Equal(t, simulatedContract, f.Client.ContractAddress())
	assert.True(t, f.Client.WritesEnabled())

	warned := false
	for _, entry := range f.Hook.AllEntries() {
		warned = warned || (entry.Level == logrus.WarnLevel && entry.Message == "using a simulated contract")
	}
	assert.True(t, warned)

	profile, err := f.Client.Register(ctx, restdata.Registration{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, f.Daemon.Sender, profile.Address)

	result, err := f.Client.BuyCoffee(ctx, f.Daemon.Sender, restdata.Tip{Name: "Bob", Amount: "3"})
	require.NoError(t, err)
	assert.Equal(t, "3", result.Coffee.Amount)

	resp, err := http.Get(f.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "coffeetip_daemon_profiles 1")
	assert.Contains(t, string(body), "coffeetip_daemon_cache_entries")
}

func TestChainActivityRefreshesCache(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.Client.Register(ctx, restdata.Registration{Username: "alice"})
	require.NoError(t, err)

	coffees, err := f.Client.AllCoffees(ctx, f.Daemon.Sender)
	require.NoError(t, err)
	assert.Empty(t, coffees)

	// A tip made somewhere else only reaches the cache through
	// the sync machinery
	hash, err := f.Daemon.Node.BuyCoffee(ctx, f.Daemon.Sender, "Eve", "from afar", big.NewInt(7))
	require.NoError(t, err)
	require.NoError(t, f.Daemon.Node.WaitMined(ctx, hash))

	assert.Eventually(t, func() bool {
		f.Clock.Add(600 * time.Millisecond)
		coffees, err := f.Client.AllCoffees(ctx, f.Daemon.Sender)
		return err == nil && len(coffees) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBadBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "bogus"
	log, _ := logtest.NewNullLogger()
	_, err := newDaemon(context.Background(), cfg, options{Simulate: true, Log: log})
	assert.Error(t, err)
}
