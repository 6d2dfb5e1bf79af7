// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/memory"
	"github.com/diffeo/go-coffeetip/optimistic"
	"github.com/diffeo/go-coffeetip/queries"
	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/diffeo/go-coffeetip/realtime"
	"github.com/diffeo/go-coffeetip/restserver"
	"github.com/diffeo/go-coffeetip/tipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const (
	contract = "0x000000000000000000000000000000000000c0ff"
	sender   = "0x000000000000000000000000000000000000c0de"
)

type nullRequester struct{}

func (nullRequester) Request(realtime.Signal) {}

func serve(t *testing.T) string {
	clk := clock.NewMock()
	chain := memory.NewChain(contract, clk)
	chain.SetSender(sender)
	cache := querycache.New(querycache.Options{Clock: clk})
	t.Cleanup(cache.Close)
	reader := queries.New(cache, chain)
	profiles := memory.NewProfilesWithClock(clk)
	server := httptest.NewServer(restserver.NewRouter(restserver.API{
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
	}))
	t.Cleanup(server.Close)
	return server.URL
}

// run runs one command line and returns what it printed.
func run(t *testing.T, url string, args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp(&out)
	app.ErrWriter = &out
	err := app.Run(append([]string{"coffeetip", "--url", url}, args...))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	url := serve(t)

	out, err := run(t, url, "info")
	require.NoError(t, err)
	assert.Contains(t, out, contract)
	assert.Contains(t, out, "writes:   true")

	out, err = run(t, url, "available", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice is available\n", out)

	out, err = run(t, url, "register", "--bio", "paints", "--link", "web=https://alice.example", "alice")
	require.NoError(t, err)
	assert.Equal(t, "registered "+sender+" as alice\n", out)

	out, err = run(t, url, "profile", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "bio:      paints")
	assert.Contains(t, out, "link:     web=https://alice.example")

	out, err = run(t, url, "tip", "--name", "Bob", "--amount", "42", "--message", "cheers", sender)
	require.NoError(t, err)
	assert.Regexp(t, `^0x[0-9a-f]{64}\n$`, out)

	out, err = run(t, url, "coffees", "--recent", sender)
	require.NoError(t, err)
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "cheers")

	out, err = run(t, url, "balance", sender)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)

	out, err = run(t, url, "creator", sender)
	require.NoError(t, err)
	assert.Contains(t, out, "registered: true")

	out, err = run(t, url, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 of 1)")

	out, err = run(t, url, "presence", "--visible", "false")
	require.NoError(t, err)
	assert.Equal(t, "visible=false focused=true online=true\n", out)
}

func TestCommandErrors(t *testing.T) {
	exiter := cli.OsExiter
	cli.OsExiter = func(int) {}
	defer func() { cli.OsExiter = exiter }()
	url := serve(t)

	_, err := run(t, url, "balance")
	assert.Error(t, err)

	_, err = run(t, url, "register", "--link", "nourl", "alice")
	assert.Error(t, err)

	_, err = run(t, url, "profile", "nobody")
	assert.EqualError(t, err, "No such profile nobody")
}
