// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package backend

import (
	"context"
	"flag"
	"testing"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ flag.Value = (*Backend)(nil)

func TestSet(t *testing.T) {
	var b Backend
	if assert.NoError(t, b.Set("memory")) {
		assert.Equal(t, "memory", b.Implementation)
		assert.Equal(t, "", b.Address)
		assert.Equal(t, "memory", b.String())
	}

	if assert.NoError(t, b.Set("postgres://user:pw@db:5432/coffeetip?sslmode=disable")) {
		assert.Equal(t, "postgres", b.Implementation)
		assert.Equal(t, "//user:pw@db:5432/coffeetip?sslmode=disable", b.Address)
		assert.Equal(t, "postgres://user:pw@db:5432/coffeetip?sslmode=disable", b.String())
	}

	assert.Error(t, b.Set(""))
	assert.Error(t, b.Set("redis:localhost"))
	assert.Equal(t, "postgres", b.Implementation, "failed Set leaves the value alone")
}

func TestMemoryProfiles(t *testing.T) {
	b := Backend{Implementation: "memory", CacheSize: 8}
	profiles, err := b.Profiles()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = profiles.Create(ctx, coffee.Profile{Address: "0xabc", Username: "alice"})
	require.NoError(t, err)
	p, err := profiles.ByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", p.Address)
}

func TestUnknownProfiles(t *testing.T) {
	b := Backend{Implementation: "bogus"}
	_, err := b.Profiles()
	assert.Error(t, err)
}
