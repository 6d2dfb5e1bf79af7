// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cache provides lookup caching of creator profiles.  The
// cache wraps some other coffee.Profiles backend.  Lookups by address
// or username return a cached profile if one is available; everything
// else passes through.
//
// Profiles are never modified once created, so a cached profile
// cannot go out of date.  Failed lookups are not cached, since the
// profile may be created later, possibly by another process.
//
// Returned profiles share their Links map with the cache; callers
// must not modify it.
package cache

import (
	"context"
	"strings"

	"github.com/diffeo/go-coffeetip/coffee"
)

// DefaultSize is the number of profiles kept per index.
const DefaultSize = 1024

type cache struct {
	backend    coffee.Profiles
	byAddress  *lru
	byUsername *lru
}

// New creates a new caching profile store, wrapping some other
// backend.  size is the capacity of each index; if it is zero or
// less, DefaultSize is used.
func New(backend coffee.Profiles, size int) coffee.Profiles {
	if size <= 0 {
		size = DefaultSize
	}
	return &cache{
		backend:    backend,
		byAddress:  newLRU(size),
		byUsername: newLRU(size),
	}
}

func (c *cache) remember(profile coffee.Profile) {
	c.byAddress.Put(profile.Address, profile)
	c.byUsername.Put(profile.Username, profile)
}

func (c *cache) ByAddress(ctx context.Context, address string) (coffee.Profile, error) {
	address = coffee.NormalizeAddress(address)
	profile, err := c.byAddress.Get(address, func(address string) (coffee.Profile, error) {
		return c.backend.ByAddress(ctx, address)
	})
	if err == nil {
		c.byUsername.Put(profile.Username, profile)
	}
	return profile, err
}

func (c *cache) ByUsername(ctx context.Context, username string) (coffee.Profile, error) {
	username = strings.ToLower(username)
	profile, err := c.byUsername.Get(username, func(username string) (coffee.Profile, error) {
		return c.backend.ByUsername(ctx, username)
	})
	if err == nil {
		c.byAddress.Put(profile.Address, profile)
	}
	return profile, err
}

func (c *cache) Create(ctx context.Context, profile coffee.Profile) (coffee.Profile, error) {
	created, err := c.backend.Create(ctx, profile)
	if err == nil {
		c.remember(created)
	}
	return created, err
}

func (c *cache) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if _, present := c.byUsername.Peek(strings.ToLower(username)); present {
		return false, nil
	}
	return c.backend.UsernameAvailable(ctx, username)
}

func (c *cache) Recent(ctx context.Context, limit int) ([]coffee.Profile, error) {
	return c.backend.Recent(ctx, limit)
}

func (c *cache) Count(ctx context.Context) (int, error) {
	return c.backend.Count(ctx)
}

// Close closes the wrapped backend, if it can be closed.
func (c *cache) Close() error {
	if closer, ok := c.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
