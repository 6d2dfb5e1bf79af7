// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
)

// Profiles is an in-memory coffee.Profiles.  The whole store is
// behind a single mutex.
type Profiles struct {
	clock      clock.Clock
	lock       sync.Mutex
	byAddress  map[string]coffee.Profile
	byUsername map[string]string
}

// NewProfiles creates an empty profile store.
func NewProfiles() *Profiles {
	return NewProfilesWithClock(clock.New())
}

// NewProfilesWithClock creates an empty profile store with an
// alternate time source for creation times.
func NewProfilesWithClock(clk clock.Clock) *Profiles {
	return &Profiles{
		clock:      clk,
		byAddress:  make(map[string]coffee.Profile),
		byUsername: make(map[string]string),
	}
}

func copyProfile(p coffee.Profile) coffee.Profile {
	if p.Links != nil {
		links := make(map[string]string, len(p.Links))
		for k, v := range p.Links {
			links[k] = v
		}
		p.Links = links
	}
	return p
}

// ByAddress returns the profile for address.
func (p *Profiles) ByAddress(ctx context.Context, address string) (coffee.Profile, error) {
	address = coffee.NormalizeAddress(address)
	p.lock.Lock()
	defer p.lock.Unlock()
	profile, present := p.byAddress[address]
	if !present {
		return coffee.Profile{}, coffee.ErrNoSuchProfile{Key: address}
	}
	return copyProfile(profile), nil
}

// ByUsername returns the profile registered as username.
func (p *Profiles) ByUsername(ctx context.Context, username string) (coffee.Profile, error) {
	username = strings.ToLower(username)
	p.lock.Lock()
	defer p.lock.Unlock()
	address, present := p.byUsername[username]
	if !present {
		return coffee.Profile{}, coffee.ErrNoSuchProfile{Key: username}
	}
	return copyProfile(p.byAddress[address]), nil
}

// Create stores a new profile.
func (p *Profiles) Create(ctx context.Context, profile coffee.Profile) (coffee.Profile, error) {
	if err := coffee.ValidateUsername(profile.Username); err != nil {
		return coffee.Profile{}, err
	}
	profile = copyProfile(profile)
	profile.Address = coffee.NormalizeAddress(profile.Address)
	if profile.Address == "" {
		return coffee.Profile{}, coffee.ErrInvalid{Field: "address", Reason: "is required"}
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if _, present := p.byAddress[profile.Address]; present {
		return coffee.Profile{}, coffee.ErrProfileExists
	}
	if _, present := p.byUsername[profile.Username]; present {
		return coffee.Profile{}, coffee.ErrUsernameTaken
	}
	profile.CreatedAt = p.clock.Now().UTC()
	p.byAddress[profile.Address] = profile
	p.byUsername[profile.Username] = profile.Address
	return copyProfile(profile), nil
}

// UsernameAvailable reports whether no profile uses username.
func (p *Profiles) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	_, present := p.byUsername[strings.ToLower(username)]
	return !present, nil
}

// Recent returns up to limit profiles, newest first.  A limit of
// zero or less returns every profile.
func (p *Profiles) Recent(ctx context.Context, limit int) ([]coffee.Profile, error) {
	p.lock.Lock()
	result := make([]coffee.Profile, 0, len(p.byAddress))
	for _, profile := range p.byAddress {
		result = append(result, copyProfile(profile))
	}
	p.lock.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Address < result[j].Address
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of profiles.
func (p *Profiles) Count(ctx context.Context) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.byAddress), nil
}
