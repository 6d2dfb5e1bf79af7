// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package coffeetest provides generic functional tests for the
// coffee.Profiles interface.  A typical backend test module needs to
// wrap Suite to create its backend:
//
//	package mybackend
//
//	import (
//	        "testing"
//	        "github.com/diffeo/go-coffeetip/coffee/coffeetest"
//	        "github.com/stretchr/testify/suite"
//	)
//
//	// Suite is the per-backend generic test suite.
//	type Suite struct{
//	        coffeetest.Suite
//	}
//
//	// SetupTest creates an empty backend for each test.
//	func (s *Suite) SetupTest() {
//	        s.Suite.SetupTest()
//	        s.Profiles = NewProfilesWithClock(s.Clock)
//	}
//
//	// TestProfiles runs the profile store generic tests.
//	func TestProfiles(t *testing.T) {
//	        suite.Run(t, &Suite{})
//	}
package coffeetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/stretchr/testify/suite"
)

// Suite is the generic profile store test suite.
type Suite struct {
	suite.Suite

	// Clock contains the alternate time source to be used in
	// tests.  It is reset to a fresh mock clock before each test.
	Clock *clock.Mock

	// Profiles contains the store under test.  It must be empty
	// at the start of each test, and is set by importing
	// packages.
	Profiles coffee.Profiles
}

// SetupTest resets the clock.
func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Clock.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

// profile builds a distinct test profile.
func profile(n int) coffee.Profile {
	return coffee.Profile{
		Address:     fmt.Sprintf("0x%040x", n),
		Username:    fmt.Sprintf("creator%d", n),
		DisplayName: fmt.Sprintf("Creator %d", n),
		Bio:         "makes things",
		AvatarURL:   fmt.Sprintf("https://example.com/%d.png", n),
		Links:       map[string]string{"web": fmt.Sprintf("https://example.com/%d", n)},
	}
}

// TestCreateAndFetch creates a profile and reads it back both ways.
func (s *Suite) TestCreateAndFetch() {
	ctx := context.Background()
	in := profile(1)
	in.Address = "0x00000000000000000000000000000000000000AB"

	out, err := s.Profiles.Create(ctx, in)
	if !s.NoError(err) {
		return
	}
	s.Equal("0x00000000000000000000000000000000000000ab", out.Address)
	s.True(out.CreatedAt.Equal(s.Clock.Now()), "created at %v", out.CreatedAt)

	byAddr, err := s.Profiles.ByAddress(ctx, "0x00000000000000000000000000000000000000Ab")
	if s.NoError(err) {
		s.Equal(out.Address, byAddr.Address)
		s.Equal(in.Username, byAddr.Username)
		s.Equal(in.DisplayName, byAddr.DisplayName)
		s.Equal(in.Bio, byAddr.Bio)
		s.Equal(in.AvatarURL, byAddr.AvatarURL)
		s.Equal(in.Links, byAddr.Links)
		s.True(byAddr.CreatedAt.Equal(out.CreatedAt))
	}

	byName, err := s.Profiles.ByUsername(ctx, in.Username)
	if s.NoError(err) {
		s.Equal(out.Address, byName.Address)
	}
}

// TestMissing checks the error for absent profiles.
func (s *Suite) TestMissing() {
	ctx := context.Background()
	_, err := s.Profiles.ByAddress(ctx, "0xdead")
	s.True(coffee.IsNoSuchProfile(err), "%v", err)
	_, err = s.Profiles.ByUsername(ctx, "nobody")
	s.True(coffee.IsNoSuchProfile(err), "%v", err)
}

// TestUniqueness checks that addresses and usernames are unique.
func (s *Suite) TestUniqueness() {
	ctx := context.Background()
	_, err := s.Profiles.Create(ctx, profile(1))
	s.Require().NoError(err)

	dupAddr := profile(2)
	dupAddr.Address = profile(1).Address
	_, err = s.Profiles.Create(ctx, dupAddr)
	s.Equal(coffee.ErrProfileExists, err)

	dupName := profile(3)
	dupName.Username = profile(1).Username
	_, err = s.Profiles.Create(ctx, dupName)
	s.Equal(coffee.ErrUsernameTaken, err)

	n, err := s.Profiles.Count(ctx)
	if s.NoError(err) {
		s.Equal(1, n)
	}
}

// TestInvalidUsername checks that bad usernames are rejected.
func (s *Suite) TestInvalidUsername() {
	ctx := context.Background()
	for _, name := range []string{"", "ab", "1abc", "Has Space", "this_name_is_far_too_long"} {
		p := profile(1)
		p.Username = name
		_, err := s.Profiles.Create(ctx, p)
		if s.Error(err, "%q", name) {
			_, ok := err.(coffee.ErrInvalid)
			s.True(ok, "%q: %v", name, err)
		}
	}
	n, err := s.Profiles.Count(ctx)
	if s.NoError(err) {
		s.Equal(0, n)
	}
}

// TestUsernameAvailable checks availability before and after
// registration.
func (s *Suite) TestUsernameAvailable() {
	ctx := context.Background()
	ok, err := s.Profiles.UsernameAvailable(ctx, "creator1")
	if s.NoError(err) {
		s.True(ok)
	}
	_, err = s.Profiles.Create(ctx, profile(1))
	s.Require().NoError(err)
	ok, err = s.Profiles.UsernameAvailable(ctx, "creator1")
	if s.NoError(err) {
		s.False(ok)
	}
	ok, err = s.Profiles.UsernameAvailable(ctx, "CREATOR1")
	if s.NoError(err) {
		s.False(ok)
	}
}

// TestRecent checks ordering and limits of the recent list.
func (s *Suite) TestRecent() {
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := s.Profiles.Create(ctx, profile(i))
		s.Require().NoError(err)
		s.Clock.Add(time.Minute)
	}

	recent, err := s.Profiles.Recent(ctx, 3)
	if s.NoError(err) && s.Len(recent, 3) {
		s.Equal("creator5", recent[0].Username)
		s.Equal("creator4", recent[1].Username)
		s.Equal("creator3", recent[2].Username)
	}

	recent, err = s.Profiles.Recent(ctx, 0)
	if s.NoError(err) {
		s.Len(recent, 5)
	}

	n, err := s.Profiles.Count(ctx)
	if s.NoError(err) {
		s.Equal(5, n)
	}
}

// TestConcurrentCreate races creations of one username; exactly one
// may win.
func (s *Suite) TestConcurrentCreate() {
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := profile(i + 1)
			p.Username = "contested"
			_, errs[i] = s.Profiles.Create(ctx, p)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			s.Equal(coffee.ErrUsernameTaken, err)
		}
	}
	s.Equal(1, wins)
}
