// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory_test

import (
	"testing"

	"github.com/diffeo/go-coffeetip/coffee/coffeetest"
	"github.com/diffeo/go-coffeetip/memory"
	"github.com/stretchr/testify/suite"
)

// Suite is the memory profile store test suite.
type Suite struct {
	coffeetest.Suite
}

// SetupTest creates an empty store for each test.
func (s *Suite) SetupTest() {
	s.Suite.SetupTest()
	s.Profiles = memory.NewProfilesWithClock(s.Clock)
}

// TestProfiles runs the generic profile store tests.
func TestProfiles(t *testing.T) {
	suite.Run(t, &Suite{})
}
