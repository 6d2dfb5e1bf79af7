// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package tipping implements the user-facing write flows: buying a
// coffee for a creator and registering as a creator.  Buying a coffee
// shows the tip immediately as an optimistic record, and settles it
// once the transaction is mined or fails.
package tipping

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/queries"
	"github.com/diffeo/go-coffeetip/realtime"
	"github.com/sirupsen/logrus"
)

// Tip is a request to buy a coffee.
type Tip struct {
	// Creator is the address receiving the tip.
	Creator string `json:"creator"`

	// From is the address of the tipper, as shown in the
	// optimistic record.
	From string `json:"from"`

	Name    string   `json:"name"`
	Message string   `json:"message"`
	Amount  *big.Int `json:"amount"`
}

// Receipt describes a completed tip.
type Receipt struct {
	TxHash string        `json:"tx_hash"`
	Coffee coffee.Coffee `json:"coffee"`
}

// Registration is a request to become a creator.
type Registration struct {
	Address     string            `json:"address"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Bio         string            `json:"bio"`
	AvatarURL   string            `json:"avatar_url"`
	Links       map[string]string `json:"links"`
}

// Service runs the write flows.  All fields except Log are required.
type Service struct {
	Chain    coffee.Writer
	Profiles coffee.Profiles
	Reader   *queries.Reader
	Managers *Managers
	Sync     realtime.Requester
	Log      logrus.FieldLogger
}

func (s *Service) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// BuyCoffee submits a tip and waits for it to be mined.  The tip
// appears in the cached coffee lists as soon as it is submitted; it
// is confirmed in place if the transaction succeeds and removed if it
// fails.  If ctx ends while waiting for the transaction, the record
// stays pending.  A wallet refusal returns an error wrapping
// coffee.ErrUserRejected.
func (s *Service) BuyCoffee(ctx context.Context, tip Tip) (Receipt, error) {
	name := strings.TrimSpace(tip.Name)
	if err := coffee.ValidateTip(name, tip.Message, tip.Amount); err != nil {
		return Receipt{}, err
	}
	if !s.Chain.WritesEnabled() {
		return Receipt{}, coffee.ErrWritesDisabled
	}
	log := s.log().WithFields(logrus.Fields{
		"creator": coffee.NormalizeAddress(tip.Creator),
		"from":    coffee.NormalizeAddress(tip.From),
	})

	pending := s.Managers.For(tip.Creator).Add(tip.From, name, tip.Message, tip.Amount)
	receipt := Receipt{Coffee: pending.Coffee()}

	hash, err := s.Chain.BuyCoffee(ctx, tip.Creator, name, tip.Message, tip.Amount)
	if err != nil {
		pending.Revert()
		if coffee.IsUserRejected(err) {
			log.Info("tip rejected in wallet")
			return receipt, err
		}
		log.WithField("err", err).Warn("tip submission failed")
		s.Sync.Request(realtime.SignalTransaction)
		return receipt, fmt.Errorf("buy coffee: %w", err)
	}
	receipt.TxHash = hash
	log = log.WithField("tx", hash)

	if err := s.Chain.WaitMined(ctx, hash); err != nil {
		if ctx.Err() != nil {
			// The transaction may still be mined; its event or
			// the optimistic timeout settles the record.
			log.WithField("err", err).Info("stopped waiting for tip transaction")
			return receipt, err
		}
		pending.Revert()
		log.WithField("err", err).Warn("tip transaction failed")
		s.Sync.Request(realtime.SignalTransaction)
		return receipt, err
	}
	pending.Confirm()
	receipt.Coffee.Optimistic = false
	s.Sync.Request(realtime.SignalTransaction)
	log.Debug("tip confirmed")
	return receipt, nil
}

// Register checks that the username is free in both the profile
// store and the contract, registers it on chain, and then creates
// the profile.
func (s *Service) Register(ctx context.Context, reg Registration) (coffee.Profile, error) {
	if err := coffee.ValidateUsername(reg.Username); err != nil {
		return coffee.Profile{}, err
	}
	if !s.Chain.WritesEnabled() {
		return coffee.Profile{}, coffee.ErrWritesDisabled
	}
	free, err := s.Profiles.UsernameAvailable(ctx, reg.Username)
	if err != nil {
		return coffee.Profile{}, err
	}
	if free {
		free, err = s.Reader.UsernameAvailable(ctx, reg.Username)
		if err != nil {
			return coffee.Profile{}, err
		}
	}
	if !free {
		return coffee.Profile{}, coffee.ErrUsernameTaken
	}

	hash, err := s.Chain.RegisterCreator(ctx, reg.Username)
	if err != nil {
		return coffee.Profile{}, err
	}
	if err := s.Chain.WaitMined(ctx, hash); err != nil {
		return coffee.Profile{}, err
	}
	contract := s.Reader.Contract()
	s.Reader.Cache.Invalidate(policy.ForContract(contract,
		policy.Matches(policy.FnUsernameAvailable, policy.FnCreatorInfo)))

	profile, err := s.Profiles.Create(ctx, coffee.Profile{
		Address:     reg.Address,
		Username:    reg.Username,
		DisplayName: reg.DisplayName,
		Bio:         reg.Bio,
		AvatarURL:   reg.AvatarURL,
		Links:       reg.Links,
	})
	if err != nil {
		s.log().WithFields(logrus.Fields{
			"username": reg.Username,
			"tx":       hash,
			"err":      err,
		}).Error("registered on chain but could not create profile")
		return coffee.Profile{}, err
	}
	return profile, nil
}
