// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/backend"
	"github.com/diffeo/go-coffeetip/background"
	"github.com/diffeo/go-coffeetip/chain"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/config"
	"github.com/diffeo/go-coffeetip/memory"
	"github.com/diffeo/go-coffeetip/optimistic"
	"github.com/diffeo/go-coffeetip/policy"
	"github.com/diffeo/go-coffeetip/queries"
	"github.com/diffeo/go-coffeetip/querycache"
	"github.com/diffeo/go-coffeetip/realtime"
	"github.com/diffeo/go-coffeetip/tipping"
	"github.com/sirupsen/logrus"
)

// simulatedContract is the contract address used with --simulate
// when none is configured.
const simulatedContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

// node is everything the daemon needs from the contract.
type node interface {
	coffee.Chain
	coffee.Writer
	realtime.EventSource
	realtime.BlockSource
}

type options struct {
	// Simulate replaces the node connection with memory.Chain.
	Simulate bool

	// LogRequests logs every HTTP request.
	LogRequests bool

	// Clock drives every timer.  Defaults to the wall clock.
	Clock clock.Clock

	Log *logrus.Logger
}

// daemon is the fully wired service.
type daemon struct {
	Config      config.Config
	Options     options
	Node        node
	Sender      string
	Profiles    coffee.Profiles
	Cache       *querycache.Cache
	Reader      *queries.Reader
	Managers    *tipping.Managers
	Presence    *realtime.Presence
	Coordinator *realtime.Coordinator
	Sync        *realtime.Sync
	Scheduler   *background.Scheduler
	Tipping     *tipping.Service

	closeNode func()
}

// newDaemon connects to the node and the profile store and starts
// the sync machinery.  Call Close when done.
func newDaemon(ctx context.Context, cfg config.Config, opts options) (*daemon, error) {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	d := &daemon{Config: cfg, Options: opts, closeNode: func() {}}
	log := opts.Log

	if opts.Simulate {
		contract := cfg.ContractAddress
		if contract == "" {
			contract = simulatedContract
		}
		sim := memory.NewChain(contract, opts.Clock)
		d.Node = sim
		d.Sender = sim.Sender()
		log.WithField("contract", contract).Warn("using a simulated contract")
	} else {
		chainCfg := cfg.ChainConfig()
		chainCfg.Log = log.WithField("component", "chain")
		gateway, err := chain.Dial(ctx, chainCfg)
		if err != nil {
			return nil, err
		}
		d.Node = gateway
		d.Sender = gateway.Sender()
		d.closeNode = gateway.Close
	}

	store := backend.Backend{CacheSize: cfg.CacheSize}
	if err := store.Set(cfg.Backend); err != nil {
		d.closeNode()
		return nil, err
	}
	profiles, err := store.Profiles()
	if err != nil {
		d.closeNode()
		return nil, fmt.Errorf("profile store: %w", err)
	}
	d.Profiles = profiles

	contract := d.Node.ContractAddress()
	if contract == "" {
		log.Warn("no contract address configured; reads will be empty")
	}
	d.Cache = querycache.New(querycache.Options{
		Clock: opts.Clock,
		Log:   log.WithField("component", "querycache"),
	})
	d.Reader = queries.New(d.Cache, d.Node)
	d.Managers = tipping.NewManagers(d.Cache, contract, optimistic.Options{
		Clock:   opts.Clock,
		Timeout: cfg.Sync.OptimisticTimeout,
		Log:     log.WithField("component", "optimistic"),
	})
	d.Presence = realtime.NewPresence()
	d.Coordinator = &realtime.Coordinator{
		Invalidate: func() {
			d.Cache.Invalidate(policy.ForContract(contract, policy.CoffeesAndBalances))
		},
		Debounce: cfg.Sync.Debounce,
		Cooldown: cfg.Sync.Cooldown,
		Clock:    opts.Clock,
		Log:      log.WithField("component", "coordinator"),
	}
	d.Sync = &realtime.Sync{
		Coordinator: d.Coordinator,
		Presence:    d.Presence,
		Events:      d.Node,
		Blocks:      d.Node,
		Confirmer:   d.Managers,
		Interval:    cfg.Sync.Interval,
		BlockEvery:  cfg.Sync.BlockEvery,
		Clock:       opts.Clock,
		Log:         log.WithField("component", "sync"),
	}
	d.Scheduler = &background.Scheduler{
		Cache:           d.Cache,
		Visibility:      d.Presence,
		Coffees:         policy.ForContract(contract, policy.Coffees),
		Balances:        policy.ForContract(contract, policy.Balances),
		CoffeeInterval:  cfg.Sync.CoffeeInterval,
		BalanceInterval: cfg.Sync.BalanceInterval,
		Clock:           opts.Clock,
		Log:             log.WithField("component", "background"),
	}
	d.Tipping = &tipping.Service{
		Chain:    d.Node,
		Profiles: d.Profiles,
		Reader:   d.Reader,
		Managers: d.Managers,
		Sync:     d.Sync,
		Log:      log.WithField("component", "tipping"),
	}

	if contract != "" {
		d.Sync.Start(ctx)
		d.Scheduler.Start(ctx)
	}
	log.WithFields(logrus.Fields{
		"contract": contract,
		"network":  cfg.Network,
		"backend":  store.Implementation,
		"writes":   d.Node.WritesEnabled(),
	}).Info("coffeetipd ready")
	return d, nil
}

// Close stops the sync machinery and releases connections.
func (d *daemon) Close() {
	d.Scheduler.Stop()
	d.Sync.Close()
	d.Cache.Close()
	if closer, ok := d.Profiles.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			d.Options.Log.WithField("err", err).Warn("closing profile store")
		}
	}
	d.closeNode()
}
