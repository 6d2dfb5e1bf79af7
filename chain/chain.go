// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package chain implements the CoffeeTip gateways against an
// Ethereum-compatible node using go-ethereum.
//
// A Gateway reads through eth_call, submits transactions signed by a
// caller-supplied transactor, and watches contract events and new
// blocks.  Watching uses subscriptions when the transport supports
// them (WebSocket or IPC endpoints) and otherwise falls back to
// polling.  If no contract address is configured, reads return empty
// results and writes fail with coffee.ErrNoContract.
package chain

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often watchers poll when subscriptions
// are unavailable.
const DefaultPollInterval = 8 * time.Second

// Backend is the part of a node client the gateway reads and watches
// through.  *ethclient.Client implements it.
type Backend interface {
	bind.ContractCaller
	bind.ContractFilterer
	BlockNumber(ctx context.Context) (uint64, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// Options configures a Gateway.
type Options struct {
	// Transactor sends transactions.  Writes are disabled if it
	// or Auth is nil.
	Transactor bind.ContractTransactor

	// Receipts looks up transaction receipts for WaitMined.
	// Defaults to Transactor if it implements bind.DeployBackend.
	Receipts bind.DeployBackend

	// Auth signs transactions.
	Auth *bind.TransactOpts

	// PollInterval is the polling period when subscriptions are
	// unavailable.  If unset, DefaultPollInterval.
	PollInterval time.Duration

	// Clock drives polling.  Only test code should need to set
	// this.
	Clock clock.Clock

	// Log receives diagnostics.
	Log logrus.FieldLogger
}

// Gateway is the go-ethereum implementation of coffee.Chain and
// coffee.Writer.
type Gateway struct {
	backend  Backend
	address  common.Address
	contract *bind.BoundContract
	opts     Options
	pending  *pendingTxs
	close    func()
}

var (
	_ coffee.Chain  = (*Gateway)(nil)
	_ coffee.Writer = (*Gateway)(nil)
)

// New creates a gateway for the contract at address, which may be
// empty.
func New(backend Backend, address string, opts Options) *Gateway {
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Receipts == nil {
		if receipts, ok := opts.Transactor.(bind.DeployBackend); ok {
			opts.Receipts = receipts
		}
	}
	g := &Gateway{
		backend: backend,
		opts:    opts,
		pending: newPendingTxs(),
	}
	if address = coffee.NormalizeAddress(address); address != "" {
		g.address = common.HexToAddress(address)
	}
	g.contract = bind.NewBoundContract(g.address, ContractABI, backend, opts.Transactor, backend)
	return g
}

// hasContract is false if no address was configured.
func (g *Gateway) hasContract() bool {
	return g.address != (common.Address{})
}

// ContractAddress returns the lowercase contract address, or "".
func (g *Gateway) ContractAddress() string {
	if !g.hasContract() {
		return ""
	}
	return hexAddress(g.address)
}

func hexAddress(a common.Address) string {
	return coffee.NormalizeAddress(a.Hex())
}
