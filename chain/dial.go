// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Config describes how to reach a node.
type Config struct {
	// Network names an entry in Networks.  Its chain ID signs
	// transactions, and its RPC URL is used if RPCURL is empty.
	Network string

	// RPCURL is the HTTP endpoint of the node.
	RPCURL string

	// WSURL, if set, is a WebSocket endpoint used for everything,
	// so that events and blocks can be pushed.
	WSURL string

	// Contract is the CoffeeTip contract address.  If empty,
	// reads return empty results.
	Contract string

	// PrivateKey is the hex-encoded key that signs transactions.
	// If empty, writes are disabled.
	PrivateKey string

	// PollInterval is the watcher polling period.
	PollInterval time.Duration

	// Log receives diagnostics.
	Log logrus.FieldLogger
}

// Dial connects to a node and returns a gateway.  Call Close on the
// result when done.
func Dial(ctx context.Context, cfg Config) (*Gateway, error) {
	url := cfg.WSURL
	if url == "" {
		url = cfg.RPCURL
	}
	var chainID *big.Int
	if cfg.Network != "" {
		network, err := LookupNetwork(cfg.Network)
		if err != nil {
			return nil, err
		}
		chainID = big.NewInt(network.ChainID)
		if url == "" {
			url = network.RPCURL
		}
	}
	if url == "" {
		return nil, fmt.Errorf("no RPC URL or network configured")
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %v: %w", url, err)
	}
	opts := Options{
		Transactor:   client,
		Receipts:     client,
		PollInterval: cfg.PollInterval,
		Log:          cfg.Log,
	}
	if cfg.PrivateKey != "" {
		if chainID == nil {
			chainID, err = client.ChainID(ctx)
			if err != nil {
				client.Close()
				return nil, fmt.Errorf("chain id: %w", err)
			}
		}
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("private key: %w", err)
		}
		opts.Auth, err = bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			client.Close()
			return nil, err
		}
	}
	g := New(client, cfg.Contract, opts)
	g.close = client.Close
	return g, nil
}

// Sender returns the address that signs transactions, or "" if
// writes are disabled.
func (g *Gateway) Sender() string {
	if g.opts.Auth == nil {
		return ""
	}
	return hexAddress(g.opts.Auth.From)
}

// Close releases the node connection, if the gateway owns one.
func (g *Gateway) Close() {
	if g.close != nil {
		g.close()
	}
}
