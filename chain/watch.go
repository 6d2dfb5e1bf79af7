// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chain

import (
	"context"
	"math/big"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// maxBlockCatchUp bounds the number of block callbacks made for one
// poll, when the node has moved far ahead.
const maxBlockCatchUp = 16

func (g *Gateway) coffeeQuery() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{g.address},
		Topics:    [][]common.Hash{{ContractABI.Events[eventNewCoffee].ID}},
	}
}

// decode turns a NewCoffee log into an event.
func (g *Gateway) decode(l types.Log) (coffee.Event, error) {
	var raw newCoffeeLog
	if err := g.contract.UnpackLog(&raw, eventNewCoffee, l); err != nil {
		return coffee.Event{}, err
	}
	return coffee.Event{
		Creator: hexAddress(raw.Creator),
		Coffee: coffee.Coffee{
			From:      hexAddress(raw.From),
			Name:      raw.Name,
			Message:   raw.Message,
			Amount:    bigOrZero(raw.Amount),
			Timestamp: bigOrZero(raw.Timestamp).Int64(),
		},
		TxHash: l.TxHash.Hex(),
		Block:  l.BlockNumber,
	}, nil
}

func (g *Gateway) deliver(l types.Log, fn func(coffee.Event)) {
	if l.Removed {
		return
	}
	ev, err := g.decode(l)
	if err != nil {
		g.opts.Log.WithFields(logrus.Fields{
			"tx":  l.TxHash.Hex(),
			"err": err,
		}).Warn("undecodable coffee event")
		return
	}
	fn(ev)
}

// WatchCoffees calls fn for every NewCoffee event until ctx is
// cancelled.  It subscribes if the node supports it and polls
// otherwise, including after a subscription fails.
func (g *Gateway) WatchCoffees(ctx context.Context, fn func(coffee.Event)) error {
	if !g.hasContract() {
		return coffee.ErrNoContract
	}
	query := g.coffeeQuery()
	logs := make(chan types.Log, 16)
	sub, err := g.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		g.opts.Log.WithFields(logrus.Fields{
			"err":      err,
			"interval": g.opts.PollInterval,
		}).Warn("event subscription unavailable, polling")
		return g.pollCoffees(ctx, query, fn)
	}
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			g.opts.Log.WithField("err", err).Warn("event subscription dropped, polling")
			return g.pollCoffees(ctx, query, fn)
		case l := <-logs:
			g.deliver(l, fn)
		}
	}
}

// pollCoffees fetches new logs every poll interval.  Errors are
// logged and the same range is retried on the next tick.
func (g *Gateway) pollCoffees(ctx context.Context, query ethereum.FilterQuery, fn func(coffee.Event)) error {
	last, err := g.backend.BlockNumber(ctx)
	if err != nil {
		g.opts.Log.WithField("err", err).Warn("could not read block number")
	}
	ticker := g.opts.Clock.Ticker(g.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		head, err := g.backend.BlockNumber(ctx)
		if err != nil {
			g.opts.Log.WithField("err", err).Debug("poll failed")
			continue
		}
		if head <= last {
			continue
		}
		q := query
		q.FromBlock = new(big.Int).SetUint64(last + 1)
		q.ToBlock = new(big.Int).SetUint64(head)
		logs, err := g.backend.FilterLogs(ctx, q)
		if err != nil {
			g.opts.Log.WithField("err", err).Debug("poll failed")
			continue
		}
		for _, l := range logs {
			g.deliver(l, fn)
		}
		last = head
	}
}

// WatchBlocks calls fn for every new block until ctx is cancelled,
// subscribing to new heads if possible and polling otherwise.
func (g *Gateway) WatchBlocks(ctx context.Context, fn func(uint64)) error {
	heads := make(chan *types.Header, 16)
	sub, err := g.backend.SubscribeNewHead(ctx, heads)
	if err != nil {
		g.opts.Log.WithFields(logrus.Fields{
			"err":      err,
			"interval": g.opts.PollInterval,
		}).Warn("block subscription unavailable, polling")
		return g.pollBlocks(ctx, fn)
	}
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			g.opts.Log.WithField("err", err).Warn("block subscription dropped, polling")
			return g.pollBlocks(ctx, fn)
		case h := <-heads:
			if h != nil && h.Number != nil {
				fn(h.Number.Uint64())
			}
		}
	}
}

func (g *Gateway) pollBlocks(ctx context.Context, fn func(uint64)) error {
	last, err := g.backend.BlockNumber(ctx)
	if err != nil {
		g.opts.Log.WithField("err", err).Warn("could not read block number")
	}
	ticker := g.opts.Clock.Ticker(g.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		head, err := g.backend.BlockNumber(ctx)
		if err != nil {
			g.opts.Log.WithField("err", err).Debug("poll failed")
			continue
		}
		if head <= last {
			continue
		}
		from := last + 1
		if head-last > maxBlockCatchUp {
			from = head - maxBlockCatchUp + 1
		}
		for n := from; n <= head; n++ {
			fn(n)
		}
		last = head
	}
}
