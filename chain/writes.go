// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// userRejectedCode is the EIP-1193 error code for a request the
// wallet holder declined.
const userRejectedCode = 4001

// mapError converts wallet refusals into coffee.ErrUserRejected and
// passes other errors through.
func mapError(err error) error {
	if err == nil || coffee.IsUserRejected(err) {
		return err
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return fmt.Errorf("%w: %v", coffee.ErrUserRejected, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied") {
		return fmt.Errorf("%w: %v", coffee.ErrUserRejected, err)
	}
	return err
}

// pendingTxs remembers submitted transactions until they are mined.
type pendingTxs struct {
	lock sync.Mutex
	txs  map[string]*types.Transaction
}

func newPendingTxs() *pendingTxs {
	return &pendingTxs{txs: make(map[string]*types.Transaction)}
}

func (p *pendingTxs) add(tx *types.Transaction) string {
	hash := tx.Hash().Hex()
	p.lock.Lock()
	p.txs[strings.ToLower(hash)] = tx
	p.lock.Unlock()
	return strings.ToLower(hash)
}

func (p *pendingTxs) get(hash string) *types.Transaction {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.txs[strings.ToLower(hash)]
}

func (p *pendingTxs) remove(hash string) {
	p.lock.Lock()
	delete(p.txs, strings.ToLower(hash))
	p.lock.Unlock()
}

// WritesEnabled is true if a contract, a transactor and a signer are
// all configured.
func (g *Gateway) WritesEnabled() bool {
	return g.hasContract() && g.opts.Transactor != nil && g.opts.Auth != nil
}

func (g *Gateway) checkWrites() error {
	if !g.hasContract() {
		return coffee.ErrNoContract
	}
	if !g.WritesEnabled() {
		return coffee.ErrWritesDisabled
	}
	return nil
}

// transactOpts copies the signer with a context and value.
func (g *Gateway) transactOpts(ctx context.Context, value *big.Int) *bind.TransactOpts {
	opts := *g.opts.Auth
	opts.Context = ctx
	opts.Value = value
	return &opts
}

func (g *Gateway) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (string, error) {
	if err := g.checkWrites(); err != nil {
		return "", err
	}
	tx, err := g.contract.Transact(g.transactOpts(ctx, value), method, args...)
	if err != nil {
		return "", mapError(err)
	}
	hash := g.pending.add(tx)
	g.opts.Log.WithFields(logrus.Fields{
		"method": method,
		"tx":     hash,
	}).Debug("submitted transaction")
	return hash, nil
}

// BuyCoffee sends amount to creator with a name and message.
func (g *Gateway) BuyCoffee(ctx context.Context, creator, name, message string, amount *big.Int) (string, error) {
	addr, err := parseAddress(creator)
	if err != nil {
		return "", err
	}
	return g.transact(ctx, new(big.Int).Set(amount), methodBuyCoffee, addr, name, message)
}

// RegisterCreator registers the signing address under username.
func (g *Gateway) RegisterCreator(ctx context.Context, username string) (string, error) {
	return g.transact(ctx, nil, methodRegister, username)
}

// WaitMined waits for a transaction submitted through this gateway
// to be included in a block.
func (g *Gateway) WaitMined(ctx context.Context, hash string) error {
	tx := g.pending.get(hash)
	if tx == nil {
		return fmt.Errorf("unknown transaction %v", hash)
	}
	if g.opts.Receipts == nil {
		return coffee.ErrWritesDisabled
	}
	receipt, err := bind.WaitMined(ctx, g.opts.Receipts, tx)
	if err != nil {
		return err
	}
	g.pending.remove(hash)
	if receipt.Status != types.ReceiptStatusSuccessful {
		return coffee.ErrTransactionFailed
	}
	return nil
}
