// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memory

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/diffeo/go-coffeetip/policy"
)

// Chain is an in-memory CoffeeTip contract.  It implements both the
// read and write gateways, and pushes coffee events and new blocks to
// watchers.  Transactions are mined immediately unless automatic
// mining is turned off, in which case they wait for Mine.
type Chain struct {
	contract string
	clock    clock.Clock

	lock      sync.Mutex
	sender    string
	autoMine  bool
	block     uint64
	nextTx    uint64
	creators  map[string]*creator
	usernames map[string]string
	txs       map[string]*tx
	pending   []*tx
	failNext  error
	revert    bool
	watchers  map[int]*watcher
	nextWatch int
}

type creator struct {
	username string
	coffees  []coffee.Coffee
	balance  *big.Int
	total    *big.Int
}

type tx struct {
	hash   string
	apply  func() (*coffee.Event, error)
	done   chan struct{}
	failed bool
}

type watcher struct {
	coffees func(coffee.Event)
	blocks  func(uint64)
}

// NewChain creates an empty contract at address contract, which may
// be empty to simulate a missing configuration.
func NewChain(contract string, clk clock.Clock) *Chain {
	if clk == nil {
		clk = clock.New()
	}
	return &Chain{
		contract:  coffee.NormalizeAddress(contract),
		clock:     clk,
		sender:    "0x000000000000000000000000000000000000c0de",
		autoMine:  true,
		creators:  make(map[string]*creator),
		usernames: make(map[string]string),
		txs:       make(map[string]*tx),
		watchers:  make(map[int]*watcher),
	}
}

// SetSender sets the address that signs subsequent transactions.
func (c *Chain) SetSender(address string) {
	c.lock.Lock()
	c.sender = coffee.NormalizeAddress(address)
	c.lock.Unlock()
}

// Sender returns the address that signs transactions.
func (c *Chain) Sender() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.sender
}

// SetAutoMine controls whether transactions are mined as soon as
// they are submitted.
func (c *Chain) SetAutoMine(auto bool) {
	c.lock.Lock()
	c.autoMine = auto
	c.lock.Unlock()
}

// FailNext makes the next write return err without submitting
// anything, as a wallet refusing to sign would.
func (c *Chain) FailNext(err error) {
	c.lock.Lock()
	c.failNext = err
	c.lock.Unlock()
}

// RevertNext makes the next submitted transaction fail when mined.
func (c *Chain) RevertNext() {
	c.lock.Lock()
	c.revert = true
	c.lock.Unlock()
}

// ContractAddress returns the contract address.
func (c *Chain) ContractAddress() string {
	return c.contract
}

func (c *Chain) lookup(address string) *creator {
	return c.creators[coffee.NormalizeAddress(address)]
}

// AllCoffees returns every coffee sent to creator, newest first.
func (c *Chain) AllCoffees(ctx context.Context, address string) ([]coffee.Coffee, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.coffees(address, 0), nil
}

// RecentCoffees returns the latest coffees sent to creator, newest
// first.
func (c *Chain) RecentCoffees(ctx context.Context, address string) ([]coffee.Coffee, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.coffees(address, policy.MaxRecentCoffees), nil
}

func (c *Chain) coffees(address string, limit int) []coffee.Coffee {
	result := []coffee.Coffee{}
	if c.contract == "" {
		return result
	}
	cr := c.lookup(address)
	if cr == nil {
		return result
	}
	for i := len(cr.coffees) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, cr.coffees[i])
	}
	return coffee.CopyCoffees(result)
}

// Balance returns the accumulated tips of owner.
func (c *Chain) Balance(ctx context.Context, owner string) (*big.Int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if cr := c.lookup(owner); cr != nil && c.contract != "" {
		return new(big.Int).Set(cr.balance), nil
	}
	return new(big.Int), nil
}

// CreatorInfo returns the registration record of address.
func (c *Chain) CreatorInfo(ctx context.Context, address string) (coffee.Creator, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	info := coffee.Creator{
		Address:     coffee.NormalizeAddress(address),
		TotalAmount: new(big.Int),
	}
	if cr := c.lookup(address); cr != nil && c.contract != "" {
		info.Username = cr.username
		info.Registered = true
		info.TotalCoffees = int64(len(cr.coffees))
		info.TotalAmount.Set(cr.total)
	}
	return info, nil
}

// UsernameAvailable reports whether username is unregistered.
func (c *Chain) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.contract == "" {
		return false, nil
	}
	_, taken := c.usernames[strings.ToLower(username)]
	return !taken, nil
}

// WritesEnabled is true if a contract address is set.
func (c *Chain) WritesEnabled() bool {
	return c.contract != ""
}

// BuyCoffee submits a tip.  The transaction fails when mined if
// creator is not registered.
func (c *Chain) BuyCoffee(ctx context.Context, address, name, message string, amount *big.Int) (string, error) {
	address = coffee.NormalizeAddress(address)
	amount = new(big.Int).Set(amount)
	return c.submit(func(from string, block uint64) (*coffee.Event, error) {
		cr := c.creators[address]
		if cr == nil {
			return nil, errors.New("creator not registered")
		}
		record := coffee.Coffee{
			From:      from,
			Name:      name,
			Message:   message,
			Amount:    amount,
			Timestamp: c.clock.Now().Unix(),
		}
		cr.coffees = append(cr.coffees, record)
		cr.balance.Add(cr.balance, amount)
		cr.total.Add(cr.total, amount)
		return &coffee.Event{Creator: address, Coffee: record, Block: block}, nil
	})
}

// RegisterCreator registers the sender under username.
func (c *Chain) RegisterCreator(ctx context.Context, username string) (string, error) {
	return c.submit(func(from string, block uint64) (*coffee.Event, error) {
		if _, taken := c.usernames[username]; taken {
			return nil, coffee.ErrUsernameTaken
		}
		if cr := c.creators[from]; cr != nil {
			return nil, errors.New("already registered")
		}
		c.usernames[username] = from
		c.creators[from] = &creator{
			username: username,
			balance:  new(big.Int),
			total:    new(big.Int),
		}
		return nil, nil
	})
}

// submit queues a transaction.  apply runs with the lock held when
// the transaction is mined.
func (c *Chain) submit(apply func(from string, block uint64) (*coffee.Event, error)) (string, error) {
	c.lock.Lock()
	if c.contract == "" {
		c.lock.Unlock()
		return "", coffee.ErrNoContract
	}
	if err := c.failNext; err != nil {
		c.failNext = nil
		c.lock.Unlock()
		return "", err
	}
	c.nextTx++
	t := &tx{
		hash: fmt.Sprintf("0x%064x", c.nextTx),
		done: make(chan struct{}),
	}
	from, revert := c.sender, c.revert
	c.revert = false
	t.apply = func() (*coffee.Event, error) {
		if revert {
			return nil, errors.New("execution reverted")
		}
		return apply(from, c.block)
	}
	c.txs[t.hash] = t
	c.pending = append(c.pending, t)
	auto := c.autoMine
	c.lock.Unlock()

	if auto {
		c.Mine()
	}
	return t.hash, nil
}

// Mine includes every pending transaction in a new block, notifies
// watchers, and returns the block number.
func (c *Chain) Mine() uint64 {
	c.lock.Lock()
	c.block++
	block := c.block
	var events []coffee.Event
	for _, t := range c.pending {
		ev, err := t.apply()
		if err != nil {
			t.failed = true
		} else if ev != nil {
			ev.TxHash = t.hash
			events = append(events, *ev)
		}
		close(t.done)
	}
	c.pending = nil
	watchers := make([]*watcher, 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.lock.Unlock()

	for _, w := range watchers {
		if w.coffees != nil {
			for _, ev := range events {
				w.coffees(ev)
			}
		}
		if w.blocks != nil {
			w.blocks(block)
		}
	}
	return block
}

// WaitMined waits for a transaction to be mined.
func (c *Chain) WaitMined(ctx context.Context, hash string) error {
	c.lock.Lock()
	t := c.txs[hash]
	c.lock.Unlock()
	if t == nil {
		return fmt.Errorf("unknown transaction %v", hash)
	}
	select {
	case <-t.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if t.failed {
		return coffee.ErrTransactionFailed
	}
	return nil
}

// BlockNumber returns the number of the latest block.
func (c *Chain) BlockNumber() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.block
}

func (c *Chain) watch(ctx context.Context, w *watcher) error {
	c.lock.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = w
	c.lock.Unlock()

	<-ctx.Done()

	c.lock.Lock()
	delete(c.watchers, id)
	c.lock.Unlock()
	return nil
}

// WatchCoffees calls fn for every coffee mined until ctx is
// cancelled.
func (c *Chain) WatchCoffees(ctx context.Context, fn func(coffee.Event)) error {
	return c.watch(ctx, &watcher{coffees: fn})
}

// WatchBlocks calls fn for every block mined until ctx is cancelled.
func (c *Chain) WatchBlocks(ctx context.Context, fn func(uint64)) error {
	return c.watch(ctx, &watcher{blocks: fn})
}
