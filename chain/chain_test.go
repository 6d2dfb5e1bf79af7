// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-coffeetip/coffee"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contractAddr = common.HexToAddress("0x000000000000000000000000000000000000c0ff")
	creatorAddr  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	fanAddr      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

type fakeSub struct {
	errs chan error
	once sync.Once
}

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errs) }) }
func (s *fakeSub) Err() <-chan error { return s.errs }

// fakeBackend answers contract calls from in-memory state, encoded
// with the real ABI.
type fakeBackend struct {
	lock        sync.Mutex
	coffees     []coffeeTuple
	balance     *big.Int
	block       uint64
	blockReads  int
	logs        []types.Log
	noPush      bool
	logSink     chan<- types.Log
	headSink    chan<- *types.Header
	logSub      *fakeSub
	callFailure error
}

func (b *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{1}, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.callFailure != nil {
		return nil, b.callFailure
	}
	if call.To == nil || *call.To != contractAddr {
		return nil, fmt.Errorf("call to wrong contract %v", call.To)
	}
	method, err := ContractABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case methodAllCoffees:
		if args[0].(common.Address) != creatorAddr {
			return method.Outputs.Pack([]coffeeTuple{})
		}
		return method.Outputs.Pack(b.coffees)
	case methodRecentCoffees:
		recent := b.coffees
		if len(recent) > 2 {
			recent = recent[len(recent)-2:]
		}
		return method.Outputs.Pack(recent)
	case methodBalance:
		return method.Outputs.Pack(b.balance)
	case methodCreatorInfo:
		return method.Outputs.Pack("alice", true, big.NewInt(int64(len(b.coffees))), big.NewInt(600))
	case methodUsernameFree:
		return method.Outputs.Pack(args[0].(string) != "alice")
	}
	return nil, fmt.Errorf("unexpected method %v", method.Name)
}

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	var out []types.Log
	for _, l := range b.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (b *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.noPush {
		return nil, rpc.ErrNotificationsUnsupported
	}
	b.logSink = ch
	b.logSub = &fakeSub{errs: make(chan error, 1)}
	return b.logSub, nil
}

func (b *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.blockReads++
	return b.block, nil
}

func (b *fakeBackend) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.noPush {
		return nil, rpc.ErrNotificationsUnsupported
	}
	b.headSink = ch
	return &fakeSub{errs: make(chan error, 1)}, nil
}

func (b *fakeBackend) reads() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.blockReads
}

func newCoffeeLog(t *testing.T, block uint64, amount int64) types.Log {
	event := ContractABI.Events[eventNewCoffee]
	data, err := event.Inputs.NonIndexed().Pack("Bob", "nice", big.NewInt(amount), big.NewInt(1700000000))
	require.NoError(t, err)
	return types.Log{
		Address: contractAddr,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(creatorAddr.Bytes()),
			common.BytesToHash(fanAddr.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
	}
}

func newGateway(b *fakeBackend, clk clock.Clock) *Gateway {
	return New(b, contractAddr.Hex(), Options{Clock: clk})
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{
		balance: big.NewInt(600),
		coffees: []coffeeTuple{
			{From: fanAddr, Name: "first", Message: "a", Amount: big.NewInt(100), Timestamp: big.NewInt(10)},
			{From: fanAddr, Name: "second", Message: "b", Amount: big.NewInt(200), Timestamp: big.NewInt(20)},
			{From: fanAddr, Name: "third", Message: "c", Amount: big.NewInt(300), Timestamp: big.NewInt(30)},
		},
	}
	g := newGateway(b, nil)
	assert.Equal(t, "0x000000000000000000000000000000000000c0ff", g.ContractAddress())

	all, err := g.AllCoffees(ctx, creatorAddr.Hex())
	require.NoError(t, err)
	if assert.Len(t, all, 3) {
		assert.Equal(t, "third", all[0].Name)
		assert.Equal(t, "first", all[2].Name)
		assert.Equal(t, "0x00000000000000000000000000000000000000aa", all[0].From)
		assert.Equal(t, int64(300), all[0].Amount.Int64())
		assert.Equal(t, int64(30), all[0].Timestamp)
		assert.False(t, all[0].Optimistic)
	}

	recent, err := g.RecentCoffees(ctx, creatorAddr.Hex())
	require.NoError(t, err)
	if assert.Len(t, recent, 2) {
		assert.Equal(t, "third", recent[0].Name)
		assert.Equal(t, "second", recent[1].Name)
	}

	none, err := g.AllCoffees(ctx, fanAddr.Hex())
	require.NoError(t, err)
	assert.Empty(t, none)

	bal, err := g.Balance(ctx, creatorAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(600), bal.Int64())

	info, err := g.CreatorInfo(ctx, creatorAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, coffee.Creator{
		Address:      "0x00000000000000000000000000000000000000cc",
		Username:     "alice",
		Registered:   true,
		TotalCoffees: 3,
		TotalAmount:  big.NewInt(600),
	}, info)

	free, err := g.UsernameAvailable(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, free)
	free, err = g.UsernameAvailable(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, free)

	_, err = g.AllCoffees(ctx, "not an address")
	assert.IsType(t, coffee.ErrInvalid{}, err)
}

func TestReadErrorsPropagate(t *testing.T) {
	b := &fakeBackend{callFailure: errors.New("rpc timeout")}
	g := newGateway(b, nil)
	_, err := g.Balance(context.Background(), creatorAddr.Hex())
	assert.EqualError(t, err, "getBalance: rpc timeout")
}

func TestNoContract(t *testing.T) {
	ctx := context.Background()
	g := New(&fakeBackend{callFailure: errors.New("must not be called")}, "", Options{})
	assert.Equal(t, "", g.ContractAddress())
	assert.False(t, g.WritesEnabled())

	all, err := g.AllCoffees(ctx, creatorAddr.Hex())
	assert.NoError(t, err)
	assert.Equal(t, []coffee.Coffee{}, all)
	recent, err := g.RecentCoffees(ctx, creatorAddr.Hex())
	assert.NoError(t, err)
	assert.Equal(t, []coffee.Coffee{}, recent)
	bal, err := g.Balance(ctx, creatorAddr.Hex())
	assert.NoError(t, err)
	assert.Equal(t, 0, bal.Sign())
	info, err := g.CreatorInfo(ctx, creatorAddr.Hex())
	assert.NoError(t, err)
	assert.False(t, info.Registered)
	free, err := g.UsernameAvailable(ctx, "alice")
	assert.NoError(t, err)
	assert.False(t, free)

	_, err = g.BuyCoffee(ctx, creatorAddr.Hex(), "Bob", "hi", big.NewInt(1))
	assert.Equal(t, coffee.ErrNoContract, err)
	_, err = g.RegisterCreator(ctx, "alice")
	assert.Equal(t, coffee.ErrNoContract, err)
	assert.Equal(t, coffee.ErrNoContract, g.WatchCoffees(ctx, func(coffee.Event) {}))
}

func TestWritesDisabledWithoutSigner(t *testing.T) {
	g := newGateway(&fakeBackend{}, nil)
	assert.False(t, g.WritesEnabled())
	assert.Equal(t, "", g.Sender())
	_, err := g.BuyCoffee(context.Background(), creatorAddr.Hex(), "Bob", "hi", big.NewInt(1))
	assert.Equal(t, coffee.ErrWritesDisabled, err)
	assert.Error(t, g.WaitMined(context.Background(), "0x1234"))
}

type walletError struct {
	code int
	msg  string
}

func (e walletError) Error() string  { return e.msg }
func (e walletError) ErrorCode() int { return e.code }

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.True(t, coffee.IsUserRejected(mapError(walletError{4001, "rejected"})))
	assert.True(t, coffee.IsUserRejected(mapError(errors.New("MetaMask Tx Signature: User denied transaction signature."))))
	assert.True(t, coffee.IsUserRejected(mapError(fmt.Errorf("send: %w", errors.New("user rejected the request")))))
	assert.True(t, coffee.IsUserRejected(mapError(coffee.ErrUserRejected)))

	other := walletError{-32000, "insufficient funds"}
	assert.Equal(t, other, mapError(other))
	assert.False(t, coffee.IsUserRejected(mapError(errors.New("nonce too low"))))
}

func TestWatchCoffeesPush(t *testing.T) {
	b := &fakeBackend{}
	g := newGateway(b, nil)
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan coffee.Event, 4)
	done := make(chan error)
	go func() { done <- g.WatchCoffees(ctx, func(ev coffee.Event) { events <- ev }) }()

	var sink chan<- types.Log
	require.Eventually(t, func() bool {
		b.lock.Lock()
		defer b.lock.Unlock()
		sink = b.logSink
		return sink != nil
	}, time.Second, time.Millisecond)

	removed := newCoffeeLog(t, 3, 1)
	removed.Removed = true
	sink <- removed
	sink <- newCoffeeLog(t, 4, 250)

	select {
	case ev := <-events:
		assert.Equal(t, "0x00000000000000000000000000000000000000cc", ev.Creator)
		assert.Equal(t, "0x00000000000000000000000000000000000000aa", ev.Coffee.From)
		assert.Equal(t, "Bob", ev.Coffee.Name)
		assert.Equal(t, "nice", ev.Coffee.Message)
		assert.Equal(t, int64(250), ev.Coffee.Amount.Int64())
		assert.Equal(t, int64(1700000000), ev.Coffee.Timestamp)
		assert.Equal(t, uint64(4), ev.Block)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	assert.NoError(t, <-done)
	assert.Empty(t, events)
}

func TestWatchCoffeesFallsBackToPolling(t *testing.T) {
	clk := clock.NewMock()
	b := &fakeBackend{noPush: true, block: 1}
	g := newGateway(b, clk)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan coffee.Event, 4)
	go func() { _ = g.WatchCoffees(ctx, func(ev coffee.Event) { events <- ev }) }()
	require.Eventually(t, func() bool { return b.reads() > 0 }, time.Second, time.Millisecond)

	b.lock.Lock()
	b.logs = append(b.logs, newCoffeeLog(t, 1, 1), newCoffeeLog(t, 2, 2))
	b.block = 2
	b.lock.Unlock()

	assert.Eventually(t, func() bool {
		clk.Add(DefaultPollInterval)
		return len(events) > 0
	}, time.Second, 5*time.Millisecond)
	ev := <-events
	assert.Equal(t, uint64(2), ev.Block, "blocks before the watch started are skipped")
	assert.Empty(t, events)
}

func TestWatchCoffeesSubscriptionDropped(t *testing.T) {
	clk := clock.NewMock()
	b := &fakeBackend{block: 1}
	g := newGateway(b, clk)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan coffee.Event, 4)
	go func() { _ = g.WatchCoffees(ctx, func(ev coffee.Event) { events <- ev }) }()

	require.Eventually(t, func() bool {
		b.lock.Lock()
		defer b.lock.Unlock()
		return b.logSub != nil
	}, time.Second, time.Millisecond)
	b.lock.Lock()
	b.logSub.errs <- errors.New("connection reset")
	b.lock.Unlock()
	require.Eventually(t, func() bool { return b.reads() > 0 }, time.Second, time.Millisecond)

	b.lock.Lock()
	b.logs = append(b.logs, newCoffeeLog(t, 2, 2))
	b.block = 2
	b.lock.Unlock()
	assert.Eventually(t, func() bool {
		clk.Add(DefaultPollInterval)
		return len(events) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestWatchBlocks(t *testing.T) {
	b := &fakeBackend{}
	g := newGateway(b, nil)
	ctx, cancel := context.WithCancel(context.Background())
	blocks := make(chan uint64, 4)
	done := make(chan error)
	go func() { done <- g.WatchBlocks(ctx, func(n uint64) { blocks <- n }) }()

	var sink chan<- *types.Header
	require.Eventually(t, func() bool {
		b.lock.Lock()
		defer b.lock.Unlock()
		sink = b.headSink
		return sink != nil
	}, time.Second, time.Millisecond)
	sink <- &types.Header{Number: big.NewInt(42)}
	assert.Equal(t, uint64(42), <-blocks)
	cancel()
	assert.NoError(t, <-done)
}

func TestWatchBlocksPolling(t *testing.T) {
	clk := clock.NewMock()
	b := &fakeBackend{noPush: true, block: 10}
	g := newGateway(b, clk)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var lock sync.Mutex
	var seen []uint64
	go func() {
		_ = g.WatchBlocks(ctx, func(n uint64) {
			lock.Lock()
			seen = append(seen, n)
			lock.Unlock()
		})
	}()
	require.Eventually(t, func() bool { return b.reads() > 0 }, time.Second, time.Millisecond)

	b.lock.Lock()
	b.block = 13
	b.lock.Unlock()
	assert.Eventually(t, func() bool {
		clk.Add(DefaultPollInterval)
		lock.Lock()
		defer lock.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, []uint64{11, 12, 13}, seen)
}

func TestNetworks(t *testing.T) {
	n, err := LookupNetwork("arbitrum")
	require.NoError(t, err)
	assert.Equal(t, int64(42161), n.ChainID)
	n, err = LookupNetwork("arbitrum-sepolia")
	require.NoError(t, err)
	assert.Equal(t, int64(421614), n.ChainID)
	_, err = LookupNetwork("mainnet")
	assert.Error(t, err)
	assert.Equal(t, []string{"arbitrum", "arbitrum-sepolia", "localhost"}, NetworkNames())
}
