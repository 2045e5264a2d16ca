// Package chain is the in-process ledger the exchange contracts run on. It provides the
// block clock, an address-to-contract registry, native balances, an event log and a journal
// that makes every Execute call all-or-nothing.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientNativeBalance = errors.New("chain: insufficient native balance")
	ErrNativeTransferRejected    = errors.New("chain: native transfer rejected")
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Event is anything a contract emits.
type Event interface {
	EventName() string
}

// Log is an emitted event tagged with the emitting contract.
type Log struct {
	Address common.Address
	Event   Event
}

// NativeReceiver is implemented by contracts that accept plain native-asset sends.
type NativeReceiver interface {
	ReceiveNative(from common.Address, amount *uint256.Int) error
}

// Config holds the host's dependencies.
type Config struct {
	ChainID uint64
	Clock   Clock
	Logger  Logger
}

func (c *Config) validate() error {
	if c.ChainID == 0 {
		return errors.New("config: ChainID cannot be zero")
	}
	if c.Clock == nil {
		return errors.New("config: Clock cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// Host is a serialized, journaled execution environment.
type Host struct {
	mu      sync.Mutex
	chainID uint64
	clock   Clock
	logger  Logger
	journal *Journal
	height  atomic.Uint64

	contracts *Map[common.Address, any]
	native    *Map[common.Address, *uint256.Int]
	logs      []Log
	onCommit  []func()

	feed event.Feed
}

// NewHost constructs a host from a configuration, returning an error if the config is invalid.
func NewHost(cfg Config) (*Host, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	j := NewJournal()
	return &Host{
		chainID:   cfg.ChainID,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		journal:   j,
		contracts: NewMap[common.Address, any](j),
		native:    NewMap[common.Address, *uint256.Int](j),
	}, nil
}

func (h *Host) ChainID() uint64 {
	return h.chainID
}

// Now returns the current block timestamp.
func (h *Host) Now() uint64 {
	return h.clock.Now()
}

// Height is the number of transactions committed so far.
func (h *Host) Height() uint64 {
	return h.height.Load()
}

// Journal exposes the journal contracts use for their own state containers.
func (h *Host) Journal() *Journal {
	return h.journal
}

// Execute runs fn as one transaction. If fn fails, every journaled write and every log it
// produced is discarded. Logs of a successful transaction are published to subscribers.
func (h *Host) Execute(fn func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := len(h.logs)
	if err := h.Call(fn); err != nil {
		h.logger.Debug("transaction reverted", "error", err)
		return err
	}

	h.height.Add(1)
	hooks := h.onCommit
	h.onCommit = nil
	for _, fn := range hooks {
		fn()
	}
	committed := h.logs[start:]
	if len(committed) > 0 {
		batch := make([]Log, len(committed))
		copy(batch, committed)
		h.feed.Send(batch)
	}
	return nil
}

// Call runs fn inside a nested snapshot. A failure reverts only fn's writes, so a caller that
// handles the error keeps its own state.
func (h *Host) Call(fn func() error) error {
	point := h.journal.begin()
	defer h.journal.end()

	if err := fn(); err != nil {
		h.journal.Rollback(point)
		return err
	}
	return nil
}

// AfterCommit defers fn until the outermost transaction commits. A rollback of any enclosing
// call drops it. Outside a transaction fn runs immediately.
func (h *Host) AfterCommit(fn func()) {
	if h.journal.depth == 0 {
		fn()
		return
	}
	n := len(h.onCommit)
	h.journal.record(func() { h.onCommit = h.onCommit[:n] })
	h.onCommit = append(h.onCommit, fn)
}

// Register binds a contract object to an address.
func (h *Host) Register(addr common.Address, contract any) {
	h.contracts.Set(addr, contract)
}

// Contract returns the contract object deployed at addr.
func (h *Host) Contract(addr common.Address) (any, bool) {
	return h.contracts.Get(addr)
}

// NativeBalance returns the native-asset balance of addr.
func (h *Host) NativeBalance(addr common.Address) *uint256.Int {
	if bal, ok := h.native.Get(addr); ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// MintNative credits native balance out of thin air, for genesis allocations.
func (h *Host) MintNative(to common.Address, amount *uint256.Int) {
	h.native.Set(to, new(uint256.Int).Add(h.NativeBalance(to), amount))
}

// TransferValue moves native value attached to a call. No receiver hook runs.
func (h *Host) TransferValue(from, to common.Address, amount *uint256.Int) error {
	fromBalance := h.NativeBalance(from)
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientNativeBalance, from.Hex(), fromBalance.Dec(), amount.Dec())
	}
	h.native.Set(from, new(uint256.Int).Sub(fromBalance, amount))
	h.native.Set(to, new(uint256.Int).Add(h.NativeBalance(to), amount))
	return nil
}

// SendNative is a plain native send. Contracts must implement NativeReceiver to accept it.
func (h *Host) SendNative(from, to common.Address, amount *uint256.Int) error {
	if err := h.TransferValue(from, to, amount); err != nil {
		return err
	}
	contract, ok := h.contracts.Get(to)
	if !ok {
		return nil
	}
	receiver, ok := contract.(NativeReceiver)
	if !ok {
		return fmt.Errorf("%w: %s cannot receive native sends", ErrNativeTransferRejected, to.Hex())
	}
	if err := receiver.ReceiveNative(from, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrNativeTransferRejected, err)
	}
	return nil
}

// Emit appends an event to the log.
func (h *Host) Emit(addr common.Address, e Event) {
	n := len(h.logs)
	h.journal.record(func() { h.logs = h.logs[:n] })
	h.logs = append(h.logs, Log{Address: addr, Event: e})
}

// Logs returns a copy of every log emitted so far.
func (h *Host) Logs() []Log {
	out := make([]Log, len(h.logs))
	copy(out, h.logs)
	return out
}

// SubscribeLogs delivers the logs of every committed transaction to ch.
// Delivery blocks Execute until ch accepts, so subscribers must keep draining it.
func (h *Host) SubscribeLogs(ch chan<- []Log) event.Subscription {
	return h.feed.Subscribe(ch)
}
