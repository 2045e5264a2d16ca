// Package router is the stateless entry point users trade through. It quotes across both
// curves, adds and removes liquidity with slippage bounds, wraps and unwraps the native asset
// and walks multi-hop routes pair to pair.
package router

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/defistate/defistate-amm-go/factory"
	"github.com/defistate/defistate-amm-go/pair"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	Host          *chain.Host
	Address       common.Address
	Factory       *factory.Factory
	WrappedNative *token.WrappedNative
	Registry      prometheus.Registerer
	Logger        Logger
}

func (c *Config) validate() error {
	if c.Host == nil {
		return errors.New("config: Host cannot be nil")
	}
	if c.Address == (common.Address{}) {
		return errors.New("config: Address cannot be zero")
	}
	if c.Factory == nil {
		return errors.New("config: Factory cannot be nil")
	}
	if c.WrappedNative == nil {
		return errors.New("config: WrappedNative cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// Route is one hop of a swap. The router picks the better of the two curves per hop.
type Route struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
}

// Quote is the amount reached after a hop and the curve that produced it.
type Quote struct {
	Amount *uint256.Int `json:"amount"`
	Stable bool         `json:"stable"`
}

// Router holds no state beyond its two immutable references.
type Router struct {
	host     *chain.Host
	address  common.Address
	factory  *factory.Factory
	wnative  *token.WrappedNative
	codeHash common.Hash
	metrics  *Metrics
	logger   Logger
}

// NewRouter deploys the router at cfg.Address.
func NewRouter(cfg Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	r := &Router{
		host:     cfg.Host,
		address:  cfg.Address,
		factory:  cfg.Factory,
		wnative:  cfg.WrappedNative,
		codeHash: cfg.Factory.PairCodeHash(),
		metrics:  NewMetrics(cfg.Registry),
		logger:   cfg.Logger,
	}
	cfg.Host.Register(cfg.Address, r)
	return r, nil
}

func (r *Router) Address() common.Address       { return r.address }
func (r *Router) Factory() common.Address       { return r.factory.Address() }
func (r *Router) WrappedNative() common.Address { return r.wnative.Address() }

// ReceiveNative accepts native value only from the wrapper, when it pays out a withdrawal.
func (r *Router) ReceiveNative(from common.Address, _ *uint256.Int) error {
	if from != r.wnative.Address() {
		return fmt.Errorf("%w: %s", ErrUnexpectedNative, from.Hex())
	}
	return nil
}

// SortTokens orders two distinct, non-zero token addresses.
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address, err error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalAddresses
	}
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		token0, token1 = tokenA, tokenB
	} else {
		token0, token1 = tokenB, tokenA
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	return token0, token1, nil
}

// PairFor derives the pair address without touching factory state, so it also names pairs
// that do not exist yet.
func (r *Router) PairFor(tokenA, tokenB common.Address, stable bool) (common.Address, error) {
	if _, _, err := SortTokens(tokenA, tokenB); err != nil {
		return common.Address{}, err
	}
	return factory.PairAddress(r.factory.Address(), r.codeHash, tokenA, tokenB, stable), nil
}

// pairOf returns the deployed pair for the combination.
func (r *Router) pairOf(tokenA, tokenB common.Address, stable bool) (*pair.Pair, bool) {
	addr, err := r.PairFor(tokenA, tokenB, stable)
	if err != nil {
		return nil, false
	}
	return r.factory.Pair(addr)
}

func (r *Router) mustPair(tokenA, tokenB common.Address, stable bool) (*pair.Pair, error) {
	p, ok := r.pairOf(tokenA, tokenB, stable)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s stable=%t", ErrPairNotFound, tokenA.Hex(), tokenB.Hex(), stable)
	}
	return p, nil
}

func (r *Router) ensure(deadline uint64) error {
	if now := r.host.Now(); now > deadline {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, now)
	}
	return nil
}

func (r *Router) token(addr common.Address) (token.Token, error) {
	t, err := token.Resolve(r.host, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return t, nil
}

func (r *Router) pullFrom(t token.Token, from, to common.Address, amount *uint256.Int) error {
	if err := t.TransferFrom(r.address, from, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFromFailed, err)
	}
	return nil
}

func (r *Router) send(t token.Token, to common.Address, amount *uint256.Int) error {
	if err := t.Transfer(r.address, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

func (r *Router) sendNative(to common.Address, amount *uint256.Int) error {
	if err := r.host.SendNative(r.address, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrNativeTransferFailed, err)
	}
	return nil
}

// wrap takes value from sender as call value and converts it into wrapped tokens held by the router.
func (r *Router) wrap(sender common.Address, value *uint256.Int) error {
	if err := r.host.TransferValue(sender, r.address, value); err != nil {
		return fmt.Errorf("%w: %w", ErrNativeTransferFailed, err)
	}
	return r.wnative.Deposit(r.address, value)
}
