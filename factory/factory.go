// Package factory deploys pairs at deterministic addresses and keeps the registry of every
// pair it created, together with the governance settings pairs read their fee split from.
package factory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/defistate/defistate-amm-go/pair"
	"github.com/defistate/defistate-amm-go/routing"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the factory's dependencies. Deployer becomes the first governor.
type Config struct {
	Host       *chain.Host
	Address    common.Address
	Deployer   common.Address
	PairParams pair.Params
	Registry   prometheus.Registerer
	Logger     Logger
}

func (c *Config) validate() error {
	if c.Host == nil {
		return errors.New("config: Host cannot be nil")
	}
	if c.Address == (common.Address{}) {
		return errors.New("config: Address cannot be zero")
	}
	if c.Deployer == (common.Address{}) {
		return errors.New("config: Deployer cannot be zero")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return c.PairParams.Validate()
}

type pairKey struct {
	token0, token1 common.Address
	stable         bool
}

type Factory struct {
	host        *chain.Host
	address     common.Address
	params      pair.Params
	codeHash    common.Hash
	logger      Logger
	metrics     *Metrics
	pairMetrics *pair.Metrics

	governor *chain.Value[common.Address]
	feeTo    *chain.Value[common.Address]
	getPair  *chain.Map[pairKey, common.Address]
	allPairs *chain.Map[int, *pair.Pair]
	isPair   *chain.Map[common.Address, *pair.Pair]

	// snapshot bookkeeping, outside the journal
	graphMu  sync.Mutex
	graph    *routing.System
	graphed  []common.Address
	tokenIDs map[common.Address]uint64
}

// NewFactory deploys the factory at cfg.Address and registers it on the host.
func NewFactory(cfg Config) (*Factory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	j := cfg.Host.Journal()

	f := &Factory{
		host:        cfg.Host,
		address:     cfg.Address,
		params:      cfg.PairParams,
		codeHash:    CodeHash(cfg.PairParams),
		logger:      cfg.Logger,
		metrics:     NewMetrics(cfg.Registry),
		pairMetrics: pair.NewMetrics(cfg.Registry),
		governor:    chain.NewValue(j, cfg.Deployer),
		feeTo:       chain.NewValue(j, common.Address{}),
		getPair:     chain.NewMap[pairKey, common.Address](j),
		allPairs:    chain.NewMap[int, *pair.Pair](j),
		isPair:      chain.NewMap[common.Address, *pair.Pair](j),
		graph:       routing.NewSystem(0),
		tokenIDs:    make(map[common.Address]uint64),
	}
	cfg.Host.Register(cfg.Address, f)
	return f, nil
}

func (f *Factory) Address() common.Address { return f.address }

// PairCodeHash is the template hash PairAddress needs to derive this factory's pairs.
func (f *Factory) PairCodeHash() common.Hash { return f.codeHash }

func (f *Factory) Governor() common.Address { return f.governor.Get() }

// FeeTo is the governor fee recipient; pairs read it on every swap.
func (f *Factory) FeeTo() common.Address { return f.feeTo.Get() }

func (f *Factory) AllPairsLength() int { return f.allPairs.Len() }

// AllPairs returns the address of the i-th deployed pair, or the zero address when out of range.
func (f *Factory) AllPairs(i int) common.Address {
	if p, ok := f.allPairs.Get(i); ok {
		return p.Address()
	}
	return common.Address{}
}

// GetPair returns the pair for the token combination in either order, or the zero address.
func (f *Factory) GetPair(tokenA, tokenB common.Address, stable bool) common.Address {
	addr, _ := f.getPair.Get(pairKey{tokenA, tokenB, stable})
	return addr
}

func (f *Factory) IsPair(addr common.Address) bool {
	_, ok := f.isPair.Get(addr)
	return ok
}

// Pair returns the deployed pair at addr.
func (f *Factory) Pair(addr common.Address) (*pair.Pair, bool) {
	return f.isPair.Get(addr)
}

// CreatePair deploys the (tokenA, tokenB, stable) pair. Argument order does not matter.
func (f *Factory) CreatePair(tokenA, tokenB common.Address, stable bool) (common.Address, error) {
	var created common.Address
	err := f.host.Call(func() error {
		if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
			return ErrZeroAddress
		}
		if tokenA == tokenB {
			return ErrInvalidPair
		}
		token0, token1 := SortTokens(tokenA, tokenB)
		if existing, ok := f.getPair.Get(pairKey{token0, token1, stable}); ok {
			return fmt.Errorf("%w: %s", ErrAlreadyDeployed, existing.Hex())
		}

		t0, err := token.Resolve(f.host, token0)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTokenNotFound, err)
		}
		t1, err := token.Resolve(f.host, token1)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTokenNotFound, err)
		}

		addr := PairAddress(f.address, f.codeHash, token0, token1, stable)
		p, err := pair.New(pair.Config{
			Host:    f.host,
			Address: addr,
			Token0:  t0,
			Token1:  t1,
			Stable:  stable,
			Factory: f,
			Params:  f.params,
			Metrics: f.pairMetrics,
		})
		if err != nil {
			return err
		}

		f.getPair.Set(pairKey{token0, token1, stable}, addr)
		f.getPair.Set(pairKey{token1, token0, stable}, addr)
		f.allPairs.Set(f.allPairs.Len(), p)
		f.isPair.Set(addr, p)

		f.host.Emit(f.address, PairCreatedEvent{
			Token0: token0,
			Token1: token1,
			Stable: stable,
			Pair:   addr,
			Length: uint64(f.allPairs.Len()),
		})
		created = addr
		return nil
	})
	if err != nil {
		return common.Address{}, err
	}

	length := f.allPairs.Len()
	f.host.AfterCommit(func() {
		f.metrics.pairsCreated.WithLabelValues(curveLabel(stable)).Inc()
		f.logger.Info("pair created",
			"pair", created.Hex(),
			"tokenA", tokenA.Hex(),
			"tokenB", tokenB.Hex(),
			"stable", stable,
			"length", length,
		)
	})
	return created, nil
}

// SetFeeTo changes the governor fee recipient. The zero address turns the governor share off.
func (f *Factory) SetFeeTo(sender, feeTo common.Address) error {
	old := f.feeTo.Get()
	if sender != f.governor.Get() {
		return ErrUnauthorized
	}
	f.feeTo.Set(feeTo)
	f.host.Emit(f.address, NewTreasuryEvent{OldTreasury: old, NewTreasury: feeTo})
	f.host.AfterCommit(func() {
		f.logger.Info("fee recipient changed", "old", old.Hex(), "new", feeTo.Hex())
	})
	return nil
}

// SetGovernor hands governance to a new, non-zero address.
func (f *Factory) SetGovernor(sender, governor common.Address) error {
	old := f.governor.Get()
	if sender != old || governor == (common.Address{}) {
		return ErrUnauthorized
	}
	f.governor.Set(governor)
	f.host.Emit(f.address, NewGovernorEvent{OldGovernor: old, NewGovernor: governor})
	f.host.AfterCommit(func() {
		f.logger.Info("governor changed", "old", old.Hex(), "new", governor.Hex())
	})
	return nil
}

func curveLabel(stable bool) string {
	if stable {
		return "stable"
	}
	return "volatile"
}
