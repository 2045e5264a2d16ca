// Package sim deploys a scenario onto an in-memory chain and runs its steps as transactions.
package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/defistate/defistate-amm-go/cmd/ammsim/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/factory"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/pair"
	"github.com/defistate/defistate-amm-go/router"
	"github.com/defistate/defistate-amm-go/stateops"
	"github.com/defistate/defistate-amm-go/stream"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultWrappedName   = "Wrapped Native"
	defaultWrappedSymbol = "WNATIVE"

	// logBuffer holds the committed batches of one step; a step commits at most one.
	logBuffer = 16
)

var ErrUnknownName = errors.New("sim: unknown name")

// World is a fully deployed exchange plus the scenario's tokens and accounts.
type World struct {
	host    *chain.Host
	clock   *chain.ManualClock
	factory *factory.Factory
	router  *router.Router
	wnative *token.WrappedNative

	tokens   map[string]*token.ERC20
	symbols  map[common.Address]string
	accounts map[string]common.Address

	scenario *config.Scenario
	ops      *stateops.StateOps
	last     *engine.State
	genesis  stream.Event
	follower *stream.Processor
	events   *json.Encoder
	logs     chan []chain.Log
	logSub   event.Subscription
	diffs    bool
	logger   *slog.Logger
}

// NewWorld deploys the factory, router and wrapped native token from the deployer's first
// nonces, creates the scenario tokens and applies the genesis balances.
func NewWorld(cfg *config.SimConfig, sc *config.Scenario, logger *slog.Logger, reg prometheus.Registerer) (*World, error) {
	clock := chain.NewManualClock(cfg.StartTimestamp)
	host, err := chain.NewHost(chain.Config{
		ChainID: cfg.ChainID,
		Clock:   clock,
		Logger:  logger.With("component", "host"),
	})
	if err != nil {
		return nil, err
	}

	params, err := pairParams(cfg.Fees)
	if err != nil {
		return nil, err
	}
	deployer := cfg.DeployerAddress()
	f, err := factory.NewFactory(factory.Config{
		Host:       host,
		Address:    crypto.CreateAddress(deployer, 0),
		Deployer:   deployer,
		PairParams: params,
		Registry:   reg,
		Logger:     logger.With("component", "factory"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy factory: %w", err)
	}

	wrapped := sc.WrappedNative
	wnativeAddr := crypto.CreateAddress(deployer, 2)
	if wrapped.Address != "" {
		wnativeAddr = common.HexToAddress(wrapped.Address)
	}
	if wrapped.Name == "" {
		wrapped.Name = defaultWrappedName
	}
	if wrapped.Symbol == "" {
		wrapped.Symbol = defaultWrappedSymbol
	}
	wnative := token.NewWrappedNative(host, wnativeAddr, wrapped.Name, wrapped.Symbol)

	r, err := router.NewRouter(router.Config{
		Host:          host,
		Address:       crypto.CreateAddress(deployer, 1),
		Factory:       f,
		WrappedNative: wnative,
		Registry:      reg,
		Logger:        logger.With("component", "router"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy router: %w", err)
	}

	ops, err := stateops.NewStateOps(logger.With("component", "stateops"), reg)
	if err != nil {
		return nil, err
	}

	w := &World{
		host:     host,
		clock:    clock,
		factory:  f,
		router:   r,
		wnative:  wnative,
		tokens:   make(map[string]*token.ERC20, len(sc.Tokens)),
		symbols:  map[common.Address]string{wnativeAddr: config.NativeSymbol},
		accounts: make(map[string]common.Address, len(sc.Accounts)),
		scenario: sc,
		ops:      ops,
		diffs:    cfg.PrintDiffs,
		logger:   logger,
	}
	for _, t := range sc.Tokens {
		addr := common.HexToAddress(t.Address)
		name := t.Name
		if name == "" {
			name = t.Symbol
		}
		w.tokens[t.Symbol] = token.NewERC20(host, addr, name, t.Symbol, t.Decimals)
		w.symbols[addr] = t.Symbol
	}
	for _, a := range sc.Accounts {
		w.accounts[a.Name] = common.HexToAddress(a.Address)
	}

	if err := host.Execute(func() error { return w.genesisMint(cfg) }); err != nil {
		return nil, fmt.Errorf("genesis failed: %w", err)
	}
	if err := w.startStream(logger); err != nil {
		return nil, err
	}
	w.logs = make(chan []chain.Log, logBuffer)
	w.logSub = host.SubscribeLogs(w.logs)
	logger.Info("world deployed",
		"factory", f.Address().Hex(),
		"router", r.Address().Hex(),
		"wrappedNative", wnativeAddr.Hex(),
		"tokens", len(sc.Tokens),
		"accounts", len(sc.Accounts),
	)
	return w, nil
}

// startStream seeds the replica follower with the genesis snapshot.
func (w *World) startStream(logger *slog.Logger) error {
	follower, err := stream.NewProcessor(stream.Config{
		Logger:       logger.With("component", "stream"),
		StatePatcher: w.ops.Patch,
		StateDecoder: w.ops.DecodeState,
		DiffDecoder:  w.ops.DecodeStateDiff,
	})
	if err != nil {
		return err
	}
	w.follower = follower
	w.last = w.factory.Snapshot()
	event, err := stream.NewFullEvent(w.last)
	if err != nil {
		return err
	}
	w.genesis = event
	return w.publish(event)
}

// Close stops following the host's contract logs.
func (w *World) Close() {
	w.logSub.Unsubscribe()
}

// RecordEvents writes the genesis event to out, then every diff event produced by Run.
func (w *World) RecordEvents(out io.Writer) error {
	w.events = json.NewEncoder(out)
	if err := w.events.Encode(w.genesis); err != nil {
		return fmt.Errorf("failed to write genesis event: %w", err)
	}
	return nil
}

// publish feeds an event through the follower and appends it to the event log.
func (w *World) publish(event stream.Event) error {
	if err := w.follower.Process(event); err != nil {
		return err
	}
	if w.events != nil {
		if err := w.events.Encode(event); err != nil {
			return fmt.Errorf("failed to write %s event: %w", event.Type, err)
		}
	}
	return nil
}

func (w *World) genesisMint(cfg *config.SimConfig) error {
	if feeTo := cfg.FeeToAddress(); feeTo != (common.Address{}) {
		if err := w.factory.SetFeeTo(cfg.DeployerAddress(), feeTo); err != nil {
			return err
		}
	}
	for _, a := range w.scenario.Accounts {
		addr := w.accounts[a.Name]
		if a.Native != "" {
			native, err := config.ParseAmount(a.Native, 18)
			if err != nil {
				return err
			}
			w.host.MintNative(addr, native)
		}
		for symbol, amount := range a.Balances {
			tk := w.tokens[symbol]
			v, err := config.ParseAmount(amount, tk.Decimals())
			if err != nil {
				return err
			}
			if err := tk.Mint(addr, v); err != nil {
				return err
			}
		}
		for _, tk := range w.tokens {
			if err := tk.Approve(addr, w.router.Address(), fixedpoint.MaxUint256()); err != nil {
				return err
			}
		}
		if err := w.wnative.Approve(addr, w.router.Address(), fixedpoint.MaxUint256()); err != nil {
			return err
		}
	}
	return nil
}

func pairParams(fees config.FeeConfig) (pair.Params, error) {
	params := pair.DefaultParams()
	for _, f := range []struct {
		raw string
		dst **uint256.Int
	}{
		{fees.VolatileFee, &params.VolatileFee},
		{fees.StableFee, &params.StableFee},
		{fees.GovernorFeeShare, &params.GovernorFeeShare},
	} {
		if f.raw == "" {
			continue
		}
		v, err := config.ParseAmount(f.raw, 0)
		if err != nil {
			return pair.Params{}, err
		}
		*f.dst = v
	}
	return params, params.Validate()
}

func (w *World) Host() *chain.Host         { return w.host }
func (w *World) Factory() *factory.Factory { return w.factory }
func (w *World) Router() *router.Router    { return w.router }
func (w *World) Replica() *engine.State    { return w.follower.Latest() }

// Account resolves a scenario account name.
func (w *World) Account(name string) (common.Address, error) {
	addr, ok := w.accounts[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: account %q", ErrUnknownName, name)
	}
	return addr, nil
}

// TokenAddress resolves a token symbol, NATIVE naming the wrapped native token.
func (w *World) TokenAddress(symbol string) (common.Address, error) {
	if symbol == config.NativeSymbol {
		return w.wnative.Address(), nil
	}
	tk, ok := w.tokens[symbol]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: token %q", ErrUnknownName, symbol)
	}
	return tk.Address(), nil
}

// Balance returns the token balance of an account by symbol.
func (w *World) Balance(symbol string, account common.Address) *uint256.Int {
	if symbol == config.NativeSymbol {
		return w.wnative.BalanceOf(account)
	}
	if tk, ok := w.tokens[symbol]; ok {
		return tk.BalanceOf(account)
	}
	return new(uint256.Int)
}

func (w *World) decimals(symbol string) uint8 {
	d, _ := w.scenario.Decimals(symbol)
	return d
}

func (w *World) amount(symbol, raw string) (*uint256.Int, error) {
	return config.ParseAmount(raw, w.decimals(symbol))
}

func (w *World) format(symbol string, v *uint256.Int) string {
	return config.FormatAmount(v, w.decimals(symbol))
}

func (w *World) pair(symbolA, symbolB string, stable bool) (*pair.Pair, error) {
	a, err := w.TokenAddress(symbolA)
	if err != nil {
		return nil, err
	}
	b, err := w.TokenAddress(symbolB)
	if err != nil {
		return nil, err
	}
	p, ok := w.factory.Pair(w.factory.GetPair(a, b, stable))
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s stable=%t", router.ErrPairNotFound, symbolA, symbolB, stable)
	}
	return p, nil
}
