// Package pair implements a two-token liquidity pool with either a constant-product or a
// stable-swap invariant. A pair keeps its own LP-share ledger, accrues swap fees into a
// per-share index, and records cumulative reserves into a ring buffer for TWAP pricing.
//
// Pairs are deployed by the factory. Every state-changing entry point runs inside a host
// call, so a failed operation leaves no partial writes behind.
package pair

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/defistate/defistate-amm-go/curve"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	// MinimumLiquidity is locked in the zero address by the first mint.
	MinimumLiquidity uint64 = 1000
	// ObservationCapacity is the number of slots in the oracle ring buffer.
	ObservationCapacity = 12
	// Window is the TWAP lookback in seconds.
	Window uint64 = 86400
	// PeriodSize is the minimum spacing between two observations.
	PeriodSize = Window / ObservationCapacity
	// Decimals of the LP share, independent of the underlying tokens.
	Decimals uint8 = 18

	maxTokenDecimals = 77
)

// FeeToProvider reports where the governor's share of swap fees goes.
// The zero address turns the governor share off.
type FeeToProvider interface {
	FeeTo() common.Address
}

// Params are the fee settings a pair is deployed with. Fees are 1e18 fractions.
type Params struct {
	VolatileFee      *uint256.Int
	StableFee        *uint256.Int
	GovernorFeeShare *uint256.Int
}

// DefaultParams returns 0.3% for volatile pairs, 0.05% for stable pairs and a 15% governor share.
func DefaultParams() Params {
	return Params{
		VolatileFee:      uint256.NewInt(3_000_000_000_000_000),
		StableFee:        uint256.NewInt(500_000_000_000_000),
		GovernorFeeShare: uint256.NewInt(150_000_000_000_000_000),
	}
}

// Validate rejects missing or out-of-range fee settings.
func (p Params) Validate() error {
	if p.VolatileFee == nil || p.StableFee == nil || p.GovernorFeeShare == nil {
		return errors.New("params: fees cannot be nil")
	}
	wad := fixedpoint.Wad()
	if !p.VolatileFee.Lt(wad) || !p.StableFee.Lt(wad) {
		return errors.New("params: swap fee must be below 1e18")
	}
	if p.GovernorFeeShare.Gt(wad) {
		return errors.New("params: governor share cannot exceed 1e18")
	}
	return nil
}

// Config holds everything needed to deploy a pair.
type Config struct {
	Host    *chain.Host
	Address common.Address
	// Token0 must sort strictly below Token1.
	Token0  token.Token
	Token1  token.Token
	Stable  bool
	Factory FeeToProvider
	Params  Params
	Metrics *Metrics
}

func (c *Config) validate() error {
	if c.Host == nil {
		return errors.New("config: Host cannot be nil")
	}
	if c.Address == (common.Address{}) {
		return errors.New("config: Address cannot be zero")
	}
	if c.Token0 == nil || c.Token1 == nil {
		return errors.New("config: tokens cannot be nil")
	}
	if c.Token0.Address().Cmp(c.Token1.Address()) >= 0 {
		return errors.New("config: Token0 must sort below Token1")
	}
	if c.Token0.Decimals() > maxTokenDecimals || c.Token1.Decimals() > maxTokenDecimals {
		return fmt.Errorf("config: token decimals cannot exceed %d", maxTokenDecimals)
	}
	return c.Params.Validate()
}

// Observation is one oracle checkpoint.
type Observation struct {
	Timestamp          uint64
	Reserve0Cumulative *uint256.Int
	Reserve1Cumulative *uint256.Int
}

// Metadata summarizes a pair for quoting.
type Metadata struct {
	Token0    common.Address
	Token1    common.Address
	Stable    bool
	Fee       *uint256.Int
	Reserve0  *uint256.Int
	Reserve1  *uint256.Int
	Decimals0 *uint256.Int // 10^decimals of token0
	Decimals1 *uint256.Int
}

type allowanceKey struct {
	owner, spender common.Address
}

type Pair struct {
	host    *chain.Host
	address common.Address
	token0  token.Token
	token1  token.Token
	stable  bool
	factory FeeToProvider
	metrics *Metrics

	swapFee          *uint256.Int
	governorFeeShare *uint256.Int
	scale0           *uint256.Int
	scale1           *uint256.Int
	name             string
	symbol           string
	domainSeparator  common.Hash
	fees             *Fees

	locked bool

	reserve0           *chain.Value[*uint256.Int]
	reserve1           *chain.Value[*uint256.Int]
	blockTimestampLast *chain.Value[uint64]
	reserve0Cumulative *chain.Value[*uint256.Int]
	reserve1Cumulative *chain.Value[*uint256.Int]
	observations       [ObservationCapacity]*chain.Value[Observation]

	totalSupply *chain.Value[*uint256.Int]
	balances    *chain.Map[common.Address, *uint256.Int]
	allowances  *chain.Map[allowanceKey, *uint256.Int]
	nonces      *chain.Map[common.Address, uint64]

	index0       *chain.Value[*uint256.Int]
	index1       *chain.Value[*uint256.Int]
	supplyIndex0 *chain.Map[common.Address, *uint256.Int]
	supplyIndex1 *chain.Map[common.Address, *uint256.Int]
	claimable0   *chain.Map[common.Address, *uint256.Int]
	claimable1   *chain.Map[common.Address, *uint256.Int]
}

// New deploys a pair at cfg.Address together with its fee vault and registers both on the host.
func New(cfg Config) (*Pair, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	j := cfg.Host.Journal()

	p := &Pair{
		host:               cfg.Host,
		address:            cfg.Address,
		token0:             cfg.Token0,
		token1:             cfg.Token1,
		stable:             cfg.Stable,
		factory:            cfg.Factory,
		metrics:            cfg.Metrics,
		governorFeeShare:   new(uint256.Int).Set(cfg.Params.GovernorFeeShare),
		scale0:             fixedpoint.Pow10(cfg.Token0.Decimals()),
		scale1:             fixedpoint.Pow10(cfg.Token1.Decimals()),
		reserve0:           chain.NewValue(j, new(uint256.Int)),
		reserve1:           chain.NewValue(j, new(uint256.Int)),
		blockTimestampLast: chain.NewValue[uint64](j, 0),
		reserve0Cumulative: chain.NewValue(j, new(uint256.Int)),
		reserve1Cumulative: chain.NewValue(j, new(uint256.Int)),
		totalSupply:        chain.NewValue(j, new(uint256.Int)),
		balances:           chain.NewMap[common.Address, *uint256.Int](j),
		allowances:         chain.NewMap[allowanceKey, *uint256.Int](j),
		nonces:             chain.NewMap[common.Address, uint64](j),
		index0:             chain.NewValue(j, new(uint256.Int)),
		index1:             chain.NewValue(j, new(uint256.Int)),
		supplyIndex0:       chain.NewMap[common.Address, *uint256.Int](j),
		supplyIndex1:       chain.NewMap[common.Address, *uint256.Int](j),
		claimable0:         chain.NewMap[common.Address, *uint256.Int](j),
		claimable1:         chain.NewMap[common.Address, *uint256.Int](j),
	}
	for i := range p.observations {
		p.observations[i] = chain.NewValue(j, Observation{
			Reserve0Cumulative: new(uint256.Int),
			Reserve1Cumulative: new(uint256.Int),
		})
	}

	pairSymbols := cfg.Token0.Symbol() + "/" + cfg.Token1.Symbol()
	if cfg.Stable {
		p.swapFee = new(uint256.Int).Set(cfg.Params.StableFee)
		p.name = "Int Stable LP - " + pairSymbols
		p.symbol = "sILP-" + pairSymbols
	} else {
		p.swapFee = new(uint256.Int).Set(cfg.Params.VolatileFee)
		p.name = "Int Volatile LP - " + pairSymbols
		p.symbol = "vILP-" + pairSymbols
	}
	p.domainSeparator = domainSeparator(p.name, cfg.Host.ChainID(), cfg.Address)

	p.fees = newFees(cfg.Host, crypto.CreateAddress(cfg.Address, 1), cfg.Address, cfg.Token0, cfg.Token1)
	cfg.Host.Register(cfg.Address, p)
	return p, nil
}

// guard runs fn under the pair's reentrancy lock inside a nested host call.
func (p *Pair) guard(op string, fn func() error) error {
	if p.locked {
		p.metrics.observe(op, p.curveLabel(), ErrReentrancy)
		return ErrReentrancy
	}
	p.locked = true
	defer func() { p.locked = false }()

	err := p.host.Call(fn)
	if err != nil {
		p.metrics.observe(op, p.curveLabel(), err)
		return err
	}
	p.host.AfterCommit(func() { p.metrics.observe(op, p.curveLabel(), nil) })
	return nil
}

func (p *Pair) curveLabel() string {
	if p.stable {
		return "stable"
	}
	return "volatile"
}

func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Token0() common.Address  { return p.token0.Address() }
func (p *Pair) Token1() common.Address  { return p.token1.Address() }
func (p *Pair) Stable() bool            { return p.stable }
func (p *Pair) Name() string            { return p.name }
func (p *Pair) Symbol() string          { return p.symbol }
func (p *Pair) Decimals() uint8         { return Decimals }

// Tokens returns the pair's tokens in canonical order.
func (p *Pair) Tokens() (common.Address, common.Address) {
	return p.token0.Address(), p.token1.Address()
}

// SwapFee returns the fee charged on swap inputs as a 1e18 fraction.
func (p *Pair) SwapFee() *uint256.Int {
	return new(uint256.Int).Set(p.swapFee)
}

// FeesContract returns the address of the vault holding LP swap fees.
func (p *Pair) FeesContract() common.Address {
	return p.fees.Address()
}

// Fees returns the pair's fee vault.
func (p *Pair) Fees() *Fees {
	return p.fees
}

// GetReserves returns the last synced reserves and the time they were written.
func (p *Pair) GetReserves() (reserve0, reserve1 *uint256.Int, blockTimestampLast uint64) {
	return new(uint256.Int).Set(p.reserve0.Get()), new(uint256.Int).Set(p.reserve1.Get()), p.blockTimestampLast.Get()
}

func (p *Pair) Metadata() Metadata {
	r0, r1, _ := p.GetReserves()
	return Metadata{
		Token0:    p.token0.Address(),
		Token1:    p.token1.Address(),
		Stable:    p.stable,
		Fee:       p.SwapFee(),
		Reserve0:  r0,
		Reserve1:  r1,
		Decimals0: new(uint256.Int).Set(p.scale0),
		Decimals1: new(uint256.Int).Set(p.scale1),
	}
}

// GetAmountOut quotes a swap of amountIn of tokenIn, after the swap fee.
func (p *Pair) GetAmountOut(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	pool, err := p.pool(tokenIn)
	if err != nil {
		return nil, err
	}
	afterFee, _, err := curve.ApplyFee(amountIn, p.swapFee)
	if err != nil {
		return nil, err
	}
	return curve.GetAmountOut(afterFee, pool)
}

func (p *Pair) pool(tokenIn common.Address) (curve.Pool, error) {
	r0, r1, _ := p.GetReserves()
	switch tokenIn {
	case p.token0.Address():
		return curve.Pool{ReserveIn: r0, ReserveOut: r1, ScaleIn: p.scale0, ScaleOut: p.scale1, Stable: p.stable}, nil
	case p.token1.Address():
		return curve.Pool{ReserveIn: r1, ReserveOut: r0, ScaleIn: p.scale1, ScaleOut: p.scale0, Stable: p.stable}, nil
	default:
		return curve.Pool{}, fmt.Errorf("%w: %s", ErrInvalidToken, tokenIn.Hex())
	}
}

func (p *Pair) balances01() (*uint256.Int, *uint256.Int) {
	return p.token0.BalanceOf(p.address), p.token1.BalanceOf(p.address)
}

func (p *Pair) transferOut(t token.Token, to common.Address, amount *uint256.Int) error {
	if err := t.Transfer(p.address, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}
