package pair

import (
	"errors"
	"testing"

	"github.com/defistate/defistate-amm-go/curve"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var calleeAddr = common.HexToAddress("0x000000000000000000000000000000000000f1a5")

// flashBorrower repays `repay` of token1 from its own balance when hooked.
type flashBorrower struct {
	token1 *token.ERC20
	pair   common.Address
	repay  *uint256.Int
	calls  int
}

func (f *flashBorrower) Hook(sender common.Address, amount0Out, amount1Out *uint256.Int, data []byte) error {
	f.calls++
	if f.repay.IsZero() {
		return nil
	}
	return f.token1.Transfer(calleeAddr, f.pair, f.repay)
}

func (e *testEnv) swapExactA(t *testing.T, p *Pair, amountIn *uint256.Int) *uint256.Int {
	t.Helper()
	out, err := p.GetAmountOut(tokenAAddr, amountIn)
	require.NoError(t, err)
	require.NoError(t, e.tokenA.Transfer(alice, p.Address(), amountIn))
	require.NoError(t, p.Swap(alice, new(uint256.Int), out, alice, nil))
	return out
}

func (e *testEnv) swapExactB(t *testing.T, p *Pair, amountIn *uint256.Int) *uint256.Int {
	t.Helper()
	out, err := p.GetAmountOut(tokenBAddr, amountIn)
	require.NoError(t, err)
	require.NoError(t, e.tokenB.Transfer(alice, p.Address(), amountIn))
	require.NoError(t, p.Swap(alice, out, new(uint256.Int), alice, nil))
	return out
}

func TestSwapValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	env.deposit(t, p, ether(1000), ether(500))
	zero := new(uint256.Int)

	err := p.Swap(alice, zero, zero, alice, nil)
	assert.ErrorIs(t, err, ErrNoZeroAmount)

	err = p.Swap(alice, ether(1000), zero, alice, nil)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	err = p.Swap(alice, zero, ether(501), alice, nil)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	err = p.Swap(alice, uint256.NewInt(1), zero, tokenAAddr, nil)
	assert.ErrorIs(t, err, ErrInvalidRecipient)
	err = p.Swap(alice, zero, uint256.NewInt(1), tokenBAddr, nil)
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	err = p.Swap(alice, uint256.NewInt(1), zero, alice, nil)
	assert.ErrorIs(t, err, ErrInsufficientInputAmount)
	assert.Equal(t, ether(1000), env.tokenA.BalanceOf(pairAddr), "failed swap must not move tokens")

	_, err = p.GetAmountOut(common.HexToAddress("0xdead"), ether(1))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSwapVolatile(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	env.deposit(t, p, ether(1000), ether(500))

	quote, err := p.GetAmountOut(tokenAAddr, ether(10))
	require.NoError(t, err)
	afterFee := new(uint256.Int).Sub(ether(10), new(uint256.Int).Div(new(uint256.Int).Mul(ether(10), p.SwapFee()), fixedpoint.Wad()))
	want := new(uint256.Int).Div(new(uint256.Int).Mul(afterFee, ether(500)), new(uint256.Int).Add(ether(1000), afterFee))
	assert.Equal(t, want, quote)

	balanceB := env.tokenB.BalanceOf(alice)
	out := env.swapExactA(t, p, ether(10))
	assert.Equal(t, quote, out)
	assert.Equal(t, new(uint256.Int).Add(balanceB, out), env.tokenB.BalanceOf(alice))

	r0, r1, _ := p.GetReserves()
	assert.Equal(t, new(uint256.Int).Add(ether(1000), afterFee), r0)
	assert.Equal(t, new(uint256.Int).Sub(ether(500), out), r1)
	assert.Equal(t, 1, countEvents(env.host, pairAddr, "Swap"))
}

func TestSwapKErrorRevertsEverything(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	env.deposit(t, p, ether(1000), ether(500))

	balanceA := env.tokenA.BalanceOf(alice)
	balanceB := env.tokenB.BalanceOf(alice)
	r0Before, r1Before, _ := p.GetReserves()
	logsBefore := len(env.host.Logs())

	err := env.host.Execute(func() error {
		out, err := p.GetAmountOut(tokenAAddr, ether(10))
		if err != nil {
			return err
		}
		if err := env.tokenA.Transfer(alice, pairAddr, ether(10)); err != nil {
			return err
		}
		return p.Swap(alice, new(uint256.Int), new(uint256.Int).AddUint64(out, 1), alice, nil)
	})
	require.ErrorIs(t, err, ErrKError)

	assert.Equal(t, balanceA, env.tokenA.BalanceOf(alice))
	assert.Equal(t, balanceB, env.tokenB.BalanceOf(alice))
	assert.True(t, env.tokenA.BalanceOf(p.FeesContract()).IsZero())
	r0, r1, _ := p.GetReserves()
	assert.Equal(t, r0Before, r0)
	assert.Equal(t, r1Before, r1)
	assert.Len(t, env.host.Logs(), logsBefore)
}

func TestSwapInvariantNeverDecreases(t *testing.T) {
	for _, stable := range []bool{false, true} {
		env := newTestEnv(t)
		p := env.newPair(t, stable, nil, nil)
		env.deposit(t, p, ether(2000), ether(1500))

		for i, amount := range []uint64{1, 10, 250, 3, 900} {
			r0, r1, _ := p.GetReserves()
			before, err := curve.K(r0, r1, p.scale0, p.scale1, stable)
			require.NoError(t, err)
			if i%2 == 0 {
				env.swapExactA(t, p, ether(amount))
			} else {
				env.swapExactB(t, p, ether(amount))
			}
			r0, r1, _ = p.GetReserves()
			after, err := curve.K(r0, r1, p.scale0, p.scale1, stable)
			require.NoError(t, err)
			assert.False(t, after.Lt(before), "invariant decreased on swap %d", i)
		}
	}
}

func TestStablePairQuotesAtLeastVolatile(t *testing.T) {
	env := newTestEnv(t)
	volatile := env.newPair(t, false, nil, nil)
	env.deposit(t, volatile, ether(1000), ether(1000))

	stablePair, err := New(Config{
		Host:    env.host,
		Address: common.HexToAddress("0x2000"),
		Token0:  env.tokenA,
		Token1:  env.tokenB,
		Stable:  true,
		Params:  DefaultParams(),
	})
	require.NoError(t, err)
	env.deposit(t, stablePair, ether(1000), ether(1000))

	for _, amount := range []uint64{1, 10, 100} {
		v, err := volatile.GetAmountOut(tokenAAddr, ether(amount))
		require.NoError(t, err)
		s, err := stablePair.GetAmountOut(tokenAAddr, ether(amount))
		require.NoError(t, err)
		assert.False(t, s.Lt(v), "stable quote %s below volatile %s", s.Dec(), v.Dec())
	}

	out := env.swapExactA(t, stablePair, ether(100))
	assert.True(t, out.Gt(ether(99)), "stable curve keeps near-parity trades near 1:1")
}

func TestFlashSwap(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	env.deposit(t, p, ether(1000), ether(500))

	require.NoError(t, env.tokenB.Transfer(alice, calleeAddr, ether(10)))
	borrower := &flashBorrower{token1: env.tokenB, pair: pairAddr, repay: new(uint256.Int).Div(ether(1004), uint256.NewInt(1000))}
	env.host.Register(calleeAddr, borrower)

	require.NoError(t, p.Swap(alice, new(uint256.Int), ether(1), calleeAddr, []byte{0x01}))
	assert.Equal(t, 1, borrower.calls)
	r0, r1, _ := p.GetReserves()
	assert.Equal(t, ether(1000), r0)
	assert.False(t, r1.Lt(ether(500)))

	borrower.repay = new(uint256.Int).Div(ether(1), uint256.NewInt(2))
	err := p.Swap(alice, new(uint256.Int), ether(1), calleeAddr, []byte{0x01})
	assert.ErrorIs(t, err, ErrKError, "partial repayment fails the invariant check")

	borrower.repay = new(uint256.Int)
	err = p.Swap(alice, new(uint256.Int), ether(1), calleeAddr, []byte{0x01})
	assert.ErrorIs(t, err, ErrInsufficientInputAmount)

	err = p.Swap(alice, new(uint256.Int), ether(1), bob, []byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidCallee)
}

func TestSwapFeesWithoutGovernorShare(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, staticFeeTo{}, nil)
	env.deposit(t, p, ether(500), ether(250))
	supply := p.TotalSupply()

	env.swapExactA(t, p, ether(10))
	fee := new(uint256.Int).Div(new(uint256.Int).Mul(ether(10), p.SwapFee()), fixedpoint.Wad())
	assert.Equal(t, fee, env.tokenA.BalanceOf(p.FeesContract()))
	assert.True(t, env.tokenB.BalanceOf(p.FeesContract()).IsZero())
	assert.Equal(t, new(uint256.Int).Div(new(uint256.Int).Mul(fee, fixedpoint.Wad()), supply), p.Index0())
	assert.True(t, p.Index1().IsZero())

	env.swapExactB(t, p, ether(5))
	feeB := new(uint256.Int).Div(new(uint256.Int).Mul(ether(5), p.SwapFee()), fixedpoint.Wad())
	assert.Equal(t, feeB, env.tokenB.BalanceOf(p.FeesContract()))
	assert.True(t, env.tokenA.BalanceOf(treasury).IsZero())
}

func TestSwapFeesWithGovernorShare(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, staticFeeTo(treasury), nil)
	env.deposit(t, p, ether(500), ether(250))

	env.swapExactA(t, p, ether(10))
	fee := new(uint256.Int).Div(new(uint256.Int).Mul(ether(10), p.SwapFee()), fixedpoint.Wad())
	governorFee := new(uint256.Int).Div(new(uint256.Int).Mul(fee, DefaultParams().GovernorFeeShare), fixedpoint.Wad())

	assert.Equal(t, governorFee, env.tokenA.BalanceOf(treasury))
	assert.Equal(t, new(uint256.Int).Sub(fee, governorFee), env.tokenA.BalanceOf(p.FeesContract()))
	assert.Equal(t, "4500000000000000", governorFee.Dec())
}

// reentrantToken calls back into the pair from its balance and transfer hooks.
type reentrantToken struct {
	*token.ERC20
	pair       *Pair
	onBalance  func() error
	onTransfer func() error
	reentryErr error
}

func (r *reentrantToken) BalanceOf(account common.Address) *uint256.Int {
	if hook := r.onBalance; hook != nil {
		r.onBalance = nil
		r.reentryErr = hook()
	}
	return r.ERC20.BalanceOf(account)
}

func (r *reentrantToken) Transfer(sender, to common.Address, amount *uint256.Int) error {
	if hook := r.onTransfer; hook != nil {
		r.onTransfer = nil
		if err := hook(); err != nil {
			return err
		}
	}
	return r.ERC20.Transfer(sender, to, amount)
}

func TestReentrancyGuard(t *testing.T) {
	env := newTestEnv(t)
	broken := &reentrantToken{ERC20: token.NewERC20(env.host, common.HexToAddress("0xc0"), "Broken", "BRK", 18)}
	require.NoError(t, broken.Mint(alice, ether(1000)))

	p, err := New(Config{Host: env.host, Address: pairAddr, Token0: env.tokenB, Token1: broken, Params: DefaultParams()})
	require.NoError(t, err)
	broken.pair = p

	require.NoError(t, env.tokenB.Transfer(alice, pairAddr, ether(10)))
	require.NoError(t, broken.Transfer(alice, pairAddr, ether(10)))

	broken.onBalance = func() error {
		_, err := p.Mint(alice, alice)
		return err
	}
	_, err = p.Mint(alice, alice)
	require.NoError(t, err)
	assert.ErrorIs(t, broken.reentryErr, ErrReentrancy)

	require.NoError(t, p.Transfer(alice, pairAddr, ether(1)))
	broken.onTransfer = func() error {
		_, _, err := p.Burn(alice, alice)
		return err
	}
	_, _, err = p.Burn(alice, alice)
	assert.ErrorIs(t, err, ErrReentrancy)
	assert.ErrorIs(t, err, ErrTransferFailed)

	require.NoError(t, broken.Transfer(alice, pairAddr, ether(1)))
	broken.onTransfer = func() error { return p.Skim(alice, alice) }
	err = p.Skim(alice, alice)
	assert.ErrorIs(t, err, ErrReentrancy)

	broken.onTransfer = func() error { return p.Sync(alice) }
	err = p.Skim(alice, alice)
	assert.True(t, errors.Is(err, ErrReentrancy))
	assert.False(t, p.locked, "lock is released after a failed call")
}
