package pair

import (
	"testing"

	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeesClaimForIsRestrictedToPair(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	fees := p.Fees()
	assert.Equal(t, pairAddr, fees.Pair())

	err := fees.ClaimFor(alice, alice, ether(1), ether(1))
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = fees.ClaimFor(pairAddr, alice, ether(1), new(uint256.Int))
	assert.ErrorIs(t, err, ErrFeeTransferFailed)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)

	require.NoError(t, env.tokenA.Transfer(alice, fees.Address(), ether(3)))
	require.NoError(t, env.tokenB.Transfer(alice, fees.Address(), ether(2)))
	require.NoError(t, fees.ClaimFor(pairAddr, bob, ether(3), ether(2)))
	assert.Equal(t, ether(3), env.tokenA.BalanceOf(bob))
	assert.Equal(t, ether(2), env.tokenB.BalanceOf(bob))
}

func TestClaimFees(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, true, nil, nil)
	env.deposit(t, p, ether(2000), ether(2000))

	for i := 0; i < 10; i++ {
		env.swapExactA(t, p, ether(10))
	}
	for i := 0; i < 10; i++ {
		env.swapExactB(t, p, ether(10))
	}

	require.NoError(t, p.UpdateFeesFor(alice))
	rewards, err := p.GetAccountFeesRewards(alice)
	require.NoError(t, err)

	balance := p.BalanceOf(alice)
	want0, err := fixedpoint.MulDiv(balance, p.Index0(), fixedpoint.Wad(), fixedpoint.RoundDown)
	require.NoError(t, err)
	assert.Equal(t, want0, rewards.Claimable0)
	assert.Equal(t, p.Index0(), p.SupplyIndex0(alice))
	assert.False(t, rewards.Claimable0.IsZero())
	assert.False(t, rewards.Claimable1.IsZero())

	balanceA := env.tokenA.BalanceOf(alice)
	claimed0, claimed1, err := p.ClaimFees(alice)
	require.NoError(t, err)
	assert.Equal(t, rewards.Claimable0, claimed0)
	assert.Equal(t, rewards.Claimable1, claimed1)
	assert.Equal(t, new(uint256.Int).Add(balanceA, claimed0), env.tokenA.BalanceOf(alice))
	assert.Equal(t, 1, countEvents(env.host, pairAddr, "Claim"))

	after, err := p.GetAccountFeesRewards(alice)
	require.NoError(t, err)
	assert.True(t, after.Claimable0.IsZero())
	assert.True(t, after.Claimable1.IsZero())

	claimed0, claimed1, err = p.ClaimFees(alice)
	require.NoError(t, err)
	assert.True(t, claimed0.IsZero())
	assert.True(t, claimed1.IsZero())
	assert.Equal(t, 1, countEvents(env.host, pairAddr, "Claim"), "empty claims emit nothing")
}

func TestPendingFeesIncludeUnsettledAccruals(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	env.deposit(t, p, ether(1000), ether(500))
	env.swapExactA(t, p, ether(50))

	rewards, err := p.GetAccountFeesRewards(alice)
	require.NoError(t, err)
	assert.True(t, p.Claimable0(alice).IsZero(), "nothing settled yet")
	want, err := fixedpoint.MulDiv(p.BalanceOf(alice), p.Index0(), fixedpoint.Wad(), fixedpoint.RoundDown)
	require.NoError(t, err)
	assert.Equal(t, want, rewards.Claimable0)
}

func TestFeesSettleOnTransfer(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	liquidity := env.deposit(t, p, ether(1000), ether(500))
	env.swapExactA(t, p, ether(20))
	env.swapExactB(t, p, ether(20))

	index0, index1 := p.Index0(), p.Index1()
	half := new(uint256.Int).Div(liquidity, uint256.NewInt(2))
	require.NoError(t, p.Transfer(alice, bob, half))

	want0, err := fixedpoint.MulDiv(liquidity, index0, fixedpoint.Wad(), fixedpoint.RoundDown)
	require.NoError(t, err)
	want1, err := fixedpoint.MulDiv(liquidity, index1, fixedpoint.Wad(), fixedpoint.RoundDown)
	require.NoError(t, err)
	assert.Equal(t, want0, p.Claimable0(alice))
	assert.Equal(t, want1, p.Claimable1(alice))
	assert.Equal(t, index0, p.SupplyIndex0(bob))
	assert.True(t, p.Claimable0(bob).IsZero(), "bob earns nothing for fees accrued before he held shares")

	env.swapExactA(t, p, ether(20))
	bobRewards, err := p.GetAccountFeesRewards(bob)
	require.NoError(t, err)
	bobWant, err := fixedpoint.MulDiv(half, new(uint256.Int).Sub(p.Index0(), index0), fixedpoint.Wad(), fixedpoint.RoundDown)
	require.NoError(t, err)
	assert.Equal(t, bobWant, bobRewards.Claimable0)
}

func TestFeesSettleOnMint(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPair(t, false, nil, nil)
	liquidity := env.deposit(t, p, ether(1000), ether(500))
	env.swapExactA(t, p, ether(30))

	index0 := p.Index0()
	require.NoError(t, env.tokenA.Transfer(alice, pairAddr, ether(100)))
	require.NoError(t, env.tokenB.Transfer(alice, pairAddr, ether(100)))
	_, err := p.Mint(alice, bob)
	require.NoError(t, err)
	env.deposit(t, p, ether(100), ether(100))

	want, err := fixedpoint.MulDiv(liquidity, index0, fixedpoint.Wad(), fixedpoint.RoundDown)
	require.NoError(t, err)
	assert.Equal(t, want, p.Claimable0(alice), "alice's accruals are settled before her balance grows")
	assert.True(t, p.Claimable0(bob).IsZero())
	assert.Equal(t, index0, p.SupplyIndex0(bob))
}
