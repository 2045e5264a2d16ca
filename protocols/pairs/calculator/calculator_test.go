package calculator

import (
	"math/big"
	"testing"

	"github.com/defistate/defistate-amm-go/curve"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func testPair(stable bool) pairs.Pair {
	fee := big.NewInt(3_000_000_000_000_000)
	if stable {
		fee = big.NewInt(500_000_000_000_000)
	}
	return pairs.Pair{
		ID:        4,
		Token0:    10,
		Token1:    11,
		Decimals0: 18,
		Decimals1: 6,
		Stable:    stable,
		Fee:       fee,
		Reserve0:  ether(1000),
		Reserve1:  big.NewInt(1_000_000_000), // 1000 units at 6 decimals
	}
}

func TestGetAmountOutMatchesCurve(t *testing.T) {
	for _, stable := range []bool{false, true} {
		pair := testPair(stable)
		amountIn := ether(10)

		got, err := GetAmountOut(amountIn, 10, 11, pair)
		require.NoError(t, err)

		in, _ := uint256.FromBig(amountIn)
		fee, _ := uint256.FromBig(pair.Fee)
		afterFee, _, err := curve.ApplyFee(in, fee)
		require.NoError(t, err)
		r0, _ := uint256.FromBig(pair.Reserve0)
		r1, _ := uint256.FromBig(pair.Reserve1)
		want, err := curve.GetAmountOut(afterFee, curve.Pool{
			ReserveIn: r0, ReserveOut: r1,
			ScaleIn: fixedpoint.Pow10(18), ScaleOut: fixedpoint.Pow10(6),
			Stable: stable,
		})
		require.NoError(t, err)
		assert.Equal(t, want.ToBig(), got)
		assert.Positive(t, got.Sign())
	}
}

func TestGetAmountOutReverseDirection(t *testing.T) {
	pair := testPair(false)
	out, err := GetAmountOut(big.NewInt(10_000_000), 11, 10, pair)
	require.NoError(t, err)
	assert.True(t, out.Cmp(ether(10)) < 0, "fee and slippage keep the output under par")
	assert.True(t, out.Cmp(ether(9)) > 0)
}

func TestGetAmountOutErrors(t *testing.T) {
	pair := testPair(false)

	_, err := GetAmountOut(nil, 10, 11, pair)
	assert.ErrorIs(t, err, ErrNilAmount)

	_, err = GetAmountOut(big.NewInt(-1), 10, 11, pair)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = GetAmountOut(new(big.Int).Lsh(big.NewInt(1), 256), 10, 11, pair)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = GetAmountOut(ether(1), 10, 12, pair)
	assert.ErrorIs(t, err, ErrTokenMismatch)

	broken := testPair(false)
	broken.Fee = nil
	_, err = GetAmountOut(ether(1), 10, 11, broken)
	assert.ErrorIs(t, err, ErrInvalidState)

	broken = testPair(false)
	broken.Decimals1 = 200
	_, err = GetAmountOut(ether(1), 10, 11, broken)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGetAmountOutEmptyPair(t *testing.T) {
	pair := testPair(false)
	pair.Reserve0 = big.NewInt(0)
	out, err := GetAmountOut(ether(1), 10, 11, pair)
	require.NoError(t, err)
	assert.Zero(t, out.Sign())
}
