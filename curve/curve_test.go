package curve

import (
	"testing"

	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ether(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), fixedpoint.Pow10(18))
}

func units(v uint64, decimals uint8) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), fixedpoint.Pow10(decimals))
}

func TestApplyFee(t *testing.T) {
	afterFee, fee, err := ApplyFee(ether(10), uint256.NewInt(3_000_000_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, "30000000000000000", fee.Dec())
	assert.Equal(t, "9970000000000000000", afterFee.Dec())

	_, _, err = ApplyFee(nil, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrNilAmount)
}

func TestGetAmountOutVolatile(t *testing.T) {
	pool := Pool{
		ReserveIn:  uint256.NewInt(1000),
		ReserveOut: uint256.NewInt(800),
		ScaleIn:    fixedpoint.Pow10(18),
		ScaleOut:   fixedpoint.Pow10(18),
	}
	out, err := GetAmountOut(uint256.NewInt(10), pool)
	require.NoError(t, err)
	// 10 * 800 / 1010
	assert.Equal(t, uint64(7), out.Uint64())

	out, err = GetAmountOut(uint256.NewInt(0), pool)
	require.NoError(t, err)
	assert.True(t, out.IsZero())

	_, err = GetAmountOut(nil, pool)
	assert.ErrorIs(t, err, ErrNilAmount)
}

func TestGetAmountOutStableExtremes(t *testing.T) {
	pool := Pool{
		ReserveIn:  ether(1000),
		ReserveOut: ether(800),
		ScaleIn:    fixedpoint.Pow10(18),
		ScaleOut:   fixedpoint.Pow10(18),
		Stable:     true,
	}
	testCases := []struct {
		name     string
		amountIn *uint256.Int
	}{
		{"zero", uint256.NewInt(0)},
		{"dust", uint256.NewInt(10)},
		{"most of the pool", ether(990)},
		{"far beyond the pool", ether(100_000)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := GetAmountOut(tc.amountIn, pool)
			require.NoError(t, err)
			assert.True(t, out.Lt(pool.ReserveOut), "output must stay below the reserve")
		})
	}
}

func TestGetAmountOutEmptyPool(t *testing.T) {
	for _, stable := range []bool{false, true} {
		out, err := GetAmountOut(ether(1), Pool{
			ReserveIn:  uint256.NewInt(0),
			ReserveOut: ether(1),
			ScaleIn:    fixedpoint.Pow10(18),
			ScaleOut:   fixedpoint.Pow10(18),
			Stable:     stable,
		})
		require.NoError(t, err)
		assert.True(t, out.IsZero())
	}
}

func TestStableBeatsVolatileNearParity(t *testing.T) {
	testCases := []struct {
		name      string
		decIn     uint8
		decOut    uint8
		amountIn  *uint256.Int
		reserveIn uint64
	}{
		{"18 to 18", 18, 18, ether(10), 1000},
		{"18 to 6", 18, 6, ether(10), 1000},
		{"6 to 18", 6, 18, units(10, 6), 1000},
		{"small trade", 18, 18, uint256.NewInt(1_000_000_000), 1_000_000},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			base := Pool{
				ReserveIn:  units(tc.reserveIn, tc.decIn),
				ReserveOut: units(tc.reserveIn, tc.decOut),
				ScaleIn:    fixedpoint.Pow10(tc.decIn),
				ScaleOut:   fixedpoint.Pow10(tc.decOut),
			}
			volatileOut, err := GetAmountOut(tc.amountIn, base)
			require.NoError(t, err)

			base.Stable = true
			stableOut, err := GetAmountOut(tc.amountIn, base)
			require.NoError(t, err)

			assert.True(t, !stableOut.Lt(volatileOut), "stable %s < volatile %s", stableOut.Dec(), volatileOut.Dec())
		})
	}
}

func TestInvariantNeverDecreases(t *testing.T) {
	amounts := []*uint256.Int{
		uint256.NewInt(1),
		uint256.NewInt(12345),
		ether(1),
		ether(10),
		ether(500),
		ether(10_000),
	}
	pools := []struct {
		name       string
		reserveIn  *uint256.Int
		reserveOut *uint256.Int
		decIn      uint8
		decOut     uint8
	}{
		{"balanced 18/18", ether(1000), ether(1000), 18, 18},
		{"skewed 18/18", ether(1000), ether(800), 18, 18},
		{"mixed decimals", ether(1000), units(1000, 6), 18, 6},
	}
	for _, p := range pools {
		for _, stable := range []bool{false, true} {
			for _, amountIn := range amounts {
				scaleIn, scaleOut := fixedpoint.Pow10(p.decIn), fixedpoint.Pow10(p.decOut)
				pool := Pool{ReserveIn: p.reserveIn, ReserveOut: p.reserveOut, ScaleIn: scaleIn, ScaleOut: scaleOut, Stable: stable}

				out, err := GetAmountOut(amountIn, pool)
				require.NoError(t, err)

				before, err := K(p.reserveIn, p.reserveOut, scaleIn, scaleOut, stable)
				require.NoError(t, err)
				after, err := K(
					new(uint256.Int).Add(p.reserveIn, amountIn),
					new(uint256.Int).Sub(p.reserveOut, out),
					scaleIn, scaleOut, stable,
				)
				require.NoError(t, err)
				assert.False(t, after.Lt(before), "%s stable=%v in=%s: k decreased", p.name, stable, amountIn.Dec())
			}
		}
	}
}

func TestKIsSymmetric(t *testing.T) {
	scale := fixedpoint.Pow10(18)
	a, err := K(ether(3), ether(7), scale, scale, true)
	require.NoError(t, err)
	b, err := K(ether(7), ether(3), scale, scale, true)
	require.NoError(t, err)
	assert.True(t, a.Eq(b))

	_, err = K(nil, ether(1), scale, scale, false)
	assert.ErrorIs(t, err, ErrNilReserve)
}
