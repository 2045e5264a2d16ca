package routing

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rateQuoter converts token0 -> token1 at rate and back at 1/rate.
func rateQuoter(token0 uint64, rate int64) GetAmountOutFunc {
	return func(amountIn *big.Int, tokenIn, _ uint64) (*big.Int, error) {
		if tokenIn == token0 {
			return new(big.Int).Mul(amountIn, big.NewInt(rate)), nil
		}
		return new(big.Int).Div(amountIn, big.NewInt(rate)), nil
	}
}

func buildGraph(t *testing.T) *Graph {
	t.Helper()
	s := NewSystem(0)
	s.AddPairs(
		[]uint64{0, 1, 2, 3, 4},
		[][2]uint64{{1, 2}, {2, 3}, {1, 3}, {1, 2}, {3, 4}},
	)
	return NewGraph(s.View(), map[uint64]GetAmountOutFunc{
		0: rateQuoter(1, 2),
		1: rateQuoter(2, 3),
		2: rateQuoter(1, 5),
		3: rateQuoter(1, 1),
		4: func(*big.Int, uint64, uint64) (*big.Int, error) { return nil, errors.New("paused") },
	})
}

func TestFindBestSwapPath(t *testing.T) {
	g := buildGraph(t)

	t.Run("two hops beat the direct pair", func(t *testing.T) {
		path, out, err := g.FindBestSwapPath(1, 3, big.NewInt(100), 3)
		require.NoError(t, err)
		assert.Equal(t, []Hop{
			{TokenInID: 1, TokenOutID: 2, PairID: 0},
			{TokenInID: 2, TokenOutID: 3, PairID: 1},
		}, path)
		assert.Equal(t, big.NewInt(600), out)
	})

	t.Run("hop limit restricts the search", func(t *testing.T) {
		path, out, err := g.FindBestSwapPath(1, 3, big.NewInt(100), 1)
		require.NoError(t, err)
		assert.Equal(t, []Hop{{TokenInID: 1, TokenOutID: 3, PairID: 2}}, path)
		assert.Equal(t, big.NewInt(500), out)
	})

	t.Run("best pair on a shared edge wins", func(t *testing.T) {
		path, _, err := g.FindBestSwapPath(1, 2, big.NewInt(100), 1)
		require.NoError(t, err)
		require.Len(t, path, 1)
		assert.Equal(t, uint64(0), path[0].PairID)
	})

	t.Run("failing quoters are skipped", func(t *testing.T) {
		path, out, err := g.FindBestSwapPath(1, 4, big.NewInt(100), 4)
		require.NoError(t, err)
		assert.Nil(t, path)
		assert.Nil(t, out)
	})

	t.Run("reverse direction", func(t *testing.T) {
		path, out, err := g.FindBestSwapPath(3, 1, big.NewInt(600), 3)
		require.NoError(t, err)
		require.NotEmpty(t, path)
		assert.Equal(t, big.NewInt(120), out, "600/5 direct beats 600/3/2")
		assert.Equal(t, uint64(2), path[0].PairID)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		_, _, err := g.FindBestSwapPath(1, 99, big.NewInt(1), 3)
		assert.ErrorIs(t, err, ErrUnknownToken)
		_, _, err = g.FindBestSwapPath(99, 1, big.NewInt(1), 3)
		assert.ErrorIs(t, err, ErrUnknownToken)

		path, _, err := g.FindBestSwapPath(1, 1, big.NewInt(1), 3)
		require.NoError(t, err)
		assert.Nil(t, path)

		path, _, err = g.FindBestSwapPath(1, 3, big.NewInt(0), 3)
		require.NoError(t, err)
		assert.Nil(t, path)
	})
}

func TestGraphIgnoresPairsWithoutQuoter(t *testing.T) {
	s := NewSystem(0)
	s.AddPair(0, 1, 2)
	g := NewGraph(s.View(), nil)
	path, _, err := g.FindBestSwapPath(1, 2, big.NewInt(10), 2)
	require.NoError(t, err)
	assert.Nil(t, path)

	empty := NewGraph(nil, nil)
	_, _, err = empty.FindBestSwapPath(1, 2, big.NewInt(10), 2)
	assert.ErrorIs(t, err, ErrUnknownToken)
}
