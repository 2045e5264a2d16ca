package tokens

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestToken(id uint64, symbol string, decimals uint8) Token {
	return Token{
		ID:       id,
		Address:  common.BigToAddress(big.NewInt(int64(id) + 1)),
		Symbol:   symbol,
		Decimals: decimals,
	}
}

func TestDiffer(t *testing.T) {
	weth := newTestToken(0, "WETH", 18)
	usdc := newTestToken(1, "USDC", 6)
	dai := newTestToken(2, "DAI", 18)

	t.Run("should identify additions correctly", func(t *testing.T) {
		diff := Differ([]Token{weth}, []Token{weth, usdc})

		require.Len(t, diff.Additions, 1)
		assert.Equal(t, usdc, diff.Additions[0])
		assert.Empty(t, diff.Updates)
		assert.Empty(t, diff.Deletions)
	})

	t.Run("should identify deletions correctly", func(t *testing.T) {
		diff := Differ([]Token{weth, usdc}, []Token{weth})

		assert.Empty(t, diff.Additions)
		assert.Empty(t, diff.Updates)
		assert.Equal(t, []uint64{usdc.ID}, diff.Deletions)
	})

	t.Run("should identify updates when the symbol changes", func(t *testing.T) {
		renamed := usdc
		renamed.Symbol = "USDC.e"

		diff := Differ([]Token{weth, usdc}, []Token{weth, renamed})

		assert.Empty(t, diff.Additions)
		require.Len(t, diff.Updates, 1)
		assert.Equal(t, "USDC.e", diff.Updates[0].Symbol)
		assert.Empty(t, diff.Deletions)
	})

	t.Run("should handle a mix of additions, updates, and deletions", func(t *testing.T) {
		redecimaled := weth
		redecimaled.Decimals = 8
		wbtc := newTestToken(3, "WBTC", 8)

		diff := Differ([]Token{weth, usdc, dai}, []Token{redecimaled, usdc, wbtc})

		assert.Equal(t, []Token{wbtc}, diff.Additions)
		assert.Equal(t, []Token{redecimaled}, diff.Updates)
		assert.Equal(t, []uint64{dai.ID}, diff.Deletions)
	})

	t.Run("should produce an empty diff when there are no changes", func(t *testing.T) {
		diff := Differ([]Token{weth, usdc}, []Token{weth, usdc})
		assert.True(t, diff.IsEmpty())
	})

	t.Run("nil old state makes everything an addition", func(t *testing.T) {
		diff := Differ(nil, []Token{weth, usdc})
		assert.Len(t, diff.Additions, 2)
		assert.False(t, diff.IsEmpty())
	})
}
