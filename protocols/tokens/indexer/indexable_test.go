package indexer

import (
	"testing"

	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexableTokenSystem(t *testing.T) {
	weth := tokens.Token{ID: 0, Address: common.HexToAddress("0x01"), Symbol: "WETH", Decimals: 18}
	usdc := tokens.Token{ID: 1, Address: common.HexToAddress("0x02"), Symbol: "USDC", Decimals: 6}

	idx := NewIndexableTokenSystem([]tokens.Token{weth, usdc})
	require.NotNil(t, idx)

	t.Run("lookups", func(t *testing.T) {
		got, ok := idx.GetByID(1)
		assert.True(t, ok)
		assert.Equal(t, usdc, got)

		got, ok = idx.GetByAddress(weth.Address)
		assert.True(t, ok)
		assert.Equal(t, weth, got)

		_, ok = idx.GetByID(9)
		assert.False(t, ok)
		_, ok = idx.GetByAddress(common.HexToAddress("0x99"))
		assert.False(t, ok)
	})

	t.Run("All returns a copy", func(t *testing.T) {
		all := idx.All()
		require.Len(t, all, 2)
		all[0].Symbol = "MUTATED"
		got, _ := idx.GetByID(0)
		assert.Equal(t, "WETH", got.Symbol)
	})

	t.Run("nil view", func(t *testing.T) {
		empty := NewIndexableTokenSystem(nil)
		all := empty.All()
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})
}
