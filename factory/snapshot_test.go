package factory

import (
	"errors"
	"testing"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/defistate/defistate-amm-go/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ab := env.createPair(t, tokenBAddr, tokenAAddr, false)
	ac := env.createPair(t, tokenAAddr, tokenCAddr, true)
	env.deposit(t, ab, ether(100), ether(50))

	state := env.factory.Snapshot()
	assert.Equal(t, uint64(31337), state.ChainID)
	assert.Equal(t, env.host.Height(), state.Block.Number)
	assert.Equal(t, env.clock.Now(), state.Block.Timestamp)
	assert.False(t, state.HasErrors())

	toks, ok := engine.Protocol[[]tokens.Token](state, TokensProtocolID)
	require.True(t, ok)
	require.Len(t, toks, 3)
	assert.Equal(t, tokens.Token{ID: 0, Address: tokenAAddr, Symbol: "TKA", Decimals: 18}, toks[0])
	assert.Equal(t, tokens.Token{ID: 1, Address: tokenBAddr, Symbol: "TKB", Decimals: 6}, toks[1])
	assert.Equal(t, tokens.Token{ID: 2, Address: tokenCAddr, Symbol: "TKC", Decimals: 18}, toks[2])

	ps, ok := engine.Protocol[[]pairs.Pair](state, PairsProtocolID)
	require.True(t, ok)
	require.Len(t, ps, 2)

	first := ps[0]
	assert.Equal(t, uint64(0), first.ID)
	assert.Equal(t, ab.Address(), first.Address)
	assert.Equal(t, uint64(0), first.Token0)
	assert.Equal(t, uint64(1), first.Token1)
	assert.Equal(t, uint8(18), first.Decimals0)
	assert.Equal(t, uint8(6), first.Decimals1)
	assert.False(t, first.Stable)
	assert.Equal(t, ether(100).ToBig(), first.Reserve0)
	assert.Equal(t, ether(50).ToBig(), first.Reserve1)
	assert.Equal(t, ab.TotalSupply().ToBig(), first.TotalSupply)
	assert.Equal(t, ab.SwapFee().ToBig(), first.Fee)

	assert.Equal(t, ac.Address(), ps[1].Address)
	assert.True(t, ps[1].Stable)
	assert.Equal(t, 0, ps[1].Reserve0.Sign())

	graph, ok := engine.Protocol[*routing.View](state, GraphProtocolID)
	require.True(t, ok)
	assert.ElementsMatch(t, []uint64{0, 1, 2}, graph.Tokens)
	assert.ElementsMatch(t, []uint64{0, 1}, graph.Pairs)
	assert.ElementsMatch(t, []uint64{0, 1}, env.factory.Graph().PairsForToken(0))
}

func TestSnapshotFollowsRevertedPairs(t *testing.T) {
	env := newTestEnv(t)
	env.createPair(t, tokenAAddr, tokenBAddr, false)
	before := env.factory.Snapshot()

	boom := errors.New("boom")
	err := env.host.Execute(func() error {
		_, err := env.factory.CreatePair(tokenAAddr, tokenCAddr, false)
		require.NoError(t, err)

		inside := env.factory.Snapshot()
		ps, ok := engine.Protocol[[]pairs.Pair](inside, PairsProtocolID)
		require.True(t, ok)
		require.Len(t, ps, 2)
		assert.ElementsMatch(t, []uint64{0, 1}, env.factory.Graph().PairsForToken(0))
		return boom
	})
	require.ErrorIs(t, err, boom)

	after := env.factory.Snapshot()
	ps, ok := engine.Protocol[[]pairs.Pair](after, PairsProtocolID)
	require.True(t, ok)
	require.Len(t, ps, 1)
	toks, ok := engine.Protocol[[]tokens.Token](after, TokensProtocolID)
	require.True(t, ok)
	assert.Len(t, toks, 2)
	assert.Equal(t, []uint64{0}, env.factory.Graph().PairsForToken(0))
	assert.Empty(t, env.factory.Graph().PairsForToken(2))
	assert.Equal(t, before.Block.Number, after.Block.Number)

	// The pair ID freed by the revert goes to the next pair; the token keeps its ID.
	bc := env.createPair(t, tokenBAddr, tokenCAddr, false)
	final := env.factory.Snapshot()
	ps, ok = engine.Protocol[[]pairs.Pair](final, PairsProtocolID)
	require.True(t, ok)
	require.Len(t, ps, 2)
	assert.Equal(t, bc.Address(), ps[1].Address)
	assert.Equal(t, uint64(1), ps[1].Token0)
	assert.Equal(t, uint64(2), ps[1].Token1)
	assert.Equal(t, []uint64{0}, env.factory.Graph().PairsForToken(0))
	assert.ElementsMatch(t, []uint64{0, 1}, env.factory.Graph().PairsForToken(1))
	assert.Equal(t, []uint64{1}, env.factory.Graph().PairsForToken(2))
}
