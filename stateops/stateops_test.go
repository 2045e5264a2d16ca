package stateops

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/defistate/defistate-amm-go/routing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOps(t *testing.T) *StateOps {
	t.Helper()
	ops, err := NewStateOps(slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	require.NoError(t, err)
	return ops
}

func testPair(id uint64, r0, r1 int64) pairs.Pair {
	return pairs.Pair{
		ID:                 id,
		Address:            common.BigToAddress(big.NewInt(int64(id) + 100)),
		Token0:             id,
		Token1:             id + 1,
		Decimals0:          18,
		Decimals1:          6,
		Fee:                big.NewInt(3e15),
		Reserve0:           big.NewInt(r0),
		Reserve1:           big.NewInt(r1),
		TotalSupply:        big.NewInt(1_000),
		Reserve0Cumulative: big.NewInt(r0 * 10),
		Reserve1Cumulative: big.NewInt(r1 * 10),
		BlockTimestampLast: 10,
	}
}

func buildState(block uint64, toks []tokens.Token, ps []pairs.Pair) *engine.State {
	sys := routing.NewSystem(0)
	for _, p := range ps {
		sys.AddPair(p.ID, p.Token0, p.Token1)
	}
	synced := block
	return &engine.State{
		ChainID: 1,
		Block:   engine.BlockSummary{Number: block, Timestamp: 1_000 + block},
		Protocols: map[engine.ProtocolID]engine.ProtocolState{
			"tokens": {Meta: engine.ProtocolMeta{Name: "tokens"}, SyncedBlockNumber: &synced, Schema: tokens.Schema, Data: toks},
			"pairs":  {Meta: engine.ProtocolMeta{Name: "pairs"}, SyncedBlockNumber: &synced, Schema: pairs.Schema, Data: ps},
			"graph":  {Meta: engine.ProtocolMeta{Name: "graph"}, SyncedBlockNumber: &synced, Schema: routing.Schema, Data: sys.View()},
		},
	}
}

func testTokens(n int) []tokens.Token {
	out := make([]tokens.Token, n)
	for i := range out {
		out[i] = tokens.Token{ID: uint64(i), Address: common.BigToAddress(big.NewInt(int64(i) + 1)), Symbol: "T", Decimals: 18}
	}
	return out
}

// assertSameState diffs the two states and expects nothing to have moved.
func assertSameState(t *testing.T, ops *StateOps, want, got *engine.State) {
	t.Helper()
	diff, err := ops.Diff(want, got)
	require.NoError(t, err)
	require.Len(t, diff.Protocols, len(want.Protocols))
	assert.True(t, diff.Protocols["tokens"].Data.(tokens.TokenSystemDiff).IsEmpty())
	assert.True(t, diff.Protocols["pairs"].Data.(pairs.PairSystemDiff).IsEmpty())
	assert.True(t, diff.Protocols["graph"].Data.(routing.GraphDiff).IsEmpty())
	assert.Equal(t, want.Block.Number, got.Block.Number)
}

func TestStateOps_DiffPatchRoundTrip(t *testing.T) {
	ops := newTestOps(t)

	old := buildState(1, testTokens(2), []pairs.Pair{testPair(0, 100, 200)})
	next := buildState(4, testTokens(3), []pairs.Pair{testPair(0, 150, 180), testPair(1, 5, 5)})

	diff, err := ops.Diff(old, next)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), diff.FromBlock)
	assert.Equal(t, uint64(4), diff.ToBlock.Number)

	tokenDiff := diff.Protocols["tokens"].Data.(tokens.TokenSystemDiff)
	assert.Len(t, tokenDiff.Additions, 1)
	pairDiff := diff.Protocols["pairs"].Data.(pairs.PairSystemDiff)
	assert.Len(t, pairDiff.Additions, 1)
	assert.Len(t, pairDiff.Updates, 1)
	assert.False(t, diff.Protocols["graph"].Data.(routing.GraphDiff).IsEmpty())

	patched, err := ops.Patch(old, diff)
	require.NoError(t, err)
	assertSameState(t, ops, next, patched)
}

func TestStateOps_JSONRoundTrip(t *testing.T) {
	ops := newTestOps(t)

	old := buildState(2, testTokens(2), []pairs.Pair{testPair(0, 100, 200)})
	next := buildState(3, testTokens(3), []pairs.Pair{testPair(0, 90, 222), testPair(1, 7, 9)})

	t.Run("state", func(t *testing.T) {
		raw, err := json.Marshal(next)
		require.NoError(t, err)
		decoded, err := ops.DecodeState(raw)
		require.NoError(t, err)
		assertSameState(t, ops, next, decoded)
	})

	t.Run("diff", func(t *testing.T) {
		diff, err := ops.Diff(old, next)
		require.NoError(t, err)
		raw, err := json.Marshal(diff)
		require.NoError(t, err)

		decoded, err := ops.DecodeStateDiff(raw)
		require.NoError(t, err)
		assert.Equal(t, diff.FromBlock, decoded.FromBlock)
		assert.Equal(t, diff.ToBlock, decoded.ToBlock)

		patched, err := ops.Patch(old, decoded)
		require.NoError(t, err)
		assertSameState(t, ops, next, patched)
	})

	t.Run("unchanged graph", func(t *testing.T) {
		same := buildState(5, testTokens(3), []pairs.Pair{testPair(0, 1, 1), testPair(1, 2, 2)})
		diff, err := ops.Diff(next, same)
		require.NoError(t, err)
		require.True(t, diff.Protocols["graph"].Data.(routing.GraphDiff).IsEmpty())

		raw, err := json.Marshal(diff)
		require.NoError(t, err)
		decoded, err := ops.DecodeStateDiff(raw)
		require.NoError(t, err)
		patched, err := ops.Patch(next, decoded)
		require.NoError(t, err)
		assertSameState(t, ops, same, patched)
	})
}

func TestStateOps_DecodeRejectsUnknownSchema(t *testing.T) {
	ops := newTestOps(t)

	_, err := ops.DecodeStateJSON("mock/unknown@v1", json.RawMessage(`[]`))
	assert.Error(t, err)
	_, err = ops.DecodeStateDiffJSON("mock/unknown@v1", json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = ops.DecodeState([]byte(`{"protocols":{"x":{"schema":"mock/unknown@v1","data":[1]}}}`))
	assert.Error(t, err)
}

func TestStateOps_TypeMismatch(t *testing.T) {
	ops := newTestOps(t)

	old := buildState(1, testTokens(1), nil)
	bad := buildState(2, testTokens(1), nil)
	bad.Protocols["pairs"] = engine.ProtocolState{Schema: pairs.Schema, Data: "not pairs"}

	_, err := ops.Diff(old, bad)
	assert.Error(t, err)

	_, err = ops.Patch(old, &differ.StateDiff{
		FromBlock: 1,
		ToBlock:   engine.BlockSummary{Number: 2},
		Protocols: map[engine.ProtocolID]differ.ProtocolDiff{
			"tokens": {Schema: tokens.Schema, Data: pairs.PairSystemDiff{}},
		},
	})
	assert.Error(t, err)
}
