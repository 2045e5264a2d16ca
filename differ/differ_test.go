package differ

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intSchema = engine.ProtocolSchema("mock/int@v1")

// intDiffer treats protocol data as an integer and the diff as the delta.
func intDiffer(old, new any) (any, error) {
	from := 0
	if old != nil {
		from = old.(int)
	}
	to, ok := new.(int)
	if !ok {
		return nil, errors.New("new is not int")
	}
	return to - from, nil
}

func newTestDiffer(t *testing.T, reg *prometheus.Registry) *StateDiffer {
	t.Helper()
	d, err := NewStateDiffer(&StateDifferConfig{
		ProtocolDiffers: map[engine.ProtocolSchema]ProtocolDiffer{intSchema: intDiffer},
		Registry:        reg,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return d
}

func makeState(block uint64, protocols map[engine.ProtocolID]engine.ProtocolState) *engine.State {
	return &engine.State{
		ChainID:   1,
		Block:     engine.BlockSummary{Number: block, Timestamp: 1_000 + block},
		Protocols: protocols,
	}
}

func TestNewStateDifferValidatesConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewStateDiffer(&StateDifferConfig{Logger: logger})
	assert.Error(t, err)

	_, err = NewStateDiffer(&StateDifferConfig{Registry: prometheus.NewRegistry()})
	assert.Error(t, err)

	_, err = NewStateDiffer(&StateDifferConfig{
		ProtocolDiffers: map[engine.ProtocolSchema]ProtocolDiffer{intSchema: nil},
		Registry:        prometheus.NewRegistry(),
		Logger:          logger,
	})
	assert.Error(t, err)
}

func TestStateDiffer_Diff(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := newTestDiffer(t, reg)

	synced := uint64(7)
	old := makeState(5, map[engine.ProtocolID]engine.ProtocolState{
		"a": {Schema: intSchema, Data: 10},
	})
	new := makeState(7, map[engine.ProtocolID]engine.ProtocolState{
		"a": {Schema: intSchema, Data: 15, SyncedBlockNumber: &synced},
		"b": {Schema: intSchema, Data: 3, Meta: engine.ProtocolMeta{Name: "fresh"}},
	})

	diff, err := d.Diff(old, new)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), diff.FromBlock)
	assert.Equal(t, new.Block, diff.ToBlock)
	require.Len(t, diff.Protocols, 2)
	assert.Equal(t, 5, diff.Protocols["a"].Data)
	assert.Equal(t, &synced, diff.Protocols["a"].SyncedBlockNumber)
	assert.Equal(t, 3, diff.Protocols["b"].Data, "new protocols are diffed against nothing")
	assert.Equal(t, engine.ProtocolName("fresh"), diff.Protocols["b"].Meta.Name)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "amm_differ_diff_duration_seconds"))
}

func TestStateDiffer_Rejects(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := newTestDiffer(t, reg)
	good := map[engine.ProtocolID]engine.ProtocolState{"a": {Schema: intSchema, Data: 1}}

	t.Run("errored state", func(t *testing.T) {
		bad := makeState(2, map[engine.ProtocolID]engine.ProtocolState{"a": {Schema: intSchema, Error: "boom"}})
		_, err := d.Diff(makeState(1, good), bad)
		assert.ErrorIs(t, err, ErrStateHasErrors)
	})

	t.Run("older new state", func(t *testing.T) {
		_, err := d.Diff(makeState(3, good), makeState(2, good))
		assert.ErrorIs(t, err, ErrBlockOrder)
	})

	t.Run("unknown schema", func(t *testing.T) {
		unknown := map[engine.ProtocolID]engine.ProtocolState{"z": {Schema: "mock/unknown@v1", Data: 1}}
		_, err := d.Diff(makeState(1, good), makeState(2, unknown))
		assert.ErrorContains(t, err, "no differ registered")
	})

	t.Run("schema change", func(t *testing.T) {
		changed := map[engine.ProtocolID]engine.ProtocolState{"a": {Schema: "mock/int@v2", Data: 1}}
		_, err := d.Diff(makeState(1, good), makeState(2, changed))
		assert.ErrorContains(t, err, "changed schema")
	})

	t.Run("differ failure", func(t *testing.T) {
		notInt := map[engine.ProtocolID]engine.ProtocolState{"a": {Schema: intSchema, Data: "x"}}
		_, err := d.Diff(makeState(1, good), makeState(2, notInt))
		assert.ErrorContains(t, err, "protocol a")
	})

	assert.Equal(t, float64(5), testutil.ToFloat64(d.metrics.diffErrors))
}
