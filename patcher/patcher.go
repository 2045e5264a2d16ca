package patcher

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
)

var ErrBlockMismatch = errors.New("patcher: mismatch fromBlock")

// PatcherFunc applies a diff to a previous protocol view to produce the next one.
//
// CONTRACT:
// 1. Immutability: implementations MUST NOT mutate prevState or diffData.
// 2. nil Handling: prevState is nil when the protocol is new in this diff.
type PatcherFunc func(prevState any, diffData any) (newState any, err error)

type StatePatcherConfig struct {
	// Example: "defistate-amm/pairs/pairView@v1" -> pairs patcher
	Patchers map[engine.ProtocolSchema]PatcherFunc
}

func (c *StatePatcherConfig) validate() error {
	for schema, patcher := range c.Patchers {
		if patcher == nil {
			return fmt.Errorf("config: patcher for schema %q cannot be nil", schema)
		}
	}
	return nil
}

// StatePatcher rebuilds snapshots from a previous snapshot and a StateDiff.
type StatePatcher struct {
	patchers map[engine.ProtocolSchema]PatcherFunc
}

// NewStatePatcher constructs a new patcher from a configuration.
func NewStatePatcher(cfg *StatePatcherConfig) (*StatePatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	patchers := make(map[engine.ProtocolSchema]PatcherFunc, len(cfg.Patchers))
	for k, v := range cfg.Patchers {
		patchers[k] = v
	}

	return &StatePatcher{patchers: patchers}, nil
}

// Patch returns the state diff describes. Protocols the diff does not mention are shared with
// oldState by reference; the others are replaced by their PatcherFunc's output.
func (p *StatePatcher) Patch(oldState *engine.State, diff *differ.StateDiff) (*engine.State, error) {
	if oldState.Block.Number != diff.FromBlock {
		return nil, fmt.Errorf("%w (state=%d, diff=%d)", ErrBlockMismatch, oldState.Block.Number, diff.FromBlock)
	}

	protocols := make(map[engine.ProtocolID]engine.ProtocolState, len(oldState.Protocols))
	for k, v := range oldState.Protocols {
		protocols[k] = v
	}

	for protocolID, protocolDiff := range diff.Protocols {
		patch, ok := p.patchers[protocolDiff.Schema]
		if !ok {
			return nil, fmt.Errorf("patcher: no patcher registered for schema %q (protocol=%s)", protocolDiff.Schema, protocolID)
		}

		var prev any
		if old, exists := oldState.Protocols[protocolID]; exists {
			if old.Schema != protocolDiff.Schema {
				return nil, fmt.Errorf("patcher: schema mismatch for protocol %s (old=%s, diff=%s)", protocolID, old.Schema, protocolDiff.Schema)
			}
			prev = old.Data
		}

		data, err := patch(prev, protocolDiff.Data)
		if err != nil {
			return nil, fmt.Errorf("patcher: failed to patch protocol %s: %w", protocolID, err)
		}

		protocols[protocolID] = engine.ProtocolState{
			Meta:              protocolDiff.Meta,
			SyncedBlockNumber: protocolDiff.SyncedBlockNumber,
			Schema:            protocolDiff.Schema,
			Data:              data,
			Error:             protocolDiff.Error,
		}
	}

	return &engine.State{
		ChainID:   oldState.ChainID,
		Timestamp: diff.Timestamp,
		Block:     diff.ToBlock,
		Protocols: protocols,
	}, nil
}
