// Package stateops wires the exchange's protocol schemas into the generic differ and
// patcher, and decodes their JSON encodings back into typed views.
package stateops

import (
	"encoding/json"
	"fmt"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/patcher"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/defistate/defistate-amm-go/routing"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StateOps is the facade over both directions of state sync:
// Diff computes the delta between two snapshots, Patch replays a delta onto a snapshot.
type StateOps struct {
	*differ.StateDiffer
	*patcher.StatePatcher
}

func NewStateOps(logger Logger, prometheusRegistry prometheus.Registerer) (*StateOps, error) {
	protocolDiffers := map[engine.ProtocolSchema]differ.ProtocolDiffer{
		tokens.Schema: func(old, new any) (any, error) {
			o, n, err := typedPair[[]tokens.Token](old, new)
			if err != nil {
				return nil, err
			}
			return tokens.Differ(o, n), nil
		},
		pairs.Schema: func(old, new any) (any, error) {
			o, n, err := typedPair[[]pairs.Pair](old, new)
			if err != nil {
				return nil, err
			}
			return pairs.Differ(o, n), nil
		},
		routing.Schema: func(old, new any) (any, error) {
			o, n, err := typedPair[*routing.View](old, new)
			if err != nil {
				return nil, err
			}
			return routing.Differ(o, n), nil
		},
	}

	protocolPatchers := map[engine.ProtocolSchema]patcher.PatcherFunc{
		tokens.Schema: func(prev, diff any) (any, error) {
			p, d, err := typedPatch[[]tokens.Token, tokens.TokenSystemDiff](prev, diff)
			if err != nil {
				return nil, err
			}
			return tokens.Patcher(p, d)
		},
		pairs.Schema: func(prev, diff any) (any, error) {
			p, d, err := typedPatch[[]pairs.Pair, pairs.PairSystemDiff](prev, diff)
			if err != nil {
				return nil, err
			}
			return pairs.Patcher(p, d)
		},
		routing.Schema: func(prev, diff any) (any, error) {
			p, d, err := typedPatch[*routing.View, routing.GraphDiff](prev, diff)
			if err != nil {
				return nil, err
			}
			return routing.Patcher(p, d)
		},
	}

	stateDiffer, err := differ.NewStateDiffer(&differ.StateDifferConfig{
		ProtocolDiffers: protocolDiffers,
		Logger:          logger,
		Registry:        prometheusRegistry,
	})
	if err != nil {
		return nil, err
	}

	statePatcher, err := patcher.NewStatePatcher(&patcher.StatePatcherConfig{
		Patchers: protocolPatchers,
	})
	if err != nil {
		return nil, err
	}

	return &StateOps{
		StateDiffer:  stateDiffer,
		StatePatcher: statePatcher,
	}, nil
}

// typedPair asserts both sides of a diff. A nil old side (a protocol new in this snapshot)
// becomes the zero value of T.
func typedPair[T any](old, new any) (T, T, error) {
	var o, n T
	if old != nil {
		v, ok := old.(T)
		if !ok {
			return o, n, fmt.Errorf("old data is %T, want %T", old, o)
		}
		o = v
	}
	v, ok := new.(T)
	if !ok {
		return o, n, fmt.Errorf("new data is %T, want %T", new, n)
	}
	return o, v, nil
}

func typedPatch[S, D any](prev, diff any) (S, D, error) {
	var s S
	var d D
	if prev != nil {
		v, ok := prev.(S)
		if !ok {
			return s, d, fmt.Errorf("previous data is %T, want %T", prev, s)
		}
		s = v
	}
	v, ok := diff.(D)
	if !ok {
		return s, d, fmt.Errorf("diff data is %T, want %T", diff, d)
	}
	return s, v, nil
}

func (ops *StateOps) DecodeStateJSON(schema engine.ProtocolSchema, data json.RawMessage) (any, error) {
	switch schema {
	case tokens.Schema:
		return decode[[]tokens.Token](data)
	case pairs.Schema:
		return decode[[]pairs.Pair](data)
	case routing.Schema:
		return decode[*routing.View](data)
	default:
		return nil, fmt.Errorf("unknown schema %q", schema)
	}
}

func (ops *StateOps) DecodeStateDiffJSON(schema engine.ProtocolSchema, data json.RawMessage) (any, error) {
	switch schema {
	case tokens.Schema:
		return decode[tokens.TokenSystemDiff](data)
	case pairs.Schema:
		return decode[pairs.PairSystemDiff](data)
	case routing.Schema:
		return decode[routing.GraphDiff](data)
	default:
		return nil, fmt.Errorf("unknown schema %q", schema)
	}
}

func decode[T any](data json.RawMessage) (any, error) {
	var typed T
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return typed, nil
}

// rawProtocol mirrors engine.ProtocolState and differ.ProtocolDiff with undecoded data.
type rawProtocol struct {
	Meta              engine.ProtocolMeta   `json:"meta"`
	SyncedBlockNumber *uint64               `json:"syncedBlockNumber,omitempty"`
	Schema            engine.ProtocolSchema `json:"schema"`
	Data              json.RawMessage       `json:"data,omitempty"`
	Error             string                `json:"error,omitempty"`
}

// DecodeState decodes a JSON-encoded engine.State into typed protocol views.
func (ops *StateOps) DecodeState(data []byte) (*engine.State, error) {
	var raw struct {
		ChainID   uint64                            `json:"chainId"`
		Timestamp uint64                            `json:"timestamp"`
		Block     engine.BlockSummary               `json:"block"`
		Protocols map[engine.ProtocolID]rawProtocol `json:"protocols"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	state := &engine.State{
		ChainID:   raw.ChainID,
		Timestamp: raw.Timestamp,
		Block:     raw.Block,
		Protocols: make(map[engine.ProtocolID]engine.ProtocolState, len(raw.Protocols)),
	}
	for id, p := range raw.Protocols {
		ps := engine.ProtocolState{Meta: p.Meta, SyncedBlockNumber: p.SyncedBlockNumber, Schema: p.Schema, Error: p.Error}
		if len(p.Data) > 0 {
			typed, err := ops.DecodeStateJSON(p.Schema, p.Data)
			if err != nil {
				return nil, fmt.Errorf("protocol %s: %w", id, err)
			}
			ps.Data = typed
		}
		state.Protocols[id] = ps
	}
	return state, nil
}

// DecodeStateDiff decodes a JSON-encoded differ.StateDiff into typed protocol diffs.
func (ops *StateOps) DecodeStateDiff(data []byte) (*differ.StateDiff, error) {
	var raw struct {
		Timestamp uint64                            `json:"timestamp"`
		FromBlock uint64                            `json:"fromBlock"`
		ToBlock   engine.BlockSummary               `json:"toBlock"`
		Protocols map[engine.ProtocolID]rawProtocol `json:"protocols"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	diff := &differ.StateDiff{
		Timestamp: raw.Timestamp,
		FromBlock: raw.FromBlock,
		ToBlock:   raw.ToBlock,
		Protocols: make(map[engine.ProtocolID]differ.ProtocolDiff, len(raw.Protocols)),
	}
	for id, p := range raw.Protocols {
		pd := differ.ProtocolDiff{Meta: p.Meta, SyncedBlockNumber: p.SyncedBlockNumber, Schema: p.Schema, Error: p.Error}
		if len(p.Data) > 0 {
			typed, err := ops.DecodeStateDiffJSON(p.Schema, p.Data)
			if err != nil {
				return nil, fmt.Errorf("protocol %s: %w", id, err)
			}
			pd.Data = typed
		}
		diff.Protocols[id] = pd
	}
	return diff, nil
}
