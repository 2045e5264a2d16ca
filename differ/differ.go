package differ

import (
	"errors"
	"fmt"
	"time"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/prometheus/client_golang/prometheus"
)

type ProtocolDiffer func(old, new any) (diff any, err error)

// StateDifferConfig holds the per-schema differ functions and dependencies.
type StateDifferConfig struct {
	// One differ per schema (data contract), not per protocol identity.
	ProtocolDiffers map[engine.ProtocolSchema]ProtocolDiffer
	Registry        prometheus.Registerer
	Logger          Logger
}

func (c *StateDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	for schema, fn := range c.ProtocolDiffers {
		if fn == nil {
			return fmt.Errorf("config: differ for schema %q cannot be nil", schema)
		}
	}
	return nil
}

// StateDiffer computes the delta between two snapshots, one protocol at a time.
type StateDiffer struct {
	metrics         *Metrics
	logger          Logger
	protocolDiffers map[engine.ProtocolSchema]ProtocolDiffer
}

// NewStateDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewStateDiffer(cfg *StateDifferConfig) (*StateDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	protocolDiffers := make(map[engine.ProtocolSchema]ProtocolDiffer, len(cfg.ProtocolDiffers))
	for schema, protocolDiffer := range cfg.ProtocolDiffers {
		protocolDiffers[schema] = protocolDiffer
	}

	return &StateDiffer{
		metrics:         NewMetrics(cfg.Registry),
		logger:          cfg.Logger,
		protocolDiffers: protocolDiffers,
	}, nil
}

// Diff compares two error-free snapshots. Protocols present only in new are diffed against nil.
func (d *StateDiffer) Diff(old, new *engine.State) (*StateDiff, error) {
	timer := prometheus.NewTimer(d.metrics.diffDuration)
	defer timer.ObserveDuration()

	if old.HasErrors() || new.HasErrors() {
		d.metrics.diffErrors.Inc()
		return nil, ErrStateHasErrors
	}
	if new.Block.Number < old.Block.Number {
		d.metrics.diffErrors.Inc()
		return nil, fmt.Errorf("%w: from %d to %d", ErrBlockOrder, old.Block.Number, new.Block.Number)
	}

	protocolDiffs := make(map[engine.ProtocolID]ProtocolDiff, len(new.Protocols))
	for protocolID, newProtocolState := range new.Protocols {
		var oldData any
		if oldProtocolState, ok := old.Protocols[protocolID]; ok {
			if oldProtocolState.Schema != newProtocolState.Schema {
				d.metrics.diffErrors.Inc()
				return nil, fmt.Errorf("protocol %s changed schema from %q to %q", protocolID, oldProtocolState.Schema, newProtocolState.Schema)
			}
			oldData = oldProtocolState.Data
		}

		differFunc, exists := d.protocolDiffers[newProtocolState.Schema]
		if !exists {
			d.metrics.diffErrors.Inc()
			return nil, fmt.Errorf("no differ registered for schema %q", newProtocolState.Schema)
		}
		diffData, err := differFunc(oldData, newProtocolState.Data)
		if err != nil {
			d.metrics.diffErrors.Inc()
			return nil, fmt.Errorf("protocol %s: %w", protocolID, err)
		}

		protocolDiffs[protocolID] = ProtocolDiff{
			Meta:              newProtocolState.Meta,
			SyncedBlockNumber: newProtocolState.SyncedBlockNumber,
			Schema:            newProtocolState.Schema,
			Data:              diffData,
		}
	}

	d.logger.Debug("state diffed",
		"fromBlock", old.Block.Number,
		"toBlock", new.Block.Number,
		"protocols", len(protocolDiffs),
	)

	return &StateDiff{
		Timestamp: uint64(time.Now().UnixNano()),
		FromBlock: old.Block.Number,
		ToBlock:   new.Block,
		Protocols: protocolDiffs,
	}, nil
}
