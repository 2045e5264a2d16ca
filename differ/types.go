package differ

import (
	"errors"

	"github.com/defistate/defistate-amm-go/engine"
)

var (
	ErrStateHasErrors = errors.New("differ: state contains protocol errors")
	ErrBlockOrder     = errors.New("differ: new state is older than old state")
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type ProtocolDiff struct {
	Meta engine.ProtocolMeta `json:"meta"`

	SyncedBlockNumber *uint64 `json:"syncedBlockNumber,omitempty"`

	// Schema is the decode contract for Data.
	// Examples:
	// "defistate-amm/pairs/pairView@v1"
	// "defistate-amm/tokens/tokenView@v1"
	Schema engine.ProtocolSchema `json:"schema"`

	// Data is the protocol diff, shaped by Schema.
	Data any `json:"data,omitempty"`

	Error string `json:"error,omitempty"`
}

// StateDiff summarizes the changes from FromBlock to ToBlock.
type StateDiff struct {
	Timestamp uint64                             `json:"timestamp"`
	FromBlock uint64                             `json:"fromBlock"`
	ToBlock   engine.BlockSummary                `json:"toBlock"`
	Protocols map[engine.ProtocolID]ProtocolDiff `json:"protocols"`
}
