package engine

type ProtocolName string
type ProtocolID string

// ProtocolSchema defines the decode contract for a protocol's data
type ProtocolSchema string

type ProtocolMeta struct {
	Name ProtocolName `json:"name"`           // human label
	Tags []string     `json:"tags,omitempty"` // "amm", "registry", etc.
}

type ProtocolState struct {
	Meta ProtocolMeta `json:"meta"`

	// the host height the protocol's data was read at
	SyncedBlockNumber *uint64 `json:"syncedBlockNumber,omitempty"`

	// Schema is the decode contract for Data.
	// Example:
	// "defistate-amm/pairs/pairView@v1"
	Schema ProtocolSchema `json:"schema"`

	// Data is the protocol view, shaped by Schema.
	Data any `json:"data,omitempty"`

	// Error is populated if this protocol could not be read for this block.
	Error string `json:"error,omitempty"`
}

// BlockSummary identifies the point in the host's history a State was taken at.
// Number counts committed transactions.
type BlockSummary struct {
	Number     uint64 `json:"number"`
	Timestamp  uint64 `json:"timestamp"`
	ReceivedAt int64  `json:"receivedAt"` // Unix nanoseconds when the snapshot was assembled.
}

// State is a point-in-time view of every protocol the exchange exposes.
type State struct {
	ChainID   uint64                       `json:"chainId"`
	Timestamp uint64                       `json:"timestamp"`
	Block     BlockSummary                 `json:"block"`
	Protocols map[ProtocolID]ProtocolState `json:"protocols"`
}

func (state *State) HasErrors() bool {
	for _, pr := range state.Protocols {
		if pr.Error != "" {
			return true
		}
	}
	return false
}

// Protocol returns the data of protocol id, failing when it is missing, errored or not a T.
func Protocol[T any](state *State, id ProtocolID) (T, bool) {
	var zero T
	pr, ok := state.Protocols[id]
	if !ok || pr.Error != "" {
		return zero, false
	}
	data, ok := pr.Data.(T)
	return data, ok
}
