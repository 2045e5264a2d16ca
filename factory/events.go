package factory

import "github.com/ethereum/go-ethereum/common"

// PairCreatedEvent is emitted once per deployed pair. Length is the pair count after deployment.
type PairCreatedEvent struct {
	Token0 common.Address
	Token1 common.Address
	Stable bool
	Pair   common.Address
	Length uint64
}

func (PairCreatedEvent) EventName() string { return "PairCreated" }

type NewTreasuryEvent struct {
	OldTreasury common.Address
	NewTreasury common.Address
}

func (NewTreasuryEvent) EventName() string { return "NewTreasury" }

type NewGovernorEvent struct {
	OldGovernor common.Address
	NewGovernor common.Address
}

func (NewGovernorEvent) EventName() string { return "NewGovernor" }
