package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MintEvent is emitted when liquidity is added.
type MintEvent struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

func (MintEvent) EventName() string { return "Mint" }

// BurnEvent is emitted when liquidity is removed.
type BurnEvent struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	To      common.Address
}

func (BurnEvent) EventName() string { return "Burn" }

type SwapEvent struct {
	Sender     common.Address
	Amount0In  *uint256.Int
	Amount1In  *uint256.Int
	Amount0Out *uint256.Int
	Amount1Out *uint256.Int
	To         common.Address
}

func (SwapEvent) EventName() string { return "Swap" }

// SyncEvent carries the reserves after every reserve update.
type SyncEvent struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

func (SyncEvent) EventName() string { return "Sync" }

// ClaimEvent is emitted when an LP collects its accrued swap fees. Empty claims emit nothing.
type ClaimEvent struct {
	Account common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

func (ClaimEvent) EventName() string { return "Claim" }
