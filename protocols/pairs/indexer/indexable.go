package indexer

import (
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/ethereum/go-ethereum/common"
)

// IndexablePairSystem provides fast, indexed access to a pair view.
type IndexablePairSystem struct {
	byID      map[uint64]pairs.Pair
	byAddress map[common.Address]pairs.Pair
	all       []pairs.Pair
}

var _ IndexedPairSystem = (*IndexablePairSystem)(nil)

// NewIndexablePairSystem indexes a raw pair view. The slice is not copied.
func NewIndexablePairSystem(view []pairs.Pair) *IndexablePairSystem {
	byID := make(map[uint64]pairs.Pair, len(view))
	byAddress := make(map[common.Address]pairs.Pair, len(view))
	for _, p := range view {
		byID[p.ID] = p
		byAddress[p.Address] = p
	}
	return &IndexablePairSystem{
		byID:      byID,
		byAddress: byAddress,
		all:       view,
	}
}

func (ips *IndexablePairSystem) GetByID(id uint64) (pairs.Pair, bool) {
	p, ok := ips.byID[id]
	return p, ok
}

func (ips *IndexablePairSystem) GetByAddress(address common.Address) (pairs.Pair, bool) {
	p, ok := ips.byAddress[address]
	return p, ok
}

// All returns a copy of the slice of all pairs. The pairs' big.Int fields are shared.
func (ips *IndexablePairSystem) All() []pairs.Pair {
	allCopy := make([]pairs.Pair, len(ips.all))
	copy(allCopy, ips.all)
	return allCopy
}
