package indexer

import (
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/ethereum/go-ethereum/common"
)

// IndexableTokenSystem provides fast, indexed access to a token view.
type IndexableTokenSystem struct {
	byID      map[uint64]tokens.Token
	byAddress map[common.Address]tokens.Token
	all       []tokens.Token
}

var _ IndexedTokenSystem = (*IndexableTokenSystem)(nil)

// NewIndexableTokenSystem indexes a raw token view. The slice is not copied.
func NewIndexableTokenSystem(view []tokens.Token) *IndexableTokenSystem {
	byID := make(map[uint64]tokens.Token, len(view))
	byAddress := make(map[common.Address]tokens.Token, len(view))
	for _, t := range view {
		byID[t.ID] = t
		byAddress[t.Address] = t
	}
	return &IndexableTokenSystem{
		byID:      byID,
		byAddress: byAddress,
		all:       view,
	}
}

func (its *IndexableTokenSystem) GetByID(id uint64) (tokens.Token, bool) {
	t, ok := its.byID[id]
	return t, ok
}

func (its *IndexableTokenSystem) GetByAddress(address common.Address) (tokens.Token, bool) {
	t, ok := its.byAddress[address]
	return t, ok
}

// All returns a copy of the slice of all tokens in the system.
func (its *IndexableTokenSystem) All() []tokens.Token {
	allCopy := make([]tokens.Token, len(its.all))
	copy(allCopy, its.all)
	return allCopy
}
