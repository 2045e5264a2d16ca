package indexer

import (
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/ethereum/go-ethereum/common"
)

// IndexedPairSystem defines the methods for accessing indexed pair data.
type IndexedPairSystem interface {
	GetByID(id uint64) (pairs.Pair, bool)
	GetByAddress(address common.Address) (pairs.Pair, bool)
	All() []pairs.Pair
}
