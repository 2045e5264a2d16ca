package indexer

import (
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/ethereum/go-ethereum/common"
)

// IndexedTokenSystem defines the methods for accessing indexed token data.
type IndexedTokenSystem interface {
	GetByID(id uint64) (tokens.Token, bool)
	GetByAddress(address common.Address) (tokens.Token, bool)
	All() []tokens.Token
}
