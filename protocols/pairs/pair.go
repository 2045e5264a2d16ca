// Package pairs is the snapshot view of every pair the factory has deployed.
package pairs

import (
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
)

const Schema engine.ProtocolSchema = "defistate-amm/pairs/pairView@v1"

// Pair is the externally visible state of one pair. ID is the pair's index in the factory's
// pair list; Token0 and Token1 are token IDs from the tokens view. Fee is a 1e18 fraction.
type Pair struct {
	ID                 uint64         `json:"id"`
	Address            common.Address `json:"address"`
	Token0             uint64         `json:"token0"`
	Token1             uint64         `json:"token1"`
	Decimals0          uint8          `json:"decimals0"`
	Decimals1          uint8          `json:"decimals1"`
	Stable             bool           `json:"stable"`
	Fee                *big.Int       `json:"fee"`
	Reserve0           *big.Int       `json:"reserve0"`
	Reserve1           *big.Int       `json:"reserve1"`
	TotalSupply        *big.Int       `json:"totalSupply"`
	Reserve0Cumulative *big.Int       `json:"reserve0Cumulative"`
	Reserve1Cumulative *big.Int       `json:"reserve1Cumulative"`
	BlockTimestampLast uint64         `json:"blockTimestampLast"`
}
