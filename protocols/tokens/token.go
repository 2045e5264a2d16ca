// Package tokens is the snapshot view of every token that appears in a factory pair.
package tokens

import (
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
)

const Schema engine.ProtocolSchema = "defistate-amm/tokens/tokenView@v1"

// Token is a safe, structured representation of a token's data for external use.
// IDs are assigned in the order tokens first appear in the factory's pair list.
type Token struct {
	ID       uint64         `json:"id"`
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}
