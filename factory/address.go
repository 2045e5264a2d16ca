package factory

import (
	"bytes"

	"github.com/defistate/defistate-amm-go/pair"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// pairTemplate names the pair implementation the code hash commits to. Bump it whenever
// pair deployment changes in a way that must yield new addresses.
const pairTemplate = "defistate-amm/pair@v1"

// CodeHash is the pair template hash for a set of deployment parameters. Two factories
// with different fee settings derive different pair addresses.
func CodeHash(params pair.Params) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(pairTemplate),
		word(params.VolatileFee),
		word(params.StableFee),
		word(params.GovernorFeeShare),
	)
}

func word(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}

// SortTokens orders two addresses ascending.
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// Salt is keccak256(token0 ‖ token1 ‖ stable) over the canonical token order.
func Salt(tokenA, tokenB common.Address, stable bool) common.Hash {
	token0, token1 := SortTokens(tokenA, tokenB)
	var flag byte
	if stable {
		flag = 1
	}
	return crypto.Keccak256Hash(token0.Bytes(), token1.Bytes(), []byte{flag})
}

// PairAddress derives the address a factory deploys the (tokenA, tokenB, stable) pair at.
// It needs no factory state, so it works for pairs that do not exist yet.
func PairAddress(factory common.Address, codeHash common.Hash, tokenA, tokenB common.Address, stable bool) common.Address {
	return crypto.CreateAddress2(factory, Salt(tokenA, tokenB, stable), codeHash.Bytes())
}
