// Package token defines the fungible-token interface the exchange consumes, plus an
// in-memory ERC20 ledger and a native-asset wrapper built on the chain host.
package token

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ERC20: insufficient allowance")
	ErrZeroAddress           = errors.New("ERC20: zero address")
	ErrNotAToken             = errors.New("token: address is not a token")
)

// Token is the narrow view of a fungible-token ledger used by pairs and the router.
// The acting account is always passed explicitly.
type Token interface {
	Address() common.Address
	BalanceOf(account common.Address) *uint256.Int
	Transfer(sender, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
	Decimals() uint8
	Symbol() string
}

// TransferEvent is emitted on every balance movement, including mints (from zero) and burns (to zero).
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *uint256.Int
}

func (TransferEvent) EventName() string { return "Transfer" }

// ApprovalEvent is emitted whenever an allowance is set.
type ApprovalEvent struct {
	Owner   common.Address
	Spender common.Address
	Value   *uint256.Int
}

func (ApprovalEvent) EventName() string { return "Approval" }

// Resolve returns the token deployed at addr.
func Resolve(host *chain.Host, addr common.Address) (Token, error) {
	contract, ok := host.Contract(addr)
	if !ok {
		return nil, fmt.Errorf("%w: nothing deployed at %s", ErrNotAToken, addr.Hex())
	}
	t, ok := contract.(Token)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAToken, addr.Hex())
	}
	return t, nil
}
