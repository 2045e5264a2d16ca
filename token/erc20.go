package token

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type allowanceKey struct {
	owner, spender common.Address
}

// ERC20 is a journaled in-memory token ledger.
type ERC20 struct {
	host     *chain.Host
	address  common.Address
	name     string
	symbol   string
	decimals uint8

	totalSupply *chain.Value[*uint256.Int]
	balances    *chain.Map[common.Address, *uint256.Int]
	allowances  *chain.Map[allowanceKey, *uint256.Int]
}

// NewERC20 deploys a token at addr and registers it on the host.
func NewERC20(host *chain.Host, addr common.Address, name, symbol string, decimals uint8) *ERC20 {
	j := host.Journal()
	t := &ERC20{
		host:        host,
		address:     addr,
		name:        name,
		symbol:      symbol,
		decimals:    decimals,
		totalSupply: chain.NewValue(j, new(uint256.Int)),
		balances:    chain.NewMap[common.Address, *uint256.Int](j),
		allowances:  chain.NewMap[allowanceKey, *uint256.Int](j),
	}
	host.Register(addr, t)
	return t
}

func (t *ERC20) Address() common.Address { return t.address }
func (t *ERC20) Name() string            { return t.name }
func (t *ERC20) Symbol() string          { return t.symbol }
func (t *ERC20) Decimals() uint8         { return t.decimals }

func (t *ERC20) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(t.totalSupply.Get())
}

func (t *ERC20) BalanceOf(account common.Address) *uint256.Int {
	if bal, ok := t.balances.Get(account); ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

func (t *ERC20) Allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := t.allowances.Get(allowanceKey{owner, spender}); ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Approve sets the spender's allowance over the owner's tokens.
func (t *ERC20) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	t.allowances.Set(allowanceKey{owner, spender}, new(uint256.Int).Set(amount))
	t.host.Emit(t.address, ApprovalEvent{Owner: owner, Spender: spender, Value: new(uint256.Int).Set(amount)})
	return nil
}

func (t *ERC20) Transfer(sender, to common.Address, amount *uint256.Int) error {
	return t.move(sender, to, amount)
}

// TransferFrom moves tokens using the spender's allowance. A max-uint256 allowance is never spent.
func (t *ERC20) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	allowed := t.Allowance(from, spender)
	if !allowed.Eq(fixedpoint.MaxUint256()) {
		if allowed.Lt(amount) {
			return fmt.Errorf("%w: %s allowed %s, needs %s", ErrInsufficientAllowance, spender.Hex(), allowed.Dec(), amount.Dec())
		}
		t.allowances.Set(allowanceKey{from, spender}, new(uint256.Int).Sub(allowed, amount))
	}
	return t.move(from, to, amount)
}

// Mint creates new tokens.
func (t *ERC20) Mint(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	supply, err := fixedpoint.Add(t.totalSupply.Get(), amount)
	if err != nil {
		return err
	}
	t.totalSupply.Set(supply)
	t.balances.Set(to, new(uint256.Int).Add(t.BalanceOf(to), amount))
	t.host.Emit(t.address, TransferEvent{To: to, Value: new(uint256.Int).Set(amount)})
	return nil
}

// Burn destroys tokens held by from.
func (t *ERC20) Burn(from common.Address, amount *uint256.Int) error {
	bal := t.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, burning %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	t.balances.Set(from, new(uint256.Int).Sub(bal, amount))
	t.totalSupply.Set(new(uint256.Int).Sub(t.totalSupply.Get(), amount))
	t.host.Emit(t.address, TransferEvent{From: from, Value: new(uint256.Int).Set(amount)})
	return nil
}

func (t *ERC20) move(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal := t.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, sending %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	t.balances.Set(from, new(uint256.Int).Sub(bal, amount))
	t.balances.Set(to, new(uint256.Int).Add(t.BalanceOf(to), amount))
	t.host.Emit(t.address, TransferEvent{From: from, To: to, Value: new(uint256.Int).Set(amount)})
	return nil
}
