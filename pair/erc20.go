package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func (p *Pair) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(p.totalSupply.Get())
}

func (p *Pair) BalanceOf(account common.Address) *uint256.Int {
	if bal, ok := p.balances.Get(account); ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

func (p *Pair) Allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := p.allowances.Get(allowanceKey{owner, spender}); ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Nonces returns the next permit nonce of owner.
func (p *Pair) Nonces(owner common.Address) uint64 {
	n, _ := p.nonces.Get(owner)
	return n
}

// Approve sets spender's allowance over owner's shares.
func (p *Pair) Approve(owner, spender common.Address, amount *uint256.Int) error {
	p.approve(owner, spender, amount)
	return nil
}

func (p *Pair) approve(owner, spender common.Address, amount *uint256.Int) {
	p.allowances.Set(allowanceKey{owner, spender}, new(uint256.Int).Set(amount))
	p.host.Emit(p.address, token.ApprovalEvent{Owner: owner, Spender: spender, Value: new(uint256.Int).Set(amount)})
}

func (p *Pair) Transfer(sender, to common.Address, amount *uint256.Int) error {
	return p.host.Call(func() error { return p.transferShares(sender, to, amount) })
}

// TransferFrom spends spender's allowance over from's shares. A max-uint256 allowance is
// never decremented and emits no Approval.
func (p *Pair) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	return p.host.Call(func() error {
		allowed := p.Allowance(from, spender)
		if !allowed.Eq(fixedpoint.MaxUint256()) {
			if allowed.Lt(amount) {
				return fmt.Errorf("%w: %s allowed %s, needs %s", ErrInsufficientAllowance, spender.Hex(), allowed.Dec(), amount.Dec())
			}
			p.approve(from, spender, new(uint256.Int).Sub(allowed, amount))
		}
		return p.transferShares(from, to, amount)
	})
}

func (p *Pair) transferShares(from, to common.Address, amount *uint256.Int) error {
	if err := p.updateFeesFor(from); err != nil {
		return err
	}
	if err := p.updateFeesFor(to); err != nil {
		return err
	}
	bal := p.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, sending %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	p.balances.Set(from, new(uint256.Int).Sub(bal, amount))
	p.balances.Set(to, new(uint256.Int).Add(p.BalanceOf(to), amount))
	p.host.Emit(p.address, token.TransferEvent{From: from, To: to, Value: new(uint256.Int).Set(amount)})
	return nil
}

func (p *Pair) mintShares(to common.Address, amount *uint256.Int) error {
	if err := p.updateFeesFor(to); err != nil {
		return err
	}
	supply, err := fixedpoint.Add(p.totalSupply.Get(), amount)
	if err != nil {
		return err
	}
	p.totalSupply.Set(supply)
	p.balances.Set(to, new(uint256.Int).Add(p.BalanceOf(to), amount))
	p.host.Emit(p.address, token.TransferEvent{To: to, Value: new(uint256.Int).Set(amount)})
	return nil
}

func (p *Pair) burnShares(from common.Address, amount *uint256.Int) error {
	if err := p.updateFeesFor(from); err != nil {
		return err
	}
	bal := p.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, burning %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	p.balances.Set(from, new(uint256.Int).Sub(bal, amount))
	p.totalSupply.Set(new(uint256.Int).Sub(p.totalSupply.Get(), amount))
	p.host.Emit(p.address, token.TransferEvent{From: from, Value: new(uint256.Int).Set(amount)})
	return nil
}
