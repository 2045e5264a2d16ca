package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Fees is the vault that holds the LP share of a pair's swap fees until holders claim them.
type Fees struct {
	address common.Address
	pair    common.Address
	token0  token.Token
	token1  token.Token
}

func newFees(host *chain.Host, addr, pair common.Address, token0, token1 token.Token) *Fees {
	f := &Fees{address: addr, pair: pair, token0: token0, token1: token1}
	host.Register(addr, f)
	return f
}

func (f *Fees) Address() common.Address { return f.address }
func (f *Fees) Pair() common.Address    { return f.pair }

// ClaimFor pays out fees on behalf of the pair. Only the pair may call it.
func (f *Fees) ClaimFor(caller, recipient common.Address, amount0, amount1 *uint256.Int) error {
	if caller != f.pair {
		return ErrUnauthorized
	}
	if !amount0.IsZero() {
		if err := f.token0.Transfer(f.address, recipient, amount0); err != nil {
			return fmt.Errorf("%w: %w", ErrFeeTransferFailed, err)
		}
	}
	if !amount1.IsZero() {
		if err := f.token1.Transfer(f.address, recipient, amount1); err != nil {
			return fmt.Errorf("%w: %w", ErrFeeTransferFailed, err)
		}
	}
	return nil
}

// FeeRewards is an account's fee position with pending accruals already settled.
type FeeRewards struct {
	SupplyIndex0 *uint256.Int
	SupplyIndex1 *uint256.Int
	Claimable0   *uint256.Int
	Claimable1   *uint256.Int
}

// Index0 is the cumulative token0 fee per LP share, scaled by 1e18.
func (p *Pair) Index0() *uint256.Int { return new(uint256.Int).Set(p.index0.Get()) }
func (p *Pair) Index1() *uint256.Int { return new(uint256.Int).Set(p.index1.Get()) }

func (p *Pair) SupplyIndex0(account common.Address) *uint256.Int {
	return lookup(p.supplyIndex0, account)
}

func (p *Pair) SupplyIndex1(account common.Address) *uint256.Int {
	return lookup(p.supplyIndex1, account)
}

// Claimable0 returns the settled, unclaimed token0 fees of account.
func (p *Pair) Claimable0(account common.Address) *uint256.Int {
	return lookup(p.claimable0, account)
}

func (p *Pair) Claimable1(account common.Address) *uint256.Int {
	return lookup(p.claimable1, account)
}

// GetAccountFeesRewards reports what account could claim right now, without writing state.
func (p *Pair) GetAccountFeesRewards(account common.Address) (FeeRewards, error) {
	bal := p.BalanceOf(account)
	c0, err := pending(bal, p.index0.Get(), p.SupplyIndex0(account), p.Claimable0(account))
	if err != nil {
		return FeeRewards{}, err
	}
	c1, err := pending(bal, p.index1.Get(), p.SupplyIndex1(account), p.Claimable1(account))
	if err != nil {
		return FeeRewards{}, err
	}
	return FeeRewards{SupplyIndex0: p.Index0(), SupplyIndex1: p.Index1(), Claimable0: c0, Claimable1: c1}, nil
}

// UpdateFeesFor settles the fees account has accrued since its last checkpoint.
func (p *Pair) UpdateFeesFor(account common.Address) error {
	return p.host.Call(func() error { return p.updateFeesFor(account) })
}

func (p *Pair) updateFeesFor(account common.Address) error {
	bal := p.BalanceOf(account)
	index0, index1 := p.index0.Get(), p.index1.Get()
	if !bal.IsZero() {
		c0, err := pending(bal, index0, p.SupplyIndex0(account), p.Claimable0(account))
		if err != nil {
			return err
		}
		c1, err := pending(bal, index1, p.SupplyIndex1(account), p.Claimable1(account))
		if err != nil {
			return err
		}
		p.claimable0.Set(account, c0)
		p.claimable1.Set(account, c1)
	}
	p.supplyIndex0.Set(account, new(uint256.Int).Set(index0))
	p.supplyIndex1.Set(account, new(uint256.Int).Set(index1))
	return nil
}

// ClaimFees settles and pays out the sender's accrued fees. Nothing is emitted when there is
// nothing to claim.
func (p *Pair) ClaimFees(sender common.Address) (claimed0, claimed1 *uint256.Int, err error) {
	err = p.guard("claim", func() error {
		if err := p.updateFeesFor(sender); err != nil {
			return err
		}
		claimed0, claimed1 = p.Claimable0(sender), p.Claimable1(sender)
		if claimed0.IsZero() && claimed1.IsZero() {
			return nil
		}
		p.claimable0.Set(sender, new(uint256.Int))
		p.claimable1.Set(sender, new(uint256.Int))
		if err := p.fees.ClaimFor(p.address, sender, claimed0, claimed1); err != nil {
			return err
		}
		p.host.Emit(p.address, ClaimEvent{Account: sender, Amount0: claimed0, Amount1: claimed1})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return claimed0, claimed1, nil
}

// pending returns claimable + balance * (index - supplyIndex) / 1e18.
func pending(balance, index, supplyIndex, claimable *uint256.Int) (*uint256.Int, error) {
	delta := fixedpoint.SaturatingSub(index, supplyIndex)
	if delta.IsZero() || balance.IsZero() {
		return new(uint256.Int).Set(claimable), nil
	}
	share, err := fixedpoint.MulDiv(balance, delta, fixedpoint.Wad(), fixedpoint.RoundDown)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(claimable, share)
}

func lookup(m *chain.Map[common.Address, *uint256.Int], account common.Address) *uint256.Int {
	if v, ok := m.Get(account); ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}
