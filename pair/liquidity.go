package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Mint issues LP shares to `to` for whatever token0/token1 was transferred in since the last sync.
func (p *Pair) Mint(sender, to common.Address) (liquidity *uint256.Int, err error) {
	err = p.guard("mint", func() error {
		r0, r1, _ := p.GetReserves()
		bal0, bal1 := p.balances01()
		amount0, err := fixedpoint.Sub(bal0, r0)
		if err != nil {
			return err
		}
		amount1, err := fixedpoint.Sub(bal1, r1)
		if err != nil {
			return err
		}

		supply := p.totalSupply.Get()
		if supply.IsZero() {
			product, err := fixedpoint.Mul(amount0, amount1)
			if err != nil {
				return err
			}
			root := fixedpoint.Sqrt(product)
			if !root.Gt(uint256.NewInt(MinimumLiquidity)) {
				return fmt.Errorf("%w: first deposit yields %s shares", ErrLowLiquidity, root.Dec())
			}
			liquidity = new(uint256.Int).SubUint64(root, MinimumLiquidity)
			if err := p.mintShares(common.Address{}, uint256.NewInt(MinimumLiquidity)); err != nil {
				return err
			}
		} else {
			l0, err := fixedpoint.MulDiv(amount0, supply, r0, fixedpoint.RoundDown)
			if err != nil {
				return err
			}
			l1, err := fixedpoint.MulDiv(amount1, supply, r1, fixedpoint.RoundDown)
			if err != nil {
				return err
			}
			liquidity = fixedpoint.Min(l0, l1)
		}
		if liquidity.IsZero() {
			return ErrLowLiquidity
		}
		if err := p.mintShares(to, liquidity); err != nil {
			return err
		}

		p.update(bal0, bal1, r0, r1)
		p.host.Emit(p.address, MintEvent{Sender: sender, Amount0: amount0, Amount1: amount1})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

// Burn redeems the LP shares held by the pair itself for a pro-rata cut of its balances.
func (p *Pair) Burn(sender, to common.Address) (amount0, amount1 *uint256.Int, err error) {
	err = p.guard("burn", func() error {
		r0, r1, _ := p.GetReserves()
		bal0, bal1 := p.balances01()
		liquidity := p.BalanceOf(p.address)
		supply := p.totalSupply.Get()
		if supply.IsZero() {
			return fmt.Errorf("%w: no shares outstanding", ErrInsufficientLiquidity)
		}

		var err error
		if amount0, err = fixedpoint.MulDiv(liquidity, bal0, supply, fixedpoint.RoundDown); err != nil {
			return err
		}
		if amount1, err = fixedpoint.MulDiv(liquidity, bal1, supply, fixedpoint.RoundDown); err != nil {
			return err
		}
		if amount0.IsZero() || amount1.IsZero() {
			return ErrInsufficientLiquidity
		}

		if err := p.burnShares(p.address, liquidity); err != nil {
			return err
		}
		if err := p.transferOut(p.token0, to, amount0); err != nil {
			return err
		}
		if err := p.transferOut(p.token1, to, amount1); err != nil {
			return err
		}

		bal0, bal1 = p.balances01()
		p.update(bal0, bal1, r0, r1)
		p.host.Emit(p.address, BurnEvent{Sender: sender, Amount0: amount0, Amount1: amount1, To: to})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Skim sends any balance above the recorded reserves to `to`.
func (p *Pair) Skim(sender, to common.Address) error {
	return p.guard("skim", func() error {
		r0, r1, _ := p.GetReserves()
		bal0, bal1 := p.balances01()
		if err := p.transferOut(p.token0, to, fixedpoint.SaturatingSub(bal0, r0)); err != nil {
			return err
		}
		return p.transferOut(p.token1, to, fixedpoint.SaturatingSub(bal1, r1))
	})
}

// Sync sets the reserves to the current balances.
func (p *Pair) Sync(sender common.Address) error {
	return p.guard("sync", func() error {
		r0, r1, _ := p.GetReserves()
		bal0, bal1 := p.balances01()
		p.update(bal0, bal1, r0, r1)
		return nil
	})
}

// update accumulates the previous reserves into the oracle, checkpoints an observation at most
// once per period and stores the new reserves.
func (p *Pair) update(bal0, bal1, r0, r1 *uint256.Int) {
	now := p.host.Now()
	last := p.blockTimestampLast.Get()

	if now > last && !r0.IsZero() && !r1.IsZero() {
		elapsed := uint256.NewInt(now - last)
		p.reserve0Cumulative.Set(new(uint256.Int).Add(p.reserve0Cumulative.Get(), new(uint256.Int).Mul(r0, elapsed)))
		p.reserve1Cumulative.Set(new(uint256.Int).Add(p.reserve1Cumulative.Get(), new(uint256.Int).Mul(r1, elapsed)))
	}

	slot := p.observations[ObservationIndexOf(now)]
	if ts := slot.Get().Timestamp; now > ts && now-ts > PeriodSize {
		slot.Set(Observation{
			Timestamp:          now,
			Reserve0Cumulative: new(uint256.Int).Set(p.reserve0Cumulative.Get()),
			Reserve1Cumulative: new(uint256.Int).Set(p.reserve1Cumulative.Get()),
		})
	}

	p.reserve0.Set(new(uint256.Int).Set(bal0))
	p.reserve1.Set(new(uint256.Int).Set(bal1))
	p.blockTimestampLast.Set(now)
	p.host.Emit(p.address, SyncEvent{Reserve0: new(uint256.Int).Set(bal0), Reserve1: new(uint256.Int).Set(bal1)})
}
