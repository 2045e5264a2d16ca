package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/curve"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapCallee receives the optimistic outputs of a flash swap before the pair checks repayment.
type SwapCallee interface {
	Hook(sender common.Address, amount0Out, amount1Out *uint256.Int, data []byte) error
}

// Swap sends the requested outputs to `to`, optionally calls its SwapCallee hook, then requires
// that enough input arrived for the invariant to hold after fees.
func (p *Pair) Swap(sender common.Address, amount0Out, amount1Out *uint256.Int, to common.Address, data []byte) error {
	return p.guard("swap", func() error {
		if amount0Out.IsZero() && amount1Out.IsZero() {
			return ErrNoZeroAmount
		}
		r0, r1, _ := p.GetReserves()
		if !amount0Out.Lt(r0) || !amount1Out.Lt(r1) {
			return fmt.Errorf("%w: reserves %s/%s", ErrInsufficientLiquidity, r0.Dec(), r1.Dec())
		}
		if to == p.token0.Address() || to == p.token1.Address() {
			return ErrInvalidRecipient
		}

		if !amount0Out.IsZero() {
			if err := p.transferOut(p.token0, to, amount0Out); err != nil {
				return err
			}
		}
		if !amount1Out.IsZero() {
			if err := p.transferOut(p.token1, to, amount1Out); err != nil {
				return err
			}
		}
		if len(data) > 0 {
			if err := p.callHook(sender, amount0Out, amount1Out, to, data); err != nil {
				return err
			}
		}

		bal0, bal1 := p.balances01()
		amount0In := fixedpoint.SaturatingSub(bal0, new(uint256.Int).Sub(r0, amount0Out))
		amount1In := fixedpoint.SaturatingSub(bal1, new(uint256.Int).Sub(r1, amount1Out))
		if amount0In.IsZero() && amount1In.IsZero() {
			return ErrInsufficientInputAmount
		}

		if err := p.takeFee(p.token0, p.index0.Get, p.index0.Set, amount0In); err != nil {
			return err
		}
		if err := p.takeFee(p.token1, p.index1.Get, p.index1.Set, amount1In); err != nil {
			return err
		}

		bal0, bal1 = p.balances01()
		if err := p.checkK(bal0, bal1, r0, r1); err != nil {
			return err
		}

		p.update(bal0, bal1, r0, r1)
		p.host.Emit(p.address, SwapEvent{
			Sender:     sender,
			Amount0In:  amount0In,
			Amount1In:  amount1In,
			Amount0Out: new(uint256.Int).Set(amount0Out),
			Amount1Out: new(uint256.Int).Set(amount1Out),
			To:         to,
		})
		return nil
	})
}

func (p *Pair) callHook(sender common.Address, amount0Out, amount1Out *uint256.Int, to common.Address, data []byte) error {
	contract, ok := p.host.Contract(to)
	if !ok {
		return fmt.Errorf("%w: nothing deployed at %s", ErrInvalidCallee, to.Hex())
	}
	callee, ok := contract.(SwapCallee)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidCallee, to.Hex())
	}
	return callee.Hook(sender, new(uint256.Int).Set(amount0Out), new(uint256.Int).Set(amount1Out), data)
}

// takeFee moves the swap fee on amountIn out of the pair: the governor share to feeTo and the
// rest to the fee vault, credited to LPs through the fee index.
func (p *Pair) takeFee(t token.Token, index func() *uint256.Int, setIndex func(*uint256.Int), amountIn *uint256.Int) error {
	if amountIn.IsZero() {
		return nil
	}
	_, fee, err := curve.ApplyFee(amountIn, p.swapFee)
	if err != nil {
		return err
	}
	if fee.IsZero() {
		return nil
	}

	lpFee := fee
	if p.factory != nil {
		if feeTo := p.factory.FeeTo(); feeTo != (common.Address{}) {
			governorFee, err := fixedpoint.MulDiv(fee, p.governorFeeShare, fixedpoint.Wad(), fixedpoint.RoundDown)
			if err != nil {
				return err
			}
			if !governorFee.IsZero() {
				if err := p.transferOut(t, feeTo, governorFee); err != nil {
					return err
				}
				lpFee = new(uint256.Int).Sub(fee, governorFee)
			}
		}
	}
	if lpFee.IsZero() {
		return nil
	}
	if err := p.transferOut(t, p.fees.Address(), lpFee); err != nil {
		return err
	}
	p.host.AfterCommit(func() { p.metrics.feeCollected(p.curveLabel()) })

	if supply := p.totalSupply.Get(); !supply.IsZero() {
		delta, err := fixedpoint.MulDiv(lpFee, fixedpoint.Wad(), supply, fixedpoint.RoundDown)
		if err != nil {
			return err
		}
		next, err := fixedpoint.Add(index(), delta)
		if err != nil {
			return err
		}
		setIndex(next)
	}
	return nil
}

func (p *Pair) checkK(bal0, bal1, r0, r1 *uint256.Int) error {
	after, err := curve.K(bal0, bal1, p.scale0, p.scale1, p.stable)
	if err != nil {
		return err
	}
	before, err := curve.K(r0, r1, p.scale0, p.scale1, p.stable)
	if err != nil {
		return err
	}
	if after.Lt(before) {
		return ErrKError
	}
	return nil
}
