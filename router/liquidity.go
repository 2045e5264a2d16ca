package router

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/pair"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type AddLiquidityParams struct {
	TokenA         common.Address
	TokenB         common.Address
	Stable         bool
	AmountADesired *uint256.Int
	AmountBDesired *uint256.Int
	AmountAMin     *uint256.Int
	AmountBMin     *uint256.Int
	To             common.Address
	Deadline       uint64
}

// AddLiquidityNativeParams pairs Token with the wrapped native asset. The native side is the
// call value.
type AddLiquidityNativeParams struct {
	Token              common.Address
	Stable             bool
	AmountTokenDesired *uint256.Int
	AmountTokenMin     *uint256.Int
	AmountNativeMin    *uint256.Int
	To                 common.Address
	Deadline           uint64
}

type RemoveLiquidityParams struct {
	TokenA     common.Address
	TokenB     common.Address
	Stable     bool
	Liquidity  *uint256.Int
	AmountAMin *uint256.Int
	AmountBMin *uint256.Int
	To         common.Address
	Deadline   uint64
}

type RemoveLiquidityNativeParams struct {
	Token           common.Address
	Stable          bool
	Liquidity       *uint256.Int
	AmountTokenMin  *uint256.Int
	AmountNativeMin *uint256.Int
	To              common.Address
	Deadline        uint64
}

// Permit authorizes the router to pull LP shares. ApproveMax signs for the maximum allowance
// instead of the exact liquidity.
type Permit struct {
	ApproveMax bool
	Signature  pair.Signature
}

// addLiquidityAmounts creates the pair when missing and settles the deposit amounts against
// the caller's minimums.
func (r *Router) addLiquidityAmounts(tokenA, tokenB common.Address, stable bool, amountADesired, amountBDesired, amountAMin, amountBMin *uint256.Int) (*pair.Pair, *uint256.Int, *uint256.Int, error) {
	if _, _, err := SortTokens(tokenA, tokenB); err != nil {
		return nil, nil, nil, err
	}
	if amountADesired.IsZero() || amountBDesired.IsZero() {
		return nil, nil, nil, ErrZeroAmount
	}
	p, ok := r.pairOf(tokenA, tokenB, stable)
	if !ok {
		addr, err := r.factory.CreatePair(tokenA, tokenB, stable)
		if err != nil {
			return nil, nil, nil, err
		}
		p, _ = r.factory.Pair(addr)
	}

	reserveA, reserveB, err := r.GetReserves(tokenA, tokenB, stable)
	if err != nil {
		return nil, nil, nil, err
	}
	if reserveA.IsZero() && reserveB.IsZero() {
		return p, new(uint256.Int).Set(amountADesired), new(uint256.Int).Set(amountBDesired), nil
	}

	amountA, amountB, err := optimalAmounts(amountADesired, amountBDesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkMinimums(amountA, amountB, amountAMin, amountBMin); err != nil {
		return nil, nil, nil, err
	}
	return p, amountA, amountB, nil
}

// AddLiquidity pulls both tokens from sender into the pair, creating it if needed, and mints
// the shares to params.To.
func (r *Router) AddLiquidity(sender common.Address, params AddLiquidityParams) (amountA, amountB, liquidity *uint256.Int, err error) {
	err = r.host.Call(func() error {
		if err := r.ensure(params.Deadline); err != nil {
			return err
		}
		p, a, b, err := r.addLiquidityAmounts(params.TokenA, params.TokenB, params.Stable,
			params.AmountADesired, params.AmountBDesired, params.AmountAMin, params.AmountBMin)
		if err != nil {
			return err
		}
		tokenA, err := r.token(params.TokenA)
		if err != nil {
			return err
		}
		tokenB, err := r.token(params.TokenB)
		if err != nil {
			return err
		}
		if err := r.pullFrom(tokenA, sender, p.Address(), a); err != nil {
			return err
		}
		if err := r.pullFrom(tokenB, sender, p.Address(), b); err != nil {
			return err
		}
		shares, err := p.Mint(r.address, params.To)
		if err != nil {
			return err
		}
		amountA, amountB, liquidity = a, b, shares
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	r.logger.Debug("liquidity added",
		"sender", sender.Hex(),
		"tokenA", params.TokenA.Hex(),
		"tokenB", params.TokenB.Hex(),
		"stable", params.Stable,
		"liquidity", liquidity.Dec(),
	)
	return amountA, amountB, liquidity, nil
}

// AddLiquidityNative deposits Token plus value of the native asset, wrapping what the pair
// takes and refunding the rest of value to sender.
func (r *Router) AddLiquidityNative(sender common.Address, value *uint256.Int, params AddLiquidityNativeParams) (amountToken, amountNative, liquidity *uint256.Int, err error) {
	err = r.host.Call(func() error {
		if err := r.ensure(params.Deadline); err != nil {
			return err
		}
		p, t, n, err := r.addLiquidityAmounts(params.Token, r.wnative.Address(), params.Stable,
			params.AmountTokenDesired, value, params.AmountTokenMin, params.AmountNativeMin)
		if err != nil {
			return err
		}
		tk, err := r.token(params.Token)
		if err != nil {
			return err
		}
		if err := r.pullFrom(tk, sender, p.Address(), t); err != nil {
			return err
		}
		if err := r.host.TransferValue(sender, r.address, value); err != nil {
			return fmt.Errorf("%w: %w", ErrNativeTransferFailed, err)
		}
		if err := r.wnative.Deposit(r.address, n); err != nil {
			return err
		}
		if err := r.send(r.wnative, p.Address(), n); err != nil {
			return err
		}
		shares, err := p.Mint(r.address, params.To)
		if err != nil {
			return err
		}
		if refund := new(uint256.Int).Sub(value, n); !refund.IsZero() {
			if err := r.sendNative(sender, refund); err != nil {
				return err
			}
		}
		amountToken, amountNative, liquidity = t, n, shares
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	r.logger.Debug("native liquidity added",
		"sender", sender.Hex(),
		"token", params.Token.Hex(),
		"stable", params.Stable,
		"liquidity", liquidity.Dec(),
	)
	return amountToken, amountNative, liquidity, nil
}

// burn moves liquidity shares from sender into the pair and burns them, paying out to `to`.
// Amounts come back in (tokenA, tokenB) order.
func (r *Router) burn(sender, tokenA, tokenB common.Address, stable bool, liquidity *uint256.Int, to common.Address) (*uint256.Int, *uint256.Int, error) {
	p, err := r.mustPair(tokenA, tokenB, stable)
	if err != nil {
		return nil, nil, err
	}
	if err := r.pullFrom(p, sender, p.Address(), liquidity); err != nil {
		return nil, nil, err
	}
	amount0, amount1, err := p.Burn(r.address, to)
	if err != nil {
		return nil, nil, err
	}
	if p.Token0() == tokenA {
		return amount0, amount1, nil
	}
	return amount1, amount0, nil
}

func checkMinimums(amountA, amountB, amountAMin, amountBMin *uint256.Int) error {
	if amountA.Lt(amountAMin) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientAmountA, amountA.Dec(), amountAMin.Dec())
	}
	if amountB.Lt(amountBMin) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientAmountB, amountB.Dec(), amountBMin.Dec())
	}
	return nil
}

// RemoveLiquidity burns params.Liquidity of sender's shares and sends both tokens to params.To.
// The router must be approved for the shares.
func (r *Router) RemoveLiquidity(sender common.Address, params RemoveLiquidityParams) (amountA, amountB *uint256.Int, err error) {
	err = r.host.Call(func() error {
		if err := r.ensure(params.Deadline); err != nil {
			return err
		}
		a, b, err := r.burn(sender, params.TokenA, params.TokenB, params.Stable, params.Liquidity, params.To)
		if err != nil {
			return err
		}
		if err := checkMinimums(a, b, params.AmountAMin, params.AmountBMin); err != nil {
			return err
		}
		amountA, amountB = a, b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("liquidity removed",
		"sender", sender.Hex(),
		"tokenA", params.TokenA.Hex(),
		"tokenB", params.TokenB.Hex(),
		"stable", params.Stable,
		"liquidity", params.Liquidity.Dec(),
	)
	return amountA, amountB, nil
}

// RemoveLiquidityNative burns shares of a Token/wrapped-native pair, sends the token to
// params.To and unwraps the native side before sending it on.
func (r *Router) RemoveLiquidityNative(sender common.Address, params RemoveLiquidityNativeParams) (amountToken, amountNative *uint256.Int, err error) {
	err = r.host.Call(func() error {
		if err := r.ensure(params.Deadline); err != nil {
			return err
		}
		tk, err := r.token(params.Token)
		if err != nil {
			return err
		}
		t, n, err := r.burn(sender, params.Token, r.wnative.Address(), params.Stable, params.Liquidity, r.address)
		if err != nil {
			return err
		}
		if err := checkMinimums(t, n, params.AmountTokenMin, params.AmountNativeMin); err != nil {
			return err
		}
		if err := r.send(tk, params.To, t); err != nil {
			return err
		}
		if err := r.wnative.Withdraw(r.address, n); err != nil {
			return err
		}
		if err := r.sendNative(params.To, n); err != nil {
			return err
		}
		amountToken, amountNative = t, n
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("native liquidity removed",
		"sender", sender.Hex(),
		"token", params.Token.Hex(),
		"stable", params.Stable,
		"liquidity", params.Liquidity.Dec(),
	)
	return amountToken, amountNative, nil
}

func (r *Router) permit(sender, tokenA, tokenB common.Address, stable bool, liquidity *uint256.Int, deadline uint64, permit Permit) error {
	p, err := r.mustPair(tokenA, tokenB, stable)
	if err != nil {
		return err
	}
	value := liquidity
	if permit.ApproveMax {
		value = fixedpoint.MaxUint256()
	}
	return p.Permit(sender, r.address, value, deadline, permit.Signature)
}

// RemoveLiquidityWithPermit is RemoveLiquidity authorized by an owner signature instead of a
// prior approval.
func (r *Router) RemoveLiquidityWithPermit(sender common.Address, params RemoveLiquidityParams, permit Permit) (amountA, amountB *uint256.Int, err error) {
	err = r.host.Call(func() error {
		if err := r.permit(sender, params.TokenA, params.TokenB, params.Stable, params.Liquidity, params.Deadline, permit); err != nil {
			return err
		}
		amountA, amountB, err = r.RemoveLiquidity(sender, params)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

func (r *Router) RemoveLiquidityNativeWithPermit(sender common.Address, params RemoveLiquidityNativeParams, permit Permit) (amountToken, amountNative *uint256.Int, err error) {
	err = r.host.Call(func() error {
		if err := r.permit(sender, params.Token, r.wnative.Address(), params.Stable, params.Liquidity, params.Deadline, permit); err != nil {
			return err
		}
		amountToken, amountNative, err = r.RemoveLiquidityNative(sender, params)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amountToken, amountNative, nil
}
