// Package calculator quotes swaps against a pairs snapshot without touching live pair state.
// Results match what the live pair would return for the same reserves.
package calculator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/curve"
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/holiman/uint256"
)

// maxDecimals is the largest exponent with 10^n below 2^256.
const maxDecimals = 77

var (
	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrInvalidAmount is returned for negative amounts or amounts that do not fit 256 bits.
	ErrInvalidAmount = errors.New("amount must be non-negative and fit 256 bits")
	// ErrTokenMismatch is returned when the tokens do not match the pair's tokens.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrInvalidState is returned when the snapshot itself holds unusable values.
	ErrInvalidState = errors.New("invalid pair state")
)

// GetReserves orients the pair's reserves and decimals for a tokenIn -> tokenOut swap.
func GetReserves(tokenInID, tokenOutID uint64, pair pairs.Pair) (reserveIn, reserveOut *big.Int, decimalsIn, decimalsOut uint8, err error) {
	switch {
	case tokenInID == pair.Token0 && tokenOutID == pair.Token1:
		return pair.Reserve0, pair.Reserve1, pair.Decimals0, pair.Decimals1, nil
	case tokenInID == pair.Token1 && tokenOutID == pair.Token0:
		return pair.Reserve1, pair.Reserve0, pair.Decimals1, pair.Decimals0, nil
	}
	return nil, nil, 0, 0, fmt.Errorf("%w: pair %d does not contain %d -> %d", ErrTokenMismatch, pair.ID, tokenInID, tokenOutID)
}

// GetAmountOut quotes amountIn of tokenIn against the snapshot, fee included.
func GetAmountOut(amountIn *big.Int, tokenInID, tokenOutID uint64, pair pairs.Pair) (*big.Int, error) {
	if amountIn == nil {
		return nil, ErrNilAmount
	}
	in, err := toUint256(amountIn, ErrInvalidAmount)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut, decimalsIn, decimalsOut, err := GetReserves(tokenInID, tokenOutID, pair)
	if err != nil {
		return nil, err
	}
	rIn, err := toUint256(reserveIn, ErrInvalidState)
	if err != nil {
		return nil, err
	}
	rOut, err := toUint256(reserveOut, ErrInvalidState)
	if err != nil {
		return nil, err
	}
	fee, err := toUint256(pair.Fee, ErrInvalidState)
	if err != nil {
		return nil, err
	}

	if decimalsIn > maxDecimals || decimalsOut > maxDecimals {
		return nil, fmt.Errorf("%w: pair %d decimals %d/%d", ErrInvalidState, pair.ID, decimalsIn, decimalsOut)
	}

	afterFee, _, err := curve.ApplyFee(in, fee)
	if err != nil {
		return nil, err
	}
	out, err := curve.GetAmountOut(afterFee, curve.Pool{
		ReserveIn:  rIn,
		ReserveOut: rOut,
		ScaleIn:    fixedpoint.Pow10(decimalsIn),
		ScaleOut:   fixedpoint.Pow10(decimalsOut),
		Stable:     pair.Stable,
	})
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

func toUint256(v *big.Int, errKind error) (*uint256.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", errKind)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s is negative", errKind, v)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows 256 bits", errKind, v)
	}
	return out, nil
}
