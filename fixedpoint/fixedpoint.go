// Package fixedpoint provides checked 256-bit integer arithmetic for pool math.
// Every operation allocates its result so callers can treat *uint256.Int values as immutable.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("fixedpoint: overflow")
	ErrUnderflow      = errors.New("fixedpoint: underflow")
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
)

// Rounding selects the direction MulDiv rounds an inexact quotient.
type Rounding uint8

const (
	RoundDown Rounding = iota
	RoundUp
)

// WadUnit is 1e18, the fixed-point scale used by fees, indices and normalized reserves.
const WadUnit uint64 = 1_000_000_000_000_000_000

// precomputedPowers holds 10^0 through 10^77, everything that fits in 256 bits.
var precomputedPowers [78]uint256.Int

func init() {
	precomputedPowers[0].SetUint64(1)
	ten := uint256.NewInt(10)
	for i := 1; i < len(precomputedPowers); i++ {
		precomputedPowers[i].Mul(&precomputedPowers[i-1], ten)
	}
}

// Wad returns a fresh 1e18.
func Wad() *uint256.Int {
	return uint256.NewInt(WadUnit)
}

// Zero returns a fresh zero value.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// MaxUint256 returns 2^256-1, the "infinite" allowance sentinel.
func MaxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// Pow10 returns 10^decimals. It panics for decimals > 77, which cannot be represented.
func Pow10(decimals uint8) *uint256.Int {
	if int(decimals) >= len(precomputedPowers) {
		panic("fixedpoint: decimals out of range")
	}
	return new(uint256.Int).Set(&precomputedPowers[decimals])
}

// Add returns x + y.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x - y.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// Mul returns x * y.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Div returns x / y rounded down.
func Div(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(x, y), nil
}

// MulDiv returns x * y / d computed with a 512-bit intermediate product.
// It fails only when d is zero or the final quotient does not fit in 256 bits.
func MulDiv(x, y, d *uint256.Int, rounding Rounding) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if rounding == RoundUp && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if z.Eq(MaxUint256()) {
			return nil, ErrOverflow
		}
		z.AddUint64(z, 1)
	}
	return z, nil
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// Min returns a copy of the smaller argument.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return new(uint256.Int).Set(x)
	}
	return new(uint256.Int).Set(y)
}

// Max returns a copy of the larger argument.
func Max(x, y *uint256.Int) *uint256.Int {
	if x.Gt(y) {
		return new(uint256.Int).Set(x)
	}
	return new(uint256.Int).Set(y)
}

// SaturatingSub returns x - y, or zero when y > x.
func SaturatingSub(x, y *uint256.Int) *uint256.Int {
	if y.Gt(x) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}
