package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/holiman/uint256"
)

var ErrInvalidAmount = errors.New("config: invalid amount")

// ParseAmount converts a human decimal such as "1.5" into base units of a token with the given
// decimals. "max" is the maximum uint256.
func ParseAmount(s string, decimals uint8) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "max" {
		return fixedpoint.MaxUint256(), nil
	}
	whole, frac, hasPoint := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if hasPoint && frac == "" {
		return nil, fmt.Errorf("%w: %q has a trailing point", ErrInvalidAmount, s)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return v, nil
}

// FormatAmount renders base units as a decimal with the token's precision, trimming trailing zeros.
func FormatAmount(v *uint256.Int, decimals uint8) string {
	digits := v.Dec()
	if decimals == 0 {
		return digits
	}
	if pad := int(decimals) + 1 - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	cut := len(digits) - int(decimals)
	frac := strings.TrimRight(digits[cut:], "0")
	if frac == "" {
		return digits[:cut]
	}
	return digits[:cut] + "." + frac
}
