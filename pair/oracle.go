package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ObservationIndexOf maps a timestamp to its ring-buffer slot.
func ObservationIndexOf(timestamp uint64) int {
	return int((timestamp / PeriodSize) % ObservationCapacity)
}

func (p *Pair) ObservationLength() int {
	return ObservationCapacity
}

// Observation returns the checkpoint stored in slot i.
func (p *Pair) Observation(i int) Observation {
	return copyObservation(p.observations[i%ObservationCapacity].Get())
}

// GetFirstObservationInWindow returns the oldest slot of the ring relative to now.
func (p *Pair) GetFirstObservationInWindow() Observation {
	return p.Observation((ObservationIndexOf(p.host.Now()) + 1) % ObservationCapacity)
}

// Reserve0CumulativeLast returns the stored cumulative of reserve0 as of the last update.
func (p *Pair) Reserve0CumulativeLast() *uint256.Int {
	return new(uint256.Int).Set(p.reserve0Cumulative.Get())
}

func (p *Pair) Reserve1CumulativeLast() *uint256.Int {
	return new(uint256.Int).Set(p.reserve1Cumulative.Get())
}

// CurrentCumulativeReserves extrapolates the cumulatives to now without writing state.
func (p *Pair) CurrentCumulativeReserves() (reserve0Cumulative, reserve1Cumulative *uint256.Int, blockTimestamp uint64) {
	now := p.host.Now()
	reserve0Cumulative = p.Reserve0CumulativeLast()
	reserve1Cumulative = p.Reserve1CumulativeLast()

	r0, r1, last := p.GetReserves()
	if now > last {
		elapsed := uint256.NewInt(now - last)
		reserve0Cumulative.Add(reserve0Cumulative, new(uint256.Int).Mul(r0, elapsed))
		reserve1Cumulative.Add(reserve1Cumulative, new(uint256.Int).Mul(r1, elapsed))
	}
	return reserve0Cumulative, reserve1Cumulative, now
}

// GetTokenPrice prices amountIn of tokenIn against the reserves averaged since the oldest
// observation in the window.
func (p *Pair) GetTokenPrice(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if tokenIn != p.token0.Address() && tokenIn != p.token1.Address() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, tokenIn.Hex())
	}
	first := p.GetFirstObservationInWindow()
	c0, c1, now := p.CurrentCumulativeReserves()
	if first.Timestamp == 0 || now <= first.Timestamp {
		return nil, ErrMissingObservation
	}
	elapsed := now - first.Timestamp
	if elapsed > Window {
		return nil, fmt.Errorf("%w: oldest observation is %ds old", ErrMissingObservation, elapsed)
	}

	span := uint256.NewInt(elapsed)
	avg0 := new(uint256.Int).Div(new(uint256.Int).Sub(c0, first.Reserve0Cumulative), span)
	avg1 := new(uint256.Int).Div(new(uint256.Int).Sub(c1, first.Reserve1Cumulative), span)

	reserveIn, reserveOut := avg0, avg1
	if tokenIn == p.token1.Address() {
		reserveIn, reserveOut = avg1, avg0
	}
	denominator, err := fixedpoint.Add(reserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	if denominator.IsZero() {
		return new(uint256.Int), nil
	}
	return fixedpoint.MulDiv(amountIn, reserveOut, denominator, fixedpoint.RoundDown)
}

func copyObservation(o Observation) Observation {
	return Observation{
		Timestamp:          o.Timestamp,
		Reserve0Cumulative: new(uint256.Int).Set(o.Reserve0Cumulative),
		Reserve1Cumulative: new(uint256.Int).Set(o.Reserve1Cumulative),
	}
}
