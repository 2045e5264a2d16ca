package router

import (
	"github.com/defistate/defistate-amm-go/fixedpoint"
	"github.com/defistate/defistate-amm-go/pair"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// GetReserves returns the reserves of the pair in (tokenA, tokenB) order. A pair that does not
// exist reports zero reserves.
func (r *Router) GetReserves(tokenA, tokenB common.Address, stable bool) (reserveA, reserveB *uint256.Int, err error) {
	token0, _, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	p, ok := r.pairOf(tokenA, tokenB, stable)
	if !ok {
		return new(uint256.Int), new(uint256.Int), nil
	}
	r0, r1, _ := p.GetReserves()
	if tokenA == token0 {
		return r0, r1, nil
	}
	return r1, r0, nil
}

// GetAmountOut quotes amountIn on both curves and returns the larger output. Missing pairs
// quote zero; on a tie the volatile pair wins.
func (r *Router) GetAmountOut(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (amount *uint256.Int, stable bool) {
	defer r.metrics.timeQuote("getAmountOut").ObserveDuration()
	return r.bestQuote(amountIn, tokenIn, tokenOut)
}

func (r *Router) bestQuote(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, bool) {
	volatileOut := r.quotePair(amountIn, tokenIn, tokenOut, false)
	stableOut := r.quotePair(amountIn, tokenIn, tokenOut, true)
	if stableOut.Gt(volatileOut) {
		return stableOut, true
	}
	return volatileOut, false
}

func (r *Router) quotePair(amountIn *uint256.Int, tokenIn, tokenOut common.Address, stable bool) *uint256.Int {
	p, ok := r.pairOf(tokenIn, tokenOut, stable)
	if !ok {
		return new(uint256.Int)
	}
	out, err := p.GetAmountOut(tokenIn, amountIn)
	if err != nil {
		r.logger.Debug("pair quote failed", "pair", p.Address().Hex(), "error", err)
		return new(uint256.Int)
	}
	return out
}

// GetAmountsOut walks routes feeding each hop's output into the next. The result has one more
// entry than routes; the first is amountIn. A hop without liquidity quotes zero, and so does
// every hop after it.
func (r *Router) GetAmountsOut(amountIn *uint256.Int, routes []Route) ([]Quote, error) {
	defer r.metrics.timeQuote("getAmountsOut").ObserveDuration()
	return r.amountsOut(amountIn, routes)
}

func (r *Router) amountsOut(amountIn *uint256.Int, routes []Route) ([]Quote, error) {
	if len(routes) == 0 {
		return nil, ErrInvalidPath
	}
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrZeroAmount
	}

	quotes := make([]Quote, len(routes)+1)
	quotes[0] = Quote{Amount: new(uint256.Int).Set(amountIn)}
	for i, route := range routes {
		prev := quotes[i].Amount
		if prev.IsZero() {
			quotes[i+1] = Quote{Amount: new(uint256.Int)}
			continue
		}
		amount, stable := r.bestQuote(prev, route.From, route.To)
		quotes[i+1] = Quote{Amount: amount, Stable: stable}
	}
	return quotes, nil
}

// QuoteLiquidity returns the amount of B matching amountA at the current reserve ratio.
func QuoteLiquidity(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA.IsZero() {
		return nil, ErrZeroAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrNoLiquidity
	}
	return fixedpoint.MulDiv(amountA, reserveB, reserveA, fixedpoint.RoundDown)
}

// QuoteAddLiquidity previews AddLiquidity. An empty or missing pair takes the desired amounts
// as they are and estimates the first-mint shares.
func (r *Router) QuoteAddLiquidity(tokenA, tokenB common.Address, stable bool, amountADesired, amountBDesired *uint256.Int) (amountA, amountB, liquidity *uint256.Int, err error) {
	defer r.metrics.timeQuote("quoteAddLiquidity").ObserveDuration()

	if amountADesired.IsZero() || amountBDesired.IsZero() {
		return nil, nil, nil, ErrZeroAmount
	}
	p, ok := r.pairOf(tokenA, tokenB, stable)
	if !ok || p.TotalSupply().IsZero() {
		if _, _, err := SortTokens(tokenA, tokenB); err != nil {
			return nil, nil, nil, err
		}
		product, err := fixedpoint.Mul(amountADesired, amountBDesired)
		if err != nil {
			return nil, nil, nil, err
		}
		liquidity = fixedpoint.SaturatingSub(fixedpoint.Sqrt(product), uint256.NewInt(pair.MinimumLiquidity))
		return new(uint256.Int).Set(amountADesired), new(uint256.Int).Set(amountBDesired), liquidity, nil
	}

	reserveA, reserveB, err := r.GetReserves(tokenA, tokenB, stable)
	if err != nil {
		return nil, nil, nil, err
	}
	amountA, amountB, err = optimalAmounts(amountADesired, amountBDesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, nil, err
	}

	supply := p.TotalSupply()
	sharesA, err := fixedpoint.MulDiv(amountA, supply, reserveA, fixedpoint.RoundDown)
	if err != nil {
		return nil, nil, nil, err
	}
	sharesB, err := fixedpoint.MulDiv(amountB, supply, reserveB, fixedpoint.RoundDown)
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, fixedpoint.Min(sharesA, sharesB), nil
}

// optimalAmounts keeps amountADesired and scales B down when the reserve ratio allows it,
// otherwise keeps amountBDesired and scales A.
func optimalAmounts(amountADesired, amountBDesired, reserveA, reserveB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	amountBOptimal, err := QuoteLiquidity(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !amountBOptimal.Gt(amountBDesired) {
		return new(uint256.Int).Set(amountADesired), amountBOptimal, nil
	}
	amountAOptimal, err := QuoteLiquidity(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	return amountAOptimal, new(uint256.Int).Set(amountBDesired), nil
}

// QuoteRemoveLiquidity previews the pro-rata amounts liquidity shares redeem for. A missing
// pair redeems nothing.
func (r *Router) QuoteRemoveLiquidity(tokenA, tokenB common.Address, stable bool, liquidity *uint256.Int) (amountA, amountB *uint256.Int, err error) {
	defer r.metrics.timeQuote("quoteRemoveLiquidity").ObserveDuration()

	p, ok := r.pairOf(tokenA, tokenB, stable)
	if !ok {
		return new(uint256.Int), new(uint256.Int), nil
	}
	supply := p.TotalSupply()
	if supply.IsZero() {
		return new(uint256.Int), new(uint256.Int), nil
	}
	reserveA, reserveB, err := r.GetReserves(tokenA, tokenB, stable)
	if err != nil {
		return nil, nil, err
	}
	if amountA, err = fixedpoint.MulDiv(liquidity, reserveA, supply, fixedpoint.RoundDown); err != nil {
		return nil, nil, err
	}
	if amountB, err = fixedpoint.MulDiv(liquidity, reserveB, supply, fixedpoint.RoundDown); err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}
