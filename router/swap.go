package router

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/pair"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// quoteRoute prices routes for a swap and enforces amountOutMin on the final hop.
func (r *Router) quoteRoute(amountIn, amountOutMin *uint256.Int, routes []Route) ([]Quote, error) {
	for i := 1; i < len(routes); i++ {
		if routes[i].From != routes[i-1].To {
			return nil, fmt.Errorf("%w: hop %d starts at %s, previous ends at %s", ErrInvalidPath, i, routes[i].From.Hex(), routes[i-1].To.Hex())
		}
	}
	quotes, err := r.amountsOut(amountIn, routes)
	if err != nil {
		return nil, err
	}
	if out := quotes[len(quotes)-1].Amount; out.Lt(amountOutMin) || out.IsZero() {
		return nil, fmt.Errorf("%w: %s < %s", ErrInsufficientOutput, out.Dec(), amountOutMin.Dec())
	}
	return quotes, nil
}

// executeRoute runs every hop, sending each pair's output straight into the next pair.
// The input must already sit in the first pair.
func (r *Router) executeRoute(quotes []Quote, routes []Route, to common.Address) error {
	hops := make([]*pair.Pair, len(routes))
	for i, route := range routes {
		p, err := r.mustPair(route.From, route.To, quotes[i+1].Stable)
		if err != nil {
			return err
		}
		hops[i] = p
	}

	for i, route := range routes {
		token0, _, err := SortTokens(route.From, route.To)
		if err != nil {
			return err
		}
		amountOut := quotes[i+1].Amount
		amount0Out, amount1Out := new(uint256.Int), amountOut
		if route.From != token0 {
			amount0Out, amount1Out = amountOut, new(uint256.Int)
		}
		recipient := to
		if i < len(routes)-1 {
			recipient = hops[i+1].Address()
		}
		if err := hops[i].Swap(r.address, amount0Out, amount1Out, recipient, nil); err != nil {
			return fmt.Errorf("hop %d: %w", i, err)
		}
	}
	return nil
}

func (r *Router) firstPair(quotes []Quote, routes []Route) (*pair.Pair, error) {
	return r.mustPair(routes[0].From, routes[0].To, quotes[1].Stable)
}

// SwapExactTokensForTokens sells exactly amountIn of the first token along routes and
// fails unless at least amountOutMin of the last token reaches `to`.
func (r *Router) SwapExactTokensForTokens(sender common.Address, amountIn, amountOutMin *uint256.Int, routes []Route, to common.Address, deadline uint64) ([]Quote, error) {
	var quotes []Quote
	err := r.host.Call(func() error {
		if err := r.ensure(deadline); err != nil {
			return err
		}
		q, err := r.quoteRoute(amountIn, amountOutMin, routes)
		if err != nil {
			return err
		}
		first, err := r.firstPair(q, routes)
		if err != nil {
			return err
		}
		tokenIn, err := r.token(routes[0].From)
		if err != nil {
			return err
		}
		if err := r.pullFrom(tokenIn, sender, first.Address(), amountIn); err != nil {
			return err
		}
		if err := r.executeRoute(q, routes, to); err != nil {
			return err
		}
		quotes = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.recordSwap("tokens_for_tokens", sender, quotes)
	return quotes, nil
}

// SwapExactNativeForTokens wraps value and sells it along routes, which must start at the
// wrapped native token.
func (r *Router) SwapExactNativeForTokens(sender common.Address, value, amountOutMin *uint256.Int, routes []Route, to common.Address, deadline uint64) ([]Quote, error) {
	var quotes []Quote
	err := r.host.Call(func() error {
		if err := r.ensure(deadline); err != nil {
			return err
		}
		if len(routes) == 0 {
			return ErrInvalidPath
		}
		if routes[0].From != r.wnative.Address() {
			return fmt.Errorf("%w: route must start at %s", ErrInvalidRoute, r.wnative.Address().Hex())
		}
		q, err := r.quoteRoute(value, amountOutMin, routes)
		if err != nil {
			return err
		}
		first, err := r.firstPair(q, routes)
		if err != nil {
			return err
		}
		if err := r.wrap(sender, value); err != nil {
			return err
		}
		if err := r.send(r.wnative, first.Address(), value); err != nil {
			return err
		}
		if err := r.executeRoute(q, routes, to); err != nil {
			return err
		}
		quotes = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.recordSwap("native_for_tokens", sender, quotes)
	return quotes, nil
}

// SwapExactTokensForNative sells amountIn along routes, which must end at the wrapped native
// token, and unwraps the output before sending it to `to`.
func (r *Router) SwapExactTokensForNative(sender common.Address, amountIn, amountOutMin *uint256.Int, routes []Route, to common.Address, deadline uint64) ([]Quote, error) {
	var quotes []Quote
	err := r.host.Call(func() error {
		if err := r.ensure(deadline); err != nil {
			return err
		}
		if len(routes) == 0 {
			return ErrInvalidPath
		}
		if routes[len(routes)-1].To != r.wnative.Address() {
			return fmt.Errorf("%w: route must end at %s", ErrInvalidRoute, r.wnative.Address().Hex())
		}
		q, err := r.quoteRoute(amountIn, amountOutMin, routes)
		if err != nil {
			return err
		}
		first, err := r.firstPair(q, routes)
		if err != nil {
			return err
		}
		tokenIn, err := r.token(routes[0].From)
		if err != nil {
			return err
		}
		if err := r.pullFrom(tokenIn, sender, first.Address(), amountIn); err != nil {
			return err
		}
		if err := r.executeRoute(q, routes, r.address); err != nil {
			return err
		}
		out := q[len(q)-1].Amount
		if err := r.wnative.Withdraw(r.address, out); err != nil {
			return err
		}
		if err := r.sendNative(to, out); err != nil {
			return err
		}
		quotes = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.recordSwap("tokens_for_native", sender, quotes)
	return quotes, nil
}

// recordSwap counts the swap once the enclosing transaction commits.
func (r *Router) recordSwap(kind string, sender common.Address, quotes []Quote) {
	r.host.AfterCommit(func() {
		r.metrics.swaps.WithLabelValues(kind).Inc()
		r.logger.Debug("swap routed",
			"kind", kind,
			"sender", sender.Hex(),
			"hops", len(quotes)-1,
			"amountIn", quotes[0].Amount.Dec(),
			"amountOut", quotes[len(quotes)-1].Amount.Dec(),
		)
	})
}
