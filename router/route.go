package router

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/factory"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/defistate/defistate-amm-go/protocols/pairs/calculator"
	pairindexer "github.com/defistate/defistate-amm-go/protocols/pairs/indexer"
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	tokenindexer "github.com/defistate/defistate-amm-go/protocols/tokens/indexer"
	"github.com/defistate/defistate-amm-go/routing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FindBestRoute searches every factory pair for the route of at most maxHops hops that turns
// amountIn of tokenIn into the most tokenOut, and quotes it with GetAmountsOut.
// It reads a fresh factory snapshot, so it must not run concurrently with host.Execute.
func (r *Router) FindBestRoute(amountIn *uint256.Int, tokenIn, tokenOut common.Address, maxHops int) ([]Route, []Quote, error) {
	defer r.metrics.timeQuote("findBestRoute").ObserveDuration()

	if _, _, err := SortTokens(tokenIn, tokenOut); err != nil {
		return nil, nil, err
	}
	if amountIn == nil || amountIn.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	if maxHops <= 0 {
		return nil, nil, fmt.Errorf("%w: maxHops must be positive", ErrInvalidPath)
	}

	state := r.factory.Snapshot()
	tokenView, ok := engine.Protocol[[]tokens.Token](state, factory.TokensProtocolID)
	if !ok {
		return nil, nil, errors.New("router: tokens snapshot unavailable")
	}
	pairView, ok := engine.Protocol[[]pairs.Pair](state, factory.PairsProtocolID)
	if !ok {
		return nil, nil, errors.New("router: pairs snapshot unavailable")
	}
	graphView, ok := engine.Protocol[*routing.View](state, factory.GraphProtocolID)
	if !ok {
		return nil, nil, errors.New("router: graph snapshot unavailable")
	}

	tokenIndex := tokenindexer.NewIndexableTokenSystem(tokenView)
	in, ok := tokenIndex.GetByAddress(tokenIn)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is in no pair", ErrNoRoute, tokenIn.Hex())
	}
	out, ok := tokenIndex.GetByAddress(tokenOut)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is in no pair", ErrNoRoute, tokenOut.Hex())
	}

	pairIndex := pairindexer.NewIndexablePairSystem(pairView)
	quoters := make(map[uint64]routing.GetAmountOutFunc, len(pairView))
	for _, p := range pairIndex.All() {
		quoters[p.ID] = func(amount *big.Int, tokenInID, tokenOutID uint64) (*big.Int, error) {
			return calculator.GetAmountOut(amount, tokenInID, tokenOutID, p)
		}
	}

	path, _, err := routing.NewGraph(graphView, quoters).FindBestSwapPath(in.ID, out.ID, amountIn.ToBig(), maxHops)
	if err != nil {
		return nil, nil, err
	}
	if len(path) == 0 {
		return nil, nil, fmt.Errorf("%w: %s to %s within %d hops", ErrNoRoute, tokenIn.Hex(), tokenOut.Hex(), maxHops)
	}

	routes := make([]Route, len(path))
	for i, hop := range path {
		from, _ := tokenIndex.GetByID(hop.TokenInID)
		to, _ := tokenIndex.GetByID(hop.TokenOutID)
		routes[i] = Route{From: from.Address, To: to.Address}
	}
	quotes, err := r.amountsOut(amountIn, routes)
	if err != nil {
		return nil, nil, err
	}
	return routes, quotes, nil
}
