package sim

import (
	"fmt"
	"strings"

	"github.com/defistate/defistate-amm-go/cmd/ammsim/config"
	"github.com/defistate/defistate-amm-go/pair"
	"github.com/defistate/defistate-amm-go/router"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	stepDeadline   = 20 * 60
	defaultMaxHops = 3
)

type stepFunc func(w *World, step config.Step) (map[string]string, error)

var steps = map[config.Action]stepFunc{
	config.ActionMint:                  (*World).mint,
	config.ActionApprove:               (*World).approve,
	config.ActionAdvanceTime:           (*World).advanceTime,
	config.ActionCreatePair:            (*World).createPair,
	config.ActionAddLiquidity:          (*World).addLiquidity,
	config.ActionAddLiquidityNative:    (*World).addLiquidityNative,
	config.ActionRemoveLiquidity:       (*World).removeLiquidity,
	config.ActionRemoveLiquidityNative: (*World).removeLiquidityNative,
	config.ActionSwap:                  (*World).swap,
	config.ActionSwapNativeForTokens:   (*World).swapNativeForTokens,
	config.ActionSwapTokensForNative:   (*World).swapTokensForNative,
	config.ActionQuote:                 (*World).quote,
	config.ActionClaimFees:             (*World).claimFees,
	config.ActionSetFeeTo:              (*World).setFeeTo,
	config.ActionSync:                  (*World).sync,
}

// Execute runs a single step. State-changing steps run as one host transaction, so a failing
// step leaves no trace.
func (w *World) Execute(step config.Step) (map[string]string, error) {
	fn, ok := steps[step.Action]
	if !ok {
		return nil, fmt.Errorf("%w: action %q", ErrUnknownName, step.Action)
	}
	return fn(w, step)
}

// tx runs fn as a transaction and returns its output only when it commits.
func (w *World) tx(fn func() (map[string]string, error)) (map[string]string, error) {
	var out map[string]string
	err := w.host.Execute(func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (w *World) deadline() uint64 {
	return w.host.Now() + stepDeadline
}

func (w *World) sender(step config.Step) (common.Address, common.Address, error) {
	from, err := w.Account(step.Account)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	to, err := w.Account(step.Recipient())
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return from, to, nil
}

func (w *World) mint(step config.Step) (map[string]string, error) {
	to, err := w.Account(step.Recipient())
	if err != nil {
		return nil, err
	}
	amount, err := w.amount(step.TokenA, step.Amount)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		if step.TokenA == config.NativeSymbol {
			w.host.MintNative(to, amount)
			return map[string]string{"native": config.FormatAmount(w.host.NativeBalance(to), 18)}, nil
		}
		tk, ok := w.tokens[step.TokenA]
		if !ok {
			return nil, fmt.Errorf("%w: token %q", ErrUnknownName, step.TokenA)
		}
		if err := tk.Mint(to, amount); err != nil {
			return nil, err
		}
		return map[string]string{"balance": w.format(step.TokenA, tk.BalanceOf(to))}, nil
	})
}

// approve sets the router's allowance over a token, or over LP shares when token_b is set.
func (w *World) approve(step config.Step) (map[string]string, error) {
	owner, err := w.Account(step.Account)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		if step.TokenB != "" {
			p, err := w.pair(step.TokenA, step.TokenB, step.Stable)
			if err != nil {
				return nil, err
			}
			amount, err := config.ParseAmount(step.Amount, pair.Decimals)
			if err != nil {
				return nil, err
			}
			return nil, p.Approve(owner, w.router.Address(), amount)
		}
		amount, err := w.amount(step.TokenA, step.Amount)
		if err != nil {
			return nil, err
		}
		if step.TokenA == config.NativeSymbol {
			return nil, w.wnative.Approve(owner, w.router.Address(), amount)
		}
		tk, ok := w.tokens[step.TokenA]
		if !ok {
			return nil, fmt.Errorf("%w: token %q", ErrUnknownName, step.TokenA)
		}
		return nil, tk.Approve(owner, w.router.Address(), amount)
	})
}

func (w *World) advanceTime(step config.Step) (map[string]string, error) {
	now := w.clock.Advance(step.Seconds)
	return map[string]string{"timestamp": fmt.Sprint(now)}, nil
}

func (w *World) createPair(step config.Step) (map[string]string, error) {
	a, err := w.TokenAddress(step.TokenA)
	if err != nil {
		return nil, err
	}
	b, err := w.TokenAddress(step.TokenB)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		addr, err := w.factory.CreatePair(a, b, step.Stable)
		if err != nil {
			return nil, err
		}
		return map[string]string{"pair": addr.Hex(), "pairs": fmt.Sprint(w.factory.AllPairsLength())}, nil
	})
}

func (w *World) addLiquidity(step config.Step) (map[string]string, error) {
	from, to, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	a, err := w.TokenAddress(step.TokenA)
	if err != nil {
		return nil, err
	}
	b, err := w.TokenAddress(step.TokenB)
	if err != nil {
		return nil, err
	}
	amountA, err := w.amount(step.TokenA, step.AmountA)
	if err != nil {
		return nil, err
	}
	amountB, err := w.amount(step.TokenB, step.AmountB)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		usedA, usedB, liquidity, err := w.router.AddLiquidity(from, router.AddLiquidityParams{
			TokenA:         a,
			TokenB:         b,
			Stable:         step.Stable,
			AmountADesired: amountA,
			AmountBDesired: amountB,
			AmountAMin:     new(uint256.Int),
			AmountBMin:     new(uint256.Int),
			To:             to,
			Deadline:       w.deadline(),
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"amount_a":  w.format(step.TokenA, usedA),
			"amount_b":  w.format(step.TokenB, usedB),
			"liquidity": config.FormatAmount(liquidity, pair.Decimals),
		}, nil
	})
}

func (w *World) addLiquidityNative(step config.Step) (map[string]string, error) {
	from, to, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	tk, err := w.TokenAddress(step.TokenA)
	if err != nil {
		return nil, err
	}
	amount, err := w.amount(step.TokenA, step.AmountA)
	if err != nil {
		return nil, err
	}
	value, err := config.ParseAmount(step.Value, 18)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		usedToken, usedNative, liquidity, err := w.router.AddLiquidityNative(from, value, router.AddLiquidityNativeParams{
			Token:              tk,
			Stable:             step.Stable,
			AmountTokenDesired: amount,
			AmountTokenMin:     new(uint256.Int),
			AmountNativeMin:    new(uint256.Int),
			To:                 to,
			Deadline:           w.deadline(),
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"amount_token":  w.format(step.TokenA, usedToken),
			"amount_native": config.FormatAmount(usedNative, 18),
			"liquidity":     config.FormatAmount(liquidity, pair.Decimals),
		}, nil
	})
}

// liquidity parses a share amount, "all" meaning the owner's whole balance.
func liquidity(p *pair.Pair, owner common.Address, raw string) (*uint256.Int, error) {
	if raw == "all" {
		return p.BalanceOf(owner), nil
	}
	return config.ParseAmount(raw, pair.Decimals)
}

func (w *World) removeLiquidity(step config.Step) (map[string]string, error) {
	from, to, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	a, err := w.TokenAddress(step.TokenA)
	if err != nil {
		return nil, err
	}
	b, err := w.TokenAddress(step.TokenB)
	if err != nil {
		return nil, err
	}
	p, err := w.pair(step.TokenA, step.TokenB, step.Stable)
	if err != nil {
		return nil, err
	}
	shares, err := liquidity(p, from, step.Amount)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		amountA, amountB, err := w.router.RemoveLiquidity(from, router.RemoveLiquidityParams{
			TokenA:     a,
			TokenB:     b,
			Stable:     step.Stable,
			Liquidity:  shares,
			AmountAMin: new(uint256.Int),
			AmountBMin: new(uint256.Int),
			To:         to,
			Deadline:   w.deadline(),
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"amount_a": w.format(step.TokenA, amountA),
			"amount_b": w.format(step.TokenB, amountB),
		}, nil
	})
}

func (w *World) removeLiquidityNative(step config.Step) (map[string]string, error) {
	from, to, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	tk, err := w.TokenAddress(step.TokenA)
	if err != nil {
		return nil, err
	}
	p, err := w.pair(step.TokenA, config.NativeSymbol, step.Stable)
	if err != nil {
		return nil, err
	}
	shares, err := liquidity(p, from, step.Amount)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		amountToken, amountNative, err := w.router.RemoveLiquidityNative(from, router.RemoveLiquidityNativeParams{
			Token:           tk,
			Stable:          step.Stable,
			Liquidity:       shares,
			AmountTokenMin:  new(uint256.Int),
			AmountNativeMin: new(uint256.Int),
			To:              to,
			Deadline:        w.deadline(),
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"amount_token":  w.format(step.TokenA, amountToken),
			"amount_native": config.FormatAmount(amountNative, 18),
		}, nil
	})
}

// routes resolves an explicit symbol path, or searches for the best route from in to out.
func (w *World) routes(path []string, in, out string, amountIn *uint256.Int, maxHops int) ([]router.Route, error) {
	if len(path) == 0 {
		from, err := w.TokenAddress(in)
		if err != nil {
			return nil, err
		}
		to, err := w.TokenAddress(out)
		if err != nil {
			return nil, err
		}
		if maxHops == 0 {
			maxHops = defaultMaxHops
		}
		routes, _, err := w.router.FindBestRoute(amountIn, from, to, maxHops)
		return routes, err
	}

	routes := make([]router.Route, len(path)-1)
	for i := range routes {
		from, err := w.TokenAddress(path[i])
		if err != nil {
			return nil, err
		}
		to, err := w.TokenAddress(path[i+1])
		if err != nil {
			return nil, err
		}
		routes[i] = router.Route{From: from, To: to}
	}
	return routes, nil
}

// endpoints returns the input and output symbols of a swap step.
func endpoints(step config.Step, in, out string) (string, string) {
	if len(step.Path) > 0 {
		return step.Path[0], step.Path[len(step.Path)-1]
	}
	return in, out
}

func (w *World) describe(routes []router.Route, quotes []router.Quote) string {
	if len(routes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(w.symbols[routes[0].From])
	for i, r := range routes {
		b.WriteString(" > ")
		b.WriteString(w.symbols[r.To])
		if quotes[i+1].Stable {
			b.WriteString(" (stable)")
		}
	}
	return b.String()
}

func (w *World) swapOutput(out string, routes []router.Route, quotes []router.Quote) map[string]string {
	return map[string]string{
		"amount_out": w.format(out, quotes[len(quotes)-1].Amount),
		"route":      w.describe(routes, quotes),
	}
}

func (w *World) minOut(symbol, raw string) (*uint256.Int, error) {
	if raw == "" {
		return new(uint256.Int), nil
	}
	return w.amount(symbol, raw)
}

func (w *World) swap(step config.Step) (map[string]string, error) {
	from, to, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	in, out := endpoints(step, step.TokenA, step.TokenB)
	amountIn, err := w.amount(in, step.Amount)
	if err != nil {
		return nil, err
	}
	minOut, err := w.minOut(out, step.MinOut)
	if err != nil {
		return nil, err
	}
	routes, err := w.routes(step.Path, in, out, amountIn, step.MaxHops)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		quotes, err := w.router.SwapExactTokensForTokens(from, amountIn, minOut, routes, to, w.deadline())
		if err != nil {
			return nil, err
		}
		return w.swapOutput(out, routes, quotes), nil
	})
}

func (w *World) swapNativeForTokens(step config.Step) (map[string]string, error) {
	from, to, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	in, out := endpoints(step, config.NativeSymbol, step.TokenA)
	value, err := config.ParseAmount(step.Value, 18)
	if err != nil {
		return nil, err
	}
	minOut, err := w.minOut(out, step.MinOut)
	if err != nil {
		return nil, err
	}
	routes, err := w.routes(step.Path, in, out, value, step.MaxHops)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		quotes, err := w.router.SwapExactNativeForTokens(from, value, minOut, routes, to, w.deadline())
		if err != nil {
			return nil, err
		}
		return w.swapOutput(out, routes, quotes), nil
	})
}

func (w *World) swapTokensForNative(step config.Step) (map[string]string, error) {
	from, to, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	in, out := endpoints(step, step.TokenA, config.NativeSymbol)
	amountIn, err := w.amount(in, step.Amount)
	if err != nil {
		return nil, err
	}
	minOut, err := w.minOut(out, step.MinOut)
	if err != nil {
		return nil, err
	}
	routes, err := w.routes(step.Path, in, out, amountIn, step.MaxHops)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		quotes, err := w.router.SwapExactTokensForNative(from, amountIn, minOut, routes, to, w.deadline())
		if err != nil {
			return nil, err
		}
		return w.swapOutput(out, routes, quotes), nil
	})
}

// quote prices a route without touching state.
func (w *World) quote(step config.Step) (map[string]string, error) {
	in, out := endpoints(step, step.TokenA, step.TokenB)
	amountIn, err := w.amount(in, step.Amount)
	if err != nil {
		return nil, err
	}
	routes, err := w.routes(step.Path, in, out, amountIn, step.MaxHops)
	if err != nil {
		return nil, err
	}
	quotes, err := w.router.GetAmountsOut(amountIn, routes)
	if err != nil {
		return nil, err
	}
	return w.swapOutput(out, routes, quotes), nil
}

func (w *World) claimFees(step config.Step) (map[string]string, error) {
	owner, err := w.Account(step.Account)
	if err != nil {
		return nil, err
	}
	p, err := w.pair(step.TokenA, step.TokenB, step.Stable)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		claimed0, claimed1, err := p.ClaimFees(owner)
		if err != nil {
			return nil, err
		}
		symbol0, symbol1 := w.symbols[p.Token0()], w.symbols[p.Token1()]
		return map[string]string{
			"claimed_" + symbol0: w.format(symbol0, claimed0),
			"claimed_" + symbol1: w.format(symbol1, claimed1),
		}, nil
	})
}

func (w *World) setFeeTo(step config.Step) (map[string]string, error) {
	sender, feeTo, err := w.sender(step)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		if err := w.factory.SetFeeTo(sender, feeTo); err != nil {
			return nil, err
		}
		return map[string]string{"fee_to": feeTo.Hex()}, nil
	})
}

func (w *World) sync(step config.Step) (map[string]string, error) {
	sender, err := w.Account(step.Account)
	if err != nil {
		return nil, err
	}
	p, err := w.pair(step.TokenA, step.TokenB, step.Stable)
	if err != nil {
		return nil, err
	}
	return w.tx(func() (map[string]string, error) {
		if err := p.Sync(sender); err != nil {
			return nil, err
		}
		r0, r1, _ := p.GetReserves()
		symbol0, symbol1 := w.symbols[p.Token0()], w.symbols[p.Token1()]
		return map[string]string{
			"reserve_" + symbol0: w.format(symbol0, r0),
			"reserve_" + symbol1: w.format(symbol1, r1),
		}, nil
	})
}
