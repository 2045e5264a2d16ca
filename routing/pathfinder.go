package routing

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

var ErrUnknownToken = errors.New("routing: token not in graph")

// Hop is one step of a swap path.
type Hop struct {
	TokenInID  uint64 `json:"tokenIn"`
	TokenOutID uint64 `json:"tokenOut"`
	PairID     uint64 `json:"pair"`
}

// GetAmountOutFunc quotes one pair. A nil func excludes the pair from routing.
type GetAmountOutFunc func(amountIn *big.Int, tokenInID, tokenOutID uint64) (*big.Int, error)

var bigIntPool = sync.Pool{
	New: func() any {
		return new(big.Int)
	},
}

// searchState is the scratch space of one FindBestSwapPath call.
type searchState struct {
	current int
	paths   [][]Hop    // token index -> best path found so far
	amounts []*big.Int // token index -> best amount reached
	visited []bitset   // token index -> tokens on that path
	scratch *big.Int
}

// Graph is a read-only search engine over one View. It is safe for concurrent use.
type Graph struct {
	view         *View
	tokenToIndex map[uint64]int
	quoters      []GetAmountOutFunc // pair index -> quoter
}

// NewGraph prepares view for searching. quoters maps pair IDs to their quote functions;
// pairs without one are skipped.
func NewGraph(view *View, quoters map[uint64]GetAmountOutFunc) *Graph {
	v := view.Clone()
	if v == nil {
		v = &View{}
	}
	tokenToIndex := make(map[uint64]int, len(v.Tokens))
	for i, id := range v.Tokens {
		tokenToIndex[id] = i
	}
	byIndex := make([]GetAmountOutFunc, len(v.Pairs))
	for i, id := range v.Pairs {
		byIndex[i] = quoters[id]
	}
	return &Graph{
		view:         v,
		tokenToIndex: tokenToIndex,
		quoters:      byIndex,
	}
}

// FindBestSwapPath returns the path of at most maxHops hops from tokenIn to tokenOut that
// yields the most output, and that output. A nil path means the tokens are not connected
// within maxHops.
func (g *Graph) FindBestSwapPath(tokenInID, tokenOutID uint64, amountIn *big.Int, maxHops int) ([]Hop, *big.Int, error) {
	start, ok := g.tokenToIndex[tokenInID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownToken, tokenInID)
	}
	end, ok := g.tokenToIndex[tokenOutID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownToken, tokenOutID)
	}
	if amountIn == nil || amountIn.Sign() <= 0 || start == end {
		return nil, nil, nil
	}

	n := len(g.view.Tokens)
	state := &searchState{
		paths:   make([][]Hop, n),
		amounts: make([]*big.Int, n),
		visited: make([]bitset, n),
		scratch: bigIntPool.Get().(*big.Int).SetUint64(0),
	}
	defer func() {
		bigIntPool.Put(state.scratch)
		for _, a := range state.amounts {
			if a != nil {
				bigIntPool.Put(a)
			}
		}
	}()
	for i := 0; i < n; i++ {
		state.visited[i] = newBitset(n)
		state.amounts[i] = bigIntPool.Get().(*big.Int).SetUint64(0)
	}
	state.amounts[start].Set(amountIn)

	for round := 0; round < maxHops; round++ {
		for j := 0; j < n; j++ {
			if state.amounts[j].Sign() == 0 || len(state.paths[j]) >= maxHops {
				continue
			}
			state.current = j
			if err := g.relax(state); err != nil {
				return nil, nil, err
			}
		}
	}

	best := state.paths[end]
	if best == nil {
		return nil, nil, nil
	}
	return best, new(big.Int).Set(state.amounts[end]), nil
}

// relax tries every edge out of the current token and keeps any improvement.
func (g *Graph) relax(state *searchState) error {
	cur := state.current
	amount := state.amounts[cur]
	visited := state.visited[cur]
	path := state.paths[cur]
	tokenID := g.view.Tokens[cur]

	if visited.isSet(cur) {
		return errors.New("routing: cycle detected in path history")
	}

	bestOut := state.scratch
	for _, e := range g.view.Adjacency[cur] {
		target := g.view.EdgeTargets[e]
		if visited.isSet(target) {
			continue
		}

		targetID := g.view.Tokens[target]
		bestPair := -1
		bestOut.SetUint64(0)
		for _, p := range g.view.EdgePairs[e] {
			quote := g.quoters[p]
			if quote == nil {
				continue
			}
			out, err := quote(amount, tokenID, targetID)
			if err == nil && out.Cmp(bestOut) > 0 {
				bestOut.Set(out)
				bestPair = p
			}
		}
		if bestPair == -1 || bestOut.Cmp(state.amounts[target]) <= 0 {
			continue
		}

		state.amounts[target].Set(bestOut)
		next := make([]Hop, len(path)+1)
		copy(next, path)
		next[len(path)] = Hop{TokenInID: tokenID, TokenOutID: targetID, PairID: g.view.Pairs[bestPair]}
		state.paths[target] = next
		state.visited[target].copyFrom(visited)
		state.visited[target].set(cur)
	}
	return nil
}
