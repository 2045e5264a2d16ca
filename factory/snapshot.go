package factory

import (
	"fmt"
	"sort"
	"time"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/pair"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/defistate/defistate-amm-go/routing"
	"github.com/defistate/defistate-amm-go/token"
	"github.com/ethereum/go-ethereum/common"
)

const (
	TokensProtocolID engine.ProtocolID = "tokens"
	PairsProtocolID  engine.ProtocolID = "pairs"
	GraphProtocolID  engine.ProtocolID = "graph"
)

// Snapshot reads every deployed pair into an engine.State. Pair IDs are positions in the
// pair list; token IDs are handed out in the order tokens first show up in it and are never
// reused.
//
// Snapshot reads live contract state, so it must not run concurrently with host.Execute.
// Calling it from inside a transaction is fine.
func (f *Factory) Snapshot() *engine.State {
	f.graphMu.Lock()
	defer f.graphMu.Unlock()

	height := f.host.Height()
	now := f.host.Now()
	state := &engine.State{
		ChainID:   f.host.ChainID(),
		Timestamp: uint64(time.Now().UnixNano()),
		Block: engine.BlockSummary{
			Number:     height,
			Timestamp:  now,
			ReceivedAt: time.Now().UnixNano(),
		},
		Protocols: make(map[engine.ProtocolID]engine.ProtocolState, 3),
	}

	tokenView, pairView, err := f.readPairs()
	tokenState := engine.ProtocolState{
		Meta:              engine.ProtocolMeta{Name: "tokens", Tags: []string{"registry"}},
		SyncedBlockNumber: &height,
		Schema:            tokens.Schema,
	}
	pairState := engine.ProtocolState{
		Meta:              engine.ProtocolMeta{Name: "pairs", Tags: []string{"amm"}},
		SyncedBlockNumber: &height,
		Schema:            pairs.Schema,
	}
	if err != nil {
		f.logger.Error("failed to read pairs", "error", err)
		tokenState.Error = err.Error()
		pairState.Error = err.Error()
	} else {
		tokenState.Data = tokenView
		pairState.Data = pairView
	}
	state.Protocols[TokensProtocolID] = tokenState
	state.Protocols[PairsProtocolID] = pairState

	if err == nil {
		f.reconcileGraph(pairView)
	}
	state.Protocols[GraphProtocolID] = engine.ProtocolState{
		Meta:              engine.ProtocolMeta{Name: "graph", Tags: []string{"routing"}},
		SyncedBlockNumber: &height,
		Schema:            routing.Schema,
		Data:              f.graph.View(),
	}
	return state
}

// Graph is the routing graph as of the last Snapshot.
func (f *Factory) Graph() *routing.System {
	return f.graph
}

// readPairs must be called with graphMu held.
func (f *Factory) readPairs() ([]tokens.Token, []pairs.Pair, error) {
	n := f.allPairs.Len()
	pairView := make([]pairs.Pair, 0, n)
	seen := make(map[uint64]tokens.Token)

	for i := 0; i < n; i++ {
		p, _ := f.allPairs.Get(i)
		t0, err := f.tokenEntry(p.Token0())
		if err != nil {
			return nil, nil, err
		}
		t1, err := f.tokenEntry(p.Token1())
		if err != nil {
			return nil, nil, err
		}
		seen[t0.ID] = t0
		seen[t1.ID] = t1
		pairView = append(pairView, viewOf(uint64(i), p, t0, t1))
	}

	tokenView := make([]tokens.Token, 0, len(seen))
	for _, t := range seen {
		tokenView = append(tokenView, t)
	}
	sort.Slice(tokenView, func(i, j int) bool { return tokenView[i].ID < tokenView[j].ID })
	return tokenView, pairView, nil
}

func (f *Factory) tokenEntry(addr common.Address) (tokens.Token, error) {
	t, err := token.Resolve(f.host, addr)
	if err != nil {
		return tokens.Token{}, fmt.Errorf("%w: %w", ErrTokenNotFound, err)
	}
	id, ok := f.tokenIDs[addr]
	if !ok {
		id = uint64(len(f.tokenIDs))
		f.tokenIDs[addr] = id
	}
	return tokens.Token{ID: id, Address: addr, Symbol: t.Symbol(), Decimals: t.Decimals()}, nil
}

func viewOf(id uint64, p *pair.Pair, t0, t1 tokens.Token) pairs.Pair {
	r0, r1, last := p.GetReserves()
	return pairs.Pair{
		ID:                 id,
		Address:            p.Address(),
		Token0:             t0.ID,
		Token1:             t1.ID,
		Decimals0:          t0.Decimals,
		Decimals1:          t1.Decimals,
		Stable:             p.Stable(),
		Fee:                p.SwapFee().ToBig(),
		Reserve0:           r0.ToBig(),
		Reserve1:           r1.ToBig(),
		TotalSupply:        p.TotalSupply().ToBig(),
		Reserve0Cumulative: p.Reserve0CumulativeLast().ToBig(),
		Reserve1Cumulative: p.Reserve1CumulativeLast().ToBig(),
		BlockTimestampLast: last,
	}
}

// reconcileGraph brings the routing graph in line with the pair list. The list only grows
// within a transaction but a reverted one can shrink it, so everything from the first pair
// that no longer matches is dropped and re-added.
func (f *Factory) reconcileGraph(view []pairs.Pair) {
	keep := 0
	for keep < len(f.graphed) && keep < len(view) && f.graphed[keep] == view[keep].Address {
		keep++
	}

	if keep < len(f.graphed) {
		stale := make([]uint64, 0, len(f.graphed)-keep)
		for id := keep; id < len(f.graphed); id++ {
			stale = append(stale, uint64(id))
		}
		f.graph.RemovePairs(stale)
		f.graphed = f.graphed[:keep]
		f.logger.Debug("routing graph rewound", "removed", len(stale), "kept", keep)
	}

	if keep < len(view) {
		ids := make([]uint64, 0, len(view)-keep)
		edges := make([][2]uint64, 0, len(view)-keep)
		for _, p := range view[keep:] {
			ids = append(ids, p.ID)
			edges = append(edges, [2]uint64{p.Token0, p.Token1})
			f.graphed = append(f.graphed, p.Address)
		}
		f.graph.AddPairs(ids, edges)
	}
}
