package routing

const defaultCompactionThreshold = 1000

// registry is the non-thread-safe graph behind System. Pairs join two tokens with one edge
// in each direction; several pairs (a volatile and a stable one, say) can share an edge.
type registry struct {
	tokenToIndex map[uint64]int
	pairToIndex  map[uint64]int

	tokens      []uint64
	pairs       []uint64
	adjacency   [][]int
	edgeTargets []int
	edgePairs   [][]int

	danglingEdgeCount   int
	compactionThreshold int
}

func newRegistry(compactionThreshold int) *registry {
	if compactionThreshold <= 0 {
		compactionThreshold = defaultCompactionThreshold
	}
	return &registry{
		tokenToIndex:        make(map[uint64]int),
		pairToIndex:         make(map[uint64]int),
		tokens:              make([]uint64, 0),
		pairs:               make([]uint64, 0),
		adjacency:           make([][]int, 0),
		edgeTargets:         make([]int, 0),
		edgePairs:           make([][]int, 0),
		compactionThreshold: compactionThreshold,
	}
}

// newRegistryFromView rebuilds a registry that owns a deep copy of view.
func newRegistryFromView(view *View, compactionThreshold int) *registry {
	r := newRegistry(compactionThreshold)
	if view == nil {
		return r
	}
	c := view.Clone()
	r.tokens, r.pairs = c.Tokens, c.Pairs
	r.adjacency, r.edgeTargets, r.edgePairs = c.Adjacency, c.EdgeTargets, c.EdgePairs
	if r.adjacency == nil {
		r.adjacency = make([][]int, len(r.tokens))
	}
	if r.edgePairs == nil {
		r.edgePairs = make([][]int, len(r.edgeTargets))
	}
	for i, id := range r.tokens {
		r.tokenToIndex[id] = i
	}
	for i, id := range r.pairs {
		r.pairToIndex[id] = i
	}
	return r
}

func (r *registry) tokenIndex(id uint64) int {
	idx, ok := r.tokenToIndex[id]
	if !ok {
		idx = len(r.tokens)
		r.tokens = append(r.tokens, id)
		r.tokenToIndex[id] = idx
		r.adjacency = append(r.adjacency, nil)
	}
	return idx
}

func (r *registry) pairIndex(id uint64) int {
	idx, ok := r.pairToIndex[id]
	if !ok {
		idx = len(r.pairs)
		r.pairs = append(r.pairs, id)
		r.pairToIndex[id] = idx
	}
	return idx
}

// link attaches pair index p to the edge from -> to, creating the edge if needed.
func (r *registry) link(from, to, p int) {
	for _, e := range r.adjacency[from] {
		if r.edgeTargets[e] != to {
			continue
		}
		for _, existing := range r.edgePairs[e] {
			if existing == p {
				return
			}
		}
		if len(r.edgePairs[e]) == 0 {
			r.danglingEdgeCount--
		}
		r.edgePairs[e] = append(r.edgePairs[e], p)
		return
	}

	e := len(r.edgeTargets)
	r.edgeTargets = append(r.edgeTargets, to)
	r.edgePairs = append(r.edgePairs, []int{p})
	r.adjacency[from] = append(r.adjacency[from], e)
}

func (r *registry) addPair(pairID, token0, token1 uint64) {
	a, b := r.tokenIndex(token0), r.tokenIndex(token1)
	p := r.pairIndex(pairID)
	r.link(a, b, p)
	r.link(b, a, p)
}

// removePair detaches a pair from every edge. Edges left without pairs become dangling
// and are dropped by the next compaction.
func (r *registry) removePair(pairID uint64) {
	p, ok := r.pairToIndex[pairID]
	if !ok {
		return
	}

	for e, list := range r.edgePairs {
		kept := list[:0]
		removed := false
		for _, idx := range list {
			if idx == p {
				removed = true
				continue
			}
			kept = append(kept, idx)
		}
		if !removed {
			continue
		}
		r.edgePairs[e] = kept
		if len(kept) == 0 {
			r.danglingEdgeCount++
		}
	}

	if r.danglingEdgeCount > r.compactionThreshold {
		r.compact()
	}
}

// compact physically drops dangling edges together with the tokens and pairs no live edge
// references any more, then renumbers every index.
func (r *registry) compact() {
	edgeRemap := make(map[int]int, len(r.edgeTargets))
	var edgeTargets []int
	var edgePairs [][]int
	for e, list := range r.edgePairs {
		if len(list) == 0 {
			continue
		}
		edgeRemap[e] = len(edgeTargets)
		edgeTargets = append(edgeTargets, r.edgeTargets[e])
		edgePairs = append(edgePairs, list)
	}

	liveTokens := make(map[int]struct{})
	for e, target := range r.edgeTargets {
		if _, ok := edgeRemap[e]; ok {
			liveTokens[target] = struct{}{}
		}
	}
	for t, edges := range r.adjacency {
		for _, e := range edges {
			if _, ok := edgeRemap[e]; ok {
				liveTokens[t] = struct{}{}
				break
			}
		}
	}
	livePairs := make(map[int]struct{})
	for _, list := range edgePairs {
		for _, p := range list {
			livePairs[p] = struct{}{}
		}
	}

	tokenRemap := make(map[int]int, len(liveTokens))
	tokens := make([]uint64, 0, len(liveTokens))
	tokenToIndex := make(map[uint64]int, len(liveTokens))
	for old, id := range r.tokens {
		if _, ok := liveTokens[old]; ok {
			tokenRemap[old] = len(tokens)
			tokenToIndex[id] = len(tokens)
			tokens = append(tokens, id)
		}
	}

	pairRemap := make(map[int]int, len(livePairs))
	pairs := make([]uint64, 0, len(livePairs))
	pairToIndex := make(map[uint64]int, len(livePairs))
	for old, id := range r.pairs {
		if _, ok := livePairs[old]; ok {
			pairRemap[old] = len(pairs)
			pairToIndex[id] = len(pairs)
			pairs = append(pairs, id)
		}
	}

	for i := range edgeTargets {
		edgeTargets[i] = tokenRemap[edgeTargets[i]]
	}
	for _, list := range edgePairs {
		for j := range list {
			list[j] = pairRemap[list[j]]
		}
	}

	adjacency := make([][]int, len(tokens))
	for old, edges := range r.adjacency {
		t, ok := tokenRemap[old]
		if !ok {
			continue
		}
		kept := make([]int, 0, len(edges))
		for _, e := range edges {
			if ne, ok := edgeRemap[e]; ok {
				kept = append(kept, ne)
			}
		}
		adjacency[t] = kept
	}

	r.tokens, r.tokenToIndex = tokens, tokenToIndex
	r.pairs, r.pairToIndex = pairs, pairToIndex
	r.edgeTargets = append(make([]int, 0, len(edgeTargets)), edgeTargets...)
	r.edgePairs = edgePairs
	if r.edgePairs == nil {
		r.edgePairs = make([][]int, 0)
	}
	r.adjacency = adjacency
	r.danglingEdgeCount = 0
}

// pairsForToken returns the IDs of the live pairs touching token, in first-seen order.
func (r *registry) pairsForToken(tokenID uint64) []uint64 {
	t, ok := r.tokenToIndex[tokenID]
	if !ok {
		return nil
	}
	seen := make(map[int]struct{})
	var out []uint64
	for _, e := range r.adjacency[t] {
		for _, p := range r.edgePairs[e] {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, r.pairs[p])
		}
	}
	return out
}

func (r *registry) view() *View {
	return (&View{
		Tokens:      r.tokens,
		Pairs:       r.pairs,
		Adjacency:   r.adjacency,
		EdgeTargets: r.edgeTargets,
		EdgePairs:   r.edgePairs,
	}).Clone()
}
