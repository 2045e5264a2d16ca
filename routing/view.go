// Package routing keeps the token/pair adjacency graph of the exchange and searches it for
// the best multi-hop swap path.
package routing

import "github.com/defistate/defistate-amm-go/engine"

const Schema engine.ProtocolSchema = "defistate-amm/routing/tokenPairGraph@v1"

// View is a self-contained snapshot of the graph. Tokens and Pairs hold IDs; every other
// slice holds indices into them. Adjacency[t] lists the edges leaving token index t,
// EdgeTargets[e] is the token index edge e points to and EdgePairs[e] the pair indices
// that can serve it.
type View struct {
	Tokens      []uint64 `json:"tokens"`
	Pairs       []uint64 `json:"pairs"`
	Adjacency   [][]int  `json:"adjacency"`
	EdgeTargets []int    `json:"edgeTargets"`
	EdgePairs   [][]int  `json:"edgePairs"`
}

// Clone returns a deep copy of v. A nil view clones to nil.
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	return &View{
		Tokens:      append(make([]uint64, 0, len(v.Tokens)), v.Tokens...),
		Pairs:       append(make([]uint64, 0, len(v.Pairs)), v.Pairs...),
		Adjacency:   cloneNested(v.Adjacency),
		EdgeTargets: append(make([]int, 0, len(v.EdgeTargets)), v.EdgeTargets...),
		EdgePairs:   cloneNested(v.EdgePairs),
	}
}

// Equal reports whether two views describe the same graph layout.
func (v *View) Equal(o *View) bool {
	if v == nil || o == nil {
		return v == o
	}
	return equalSlices(v.Tokens, o.Tokens) &&
		equalSlices(v.Pairs, o.Pairs) &&
		equalSlices(v.EdgeTargets, o.EdgeTargets) &&
		equalNested(v.Adjacency, o.Adjacency) &&
		equalNested(v.EdgePairs, o.EdgePairs)
}

func cloneNested(in [][]int) [][]int {
	if in == nil {
		return nil
	}
	out := make([][]int, len(in))
	for i, inner := range in {
		if inner != nil {
			out[i] = append(make([]int, 0, len(inner)), inner...)
		}
	}
	return out
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalNested(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalSlices(a[i], b[i]) {
			return false
		}
	}
	return true
}
