package pairs

import (
	"math/big"
	"sort"
)

// DeepCopy returns a Pair that shares no *big.Int with p.
func DeepCopy(p Pair) Pair {
	out := p
	out.Fee = copyBig(p.Fee)
	out.Reserve0 = copyBig(p.Reserve0)
	out.Reserve1 = copyBig(p.Reserve1)
	out.TotalSupply = copyBig(p.TotalSupply)
	out.Reserve0Cumulative = copyBig(p.Reserve0Cumulative)
	out.Reserve1Cumulative = copyBig(p.Reserve1Cumulative)
	return out
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Patcher applies diff to prevState and returns the next view ordered by ID.
// Every pair in the result is a deep copy, so neither input is shared with the output.
func Patcher(prevState []Pair, diff PairSystemDiff) ([]Pair, error) {
	next := make(map[uint64]Pair, len(prevState)+len(diff.Additions))
	for _, p := range prevState {
		next[p.ID] = p
	}

	for _, id := range diff.Deletions {
		delete(next, id)
	}
	for _, p := range diff.Updates {
		next[p.ID] = p
	}
	for _, p := range diff.Additions {
		next[p.ID] = p
	}

	out := make([]Pair, 0, len(next))
	for _, p := range next {
		out = append(out, DeepCopy(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
