package pairs

import "math/big"

type PairSystemDiff struct {
	Additions []Pair   `json:"additions,omitempty"`
	Updates   []Pair   `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d PairSystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// Differ calculates the difference between two pair views keyed by ID.
// A pair is updated when any of its mutable fields moved; identity fields are fixed at deployment.
func Differ(old, new []Pair) PairSystemDiff {
	oldByID := make(map[uint64]Pair, len(old))
	for _, p := range old {
		oldByID[p.ID] = p
	}

	var diff PairSystemDiff
	seen := make(map[uint64]struct{}, len(new))
	for _, p := range new {
		seen[p.ID] = struct{}{}
		prev, exists := oldByID[p.ID]
		switch {
		case !exists:
			diff.Additions = append(diff.Additions, p)
		case changed(prev, p):
			diff.Updates = append(diff.Updates, p)
		}
	}

	for _, p := range old {
		if _, ok := seen[p.ID]; !ok {
			diff.Deletions = append(diff.Deletions, p.ID)
		}
	}
	return diff
}

func changed(a, b Pair) bool {
	return a.BlockTimestampLast != b.BlockTimestampLast ||
		a.Address != b.Address ||
		!equal(a.Reserve0, b.Reserve0) ||
		!equal(a.Reserve1, b.Reserve1) ||
		!equal(a.TotalSupply, b.TotalSupply) ||
		!equal(a.Reserve0Cumulative, b.Reserve0Cumulative) ||
		!equal(a.Reserve1Cumulative, b.Reserve1Cumulative) ||
		!equal(a.Fee, b.Fee)
}

func equal(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
