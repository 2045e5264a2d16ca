package tokens

type TokenSystemDiff struct {
	Additions []Token  `json:"additions,omitempty"`
	Updates   []Token  `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d TokenSystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// Differ calculates the difference between two token views keyed by ID.
func Differ(old, new []Token) TokenSystemDiff {
	oldByID := make(map[uint64]Token, len(old))
	for _, t := range old {
		oldByID[t.ID] = t
	}

	var diff TokenSystemDiff
	seen := make(map[uint64]struct{}, len(new))
	for _, t := range new {
		seen[t.ID] = struct{}{}
		prev, exists := oldByID[t.ID]
		switch {
		case !exists:
			diff.Additions = append(diff.Additions, t)
		case prev != t:
			// Token has no pointer fields, so struct equality is exact.
			diff.Updates = append(diff.Updates, t)
		}
	}

	for _, t := range old {
		if _, ok := seen[t.ID]; !ok {
			diff.Deletions = append(diff.Deletions, t.ID)
		}
	}
	return diff
}
