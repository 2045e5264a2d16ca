package tokens

import "sort"

// Patcher applies diff to prevState and returns the next view ordered by ID.
// Token holds no pointers, so copying the struct is a full copy.
func Patcher(prevState []Token, diff TokenSystemDiff) ([]Token, error) {
	next := make(map[uint64]Token, len(prevState)+len(diff.Additions))
	for _, t := range prevState {
		next[t.ID] = t
	}

	for _, id := range diff.Deletions {
		delete(next, id)
	}
	for _, t := range diff.Updates {
		next[t.ID] = t
	}
	for _, t := range diff.Additions {
		next[t.ID] = t
	}

	out := make([]Token, 0, len(next))
	for _, t := range next {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
