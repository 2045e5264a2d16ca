package routing

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// livePairsForToken reads the pairs touching tokenID straight from a view.
func livePairsForToken(view *View, tokenID uint64) []uint64 {
	idx := -1
	for i, id := range view.Tokens {
		if id == tokenID {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	unique := make(map[uint64]struct{})
	for _, e := range view.Adjacency[idx] {
		for _, p := range view.EdgePairs[e] {
			unique[view.Pairs[p]] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(unique))
	for id := range unique {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestRegistry(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		assert.Equal(t, defaultCompactionThreshold, newRegistry(0).compactionThreshold)
		assert.Equal(t, 5, newRegistry(5).compactionThreshold)
		assert.Empty(t, newRegistry(0).view().Tokens)
	})

	t.Run("addPair links both directions", func(t *testing.T) {
		r := newRegistry(100)
		r.addPair(0, 10, 20)

		view := r.view()
		require.Len(t, view.Tokens, 2)
		require.Len(t, view.Pairs, 1)
		require.Len(t, view.EdgeTargets, 2)
		assert.Equal(t, []uint64{0}, livePairsForToken(view, 10))
		assert.Equal(t, []uint64{0}, livePairsForToken(view, 20))
	})

	t.Run("volatile and stable pairs share an edge", func(t *testing.T) {
		r := newRegistry(100)
		r.addPair(0, 10, 20)
		r.addPair(1, 10, 20)

		view := r.view()
		assert.Equal(t, []uint64{0, 1}, livePairsForToken(view, 10))
		assert.Len(t, view.EdgeTargets, 2, "no duplicate edges")
		assert.Len(t, view.EdgePairs[0], 2)
	})

	t.Run("addPair is idempotent", func(t *testing.T) {
		r := newRegistry(100)
		r.addPair(0, 10, 20)
		before := r.view()
		r.addPair(0, 10, 20)
		assert.Equal(t, before, r.view())
	})

	t.Run("removePair leaves dangling edges until compaction", func(t *testing.T) {
		r := newRegistry(100)
		r.addPair(0, 10, 20)
		r.addPair(1, 10, 30)
		r.addPair(2, 10, 20)

		r.removePair(0)
		assert.Equal(t, []uint64{1, 2}, livePairsForToken(r.view(), 10))
		assert.Zero(t, r.danglingEdgeCount)

		r.removePair(1)
		assert.Equal(t, 2, r.danglingEdgeCount, "10->30 and 30->10 are empty")
		assert.Len(t, r.view().EdgeTargets, 4)
		assert.Nil(t, r.pairsForToken(30))

		r.removePair(99)
		assert.Equal(t, 2, r.danglingEdgeCount, "unknown pairs are ignored")
	})

	t.Run("re-adding a removed pair revives its edge", func(t *testing.T) {
		r := newRegistry(100)
		r.addPair(0, 10, 20)
		r.removePair(0)
		require.Equal(t, 2, r.danglingEdgeCount)

		r.addPair(0, 10, 20)
		assert.Zero(t, r.danglingEdgeCount)
		assert.Equal(t, []uint64{0}, r.pairsForToken(20))
	})

	t.Run("compaction renumbers everything", func(t *testing.T) {
		r := newRegistry(1)
		r.addPair(0, 10, 20)
		r.addPair(1, 20, 30)
		r.addPair(2, 30, 40)

		r.removePair(0) // two dangling edges exceed the threshold of one
		view := r.view()
		assert.Zero(t, r.danglingEdgeCount)
		assert.ElementsMatch(t, []uint64{20, 30, 40}, view.Tokens)
		assert.ElementsMatch(t, []uint64{1, 2}, view.Pairs)
		assert.Len(t, view.EdgeTargets, 4)
		assert.Equal(t, []uint64{1, 2}, livePairsForToken(view, 30))
		assert.Nil(t, r.pairsForToken(10))
	})

	t.Run("view is a deep copy", func(t *testing.T) {
		r := newRegistry(100)
		r.addPair(0, 10, 20)
		view := r.view()
		view.Tokens[0] = 999
		view.EdgePairs[0][0] = 7
		assert.Equal(t, uint64(10), r.tokens[0])
		assert.Equal(t, 0, r.edgePairs[0][0])
	})

	t.Run("restore from view", func(t *testing.T) {
		r := newRegistry(100)
		r.addPair(0, 10, 20)
		r.addPair(1, 20, 30)

		restored := newRegistryFromView(r.view(), 100)
		assert.Equal(t, r.view(), restored.view())
		assert.Equal(t, []uint64{0, 1}, restored.pairsForToken(20))

		restored.addPair(2, 30, 40)
		assert.Equal(t, []uint64{1, 2}, restored.pairsForToken(30))
		assert.Nil(t, r.pairsForToken(40), "restoring does not alias the source")

		empty := newRegistryFromView(nil, 0)
		assert.Empty(t, empty.view().Tokens)
	})
}
