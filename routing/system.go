package routing

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// System is the concurrency-safe face of the graph. Writers serialize on a mutex; readers
// load an immutable cached view without locking.
type System struct {
	mu         sync.RWMutex
	registry   *registry
	cachedView atomic.Pointer[View]
}

// NewSystem creates an empty graph. compactionThreshold is the number of dangling edges
// tolerated before the graph is rebuilt; non-positive values select the default.
func NewSystem(compactionThreshold int) *System {
	s := &System{registry: newRegistry(compactionThreshold)}
	s.cachedView.Store(s.registry.view())
	return s
}

// NewSystemFromView restores a graph from a snapshot view.
func NewSystemFromView(view *View, compactionThreshold int) *System {
	s := &System{registry: newRegistryFromView(view, compactionThreshold)}
	s.cachedView.Store(s.registry.view())
	return s
}

// refresh must be called with s.mu held for writing.
func (s *System) refresh() {
	s.cachedView.Store(s.registry.view())
}

// AddPair connects token0 and token1 through pairID. Adding the same pair twice is a no-op.
func (s *System) AddPair(pairID, token0, token1 uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.addPair(pairID, token0, token1)
	s.refresh()
}

// AddPairs adds pairIDs[i] between tokens[i][0] and tokens[i][1], refreshing the view once.
// Mismatched lengths are a programmer error and panic.
func (s *System) AddPairs(pairIDs []uint64, tokens [][2]uint64) {
	if len(pairIDs) != len(tokens) {
		panic(fmt.Sprintf("mismatched input lengths: %d pair IDs and %d token pairs", len(pairIDs), len(tokens)))
	}
	if len(pairIDs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range pairIDs {
		s.registry.addPair(id, tokens[i][0], tokens[i][1])
	}
	s.refresh()
}

// RemovePairs detaches pairs from the graph, refreshing the view once.
func (s *System) RemovePairs(pairIDs []uint64) {
	if len(pairIDs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range pairIDs {
		s.registry.removePair(id)
	}
	s.refresh()
}

// Compact drops dangling edges immediately instead of waiting for the threshold.
func (s *System) Compact() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.compact()
	s.refresh()
}

func (s *System) PairsForToken(tokenID uint64) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.pairsForToken(tokenID)
}

// View returns a deep copy of the cached view that the caller may mutate freely.
func (s *System) View() *View {
	v := s.cachedView.Load()
	if v == nil {
		return &View{}
	}
	return v.Clone()
}
