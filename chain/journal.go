package chain

// Journal is an op log of undo closures. Writes made through Value and Map record their inverse
// while a transaction is open, and Rollback replays them newest first.
// A Journal is not safe for concurrent use; Host serializes access to it.
type Journal struct {
	ops   []func()
	depth int
}

// NewJournal returns an empty journal with no open transaction.
func NewJournal() *Journal {
	return &Journal{ops: make([]func(), 0, 64)}
}

func (j *Journal) record(undo func()) {
	if j.depth == 0 {
		return
	}
	j.ops = append(j.ops, undo)
}

// OpIndex returns the number of recorded operations, usable as a Rollback restore point.
func (j *Journal) OpIndex() int {
	return len(j.ops)
}

// Rollback undoes every operation recorded after restorePoint.
func (j *Journal) Rollback(restorePoint int) {
	for i := len(j.ops) - 1; i >= restorePoint; i-- {
		j.ops[i]()
		j.ops[i] = nil
	}
	j.ops = j.ops[:restorePoint]
}

// begin opens a (possibly nested) transaction and returns its restore point.
func (j *Journal) begin() int {
	j.depth++
	return len(j.ops)
}

// end closes the innermost transaction. Closing the outermost one discards the log.
func (j *Journal) end() {
	j.depth--
	if j.depth == 0 {
		clear(j.ops)
		j.ops = j.ops[:0]
	}
}

// Value is a journaled scalar.
type Value[T any] struct {
	j *Journal
	v T
}

func NewValue[T any](j *Journal, initial T) *Value[T] {
	return &Value[T]{j: j, v: initial}
}

func (v *Value[T]) Get() T {
	return v.v
}

func (v *Value[T]) Set(x T) {
	prev := v.v
	v.j.record(func() { v.v = prev })
	v.v = x
}

// Map is a journaled map. Stored values must be treated as immutable: replace, never mutate.
type Map[K comparable, V any] struct {
	j *Journal
	m map[K]V
}

func NewMap[K comparable, V any](j *Journal) *Map[K, V] {
	return &Map[K, V]{j: j, m: make(map[K]V)}
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.m[k]
	return v, ok
}

func (m *Map[K, V]) Len() int {
	return len(m.m)
}

func (m *Map[K, V]) Set(k K, v V) {
	prev, existed := m.m[k]
	m.j.record(func() {
		if existed {
			m.m[k] = prev
		} else {
			delete(m.m, k)
		}
	})
	m.m[k] = v
}

func (m *Map[K, V]) Delete(k K) {
	prev, existed := m.m[k]
	if !existed {
		return
	}
	m.j.record(func() { m.m[k] = prev })
	delete(m.m, k)
}

// Range calls fn for every entry in unspecified order until fn returns false.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	for k, v := range m.m {
		if !fn(k, v) {
			return
		}
	}
}
