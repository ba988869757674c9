// Package registry provides the dual-view set used for members and tasks:
// an ordered sequence for deterministic iteration and selection, and an
// index for O(1) membership checks. Both views are only mutated together.
package registry

// OrderedSet is a duplicate-free sequence with constant-time lookup.
// The zero value is not usable; call NewOrderedSet.
type OrderedSet[K comparable] struct {
	items []K
	index map[K]int // item → position in items
}

// NewOrderedSet builds a set from items in order. Duplicates after the
// first occurrence are dropped.
func NewOrderedSet[K comparable](items ...K) *OrderedSet[K] {
	s := &OrderedSet[K]{index: make(map[K]int, len(items))}
	for _, it := range items {
		s.Insert(it)
	}
	return s
}

// Insert appends k. Returns false if k was already present.
func (s *OrderedSet[K]) Insert(k K) bool {
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, k)
	return true
}

// Remove deletes k by moving the last element into its slot, so order is
// disturbed. Returns false if k was absent.
func (s *OrderedSet[K]) Remove(k K) bool {
	i, ok := s.index[k]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if i != last {
		moved := s.items[last]
		s.items[i] = moved
		s.index[moved] = i
	}
	var zero K
	s.items[last] = zero
	s.items = s.items[:last]
	delete(s.index, k)
	return true
}

// Contains reports whether k is present.
func (s *OrderedSet[K]) Contains(k K) bool {
	_, ok := s.index[k]
	return ok
}

// Len returns the number of elements.
func (s *OrderedSet[K]) Len() int { return len(s.items) }

// At returns the element at position i.
func (s *OrderedSet[K]) At(i int) K { return s.items[i] }

// Clear empties both views.
func (s *OrderedSet[K]) Clear() {
	s.items = nil
	s.index = make(map[K]int)
}

// Items returns a copy of the ordered sequence.
func (s *OrderedSet[K]) Items() []K {
	out := make([]K, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy.
func (s *OrderedSet[K]) Clone() *OrderedSet[K] {
	c := &OrderedSet[K]{
		items: make([]K, len(s.items)),
		index: make(map[K]int, len(s.index)),
	}
	copy(c.items, s.items)
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// Consistent checks that the sequence and the index describe the same set.
func (s *OrderedSet[K]) Consistent() bool {
	if len(s.items) != len(s.index) {
		return false
	}
	for i, it := range s.items {
		if j, ok := s.index[it]; !ok || j != i {
			return false
		}
	}
	return true
}
