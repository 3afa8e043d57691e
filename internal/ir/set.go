package ir

import "golang.org/x/exp/constraints"

// Set is a small insertion-order-agnostic set over any comparable key,
// backing BasicBlock.preds/succs. A plain map is enough here: pred/succ
// sets are tiny (branching factor ≤2) and recomputed wholesale on every
// updatePreds, so there is no benefit to a sorted/bitset structure the
// way there is for the allocator's interference sets (see
// golang.org/x/tools/container/intsets usage in liveness.go and
// internal/regalloc).
type Set[T comparable] struct {
	m map[T]struct{}
}

// NewSet returns an empty Set.
func NewSet[T comparable]() *Set[T] {
	return &Set[T]{m: make(map[T]struct{})}
}

// Add inserts v into the set.
func (s *Set[T]) Add(v T) { s.m[v] = struct{}{} }

// Remove deletes v from the set.
func (s *Set[T]) Remove(v T) { delete(s.m, v) }

// Has reports whether v is a member.
func (s *Set[T]) Has(v T) bool {
	_, ok := s.m[v]
	return ok
}

// Clear empties the set.
func (s *Set[T]) Clear() { s.m = make(map[T]struct{}) }

// Len returns the number of members.
func (s *Set[T]) Len() int { return len(s.m) }

// Items returns the set's members; order is unspecified.
func (s *Set[T]) Items() []T {
	out := make([]T, 0, len(s.m))
	for v := range s.m {
		out = append(out, v)
	}
	return out
}

// SortInts sorts small integer slices in place, over the generic
// constraints.Integer family rather than a hardcoded int.
func SortInts[T constraints.Integer](s []T) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
