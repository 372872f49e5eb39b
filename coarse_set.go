package cds

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// CoarseSet is a sorted set backed by a singly linked chain guarded by one
// reader/writer lock. Add and Remove hold the write lock for the whole
// walk; Contains holds the read lock, so lookups run in parallel with each
// other but not with writers.
//
// The zero CoarseSet is empty and ready to use.
type CoarseSet[T constraints.Ordered] struct {
	mu   sync.RWMutex
	head *node[T]
	len  int
}

// NewCoarseSet creates an empty CoarseSet.
func NewCoarseSet[T constraints.Ordered]() *CoarseSet[T] {
	return &CoarseSet[T]{}
}

// Add inserts elem in order and reports whether it was absent.
func (s *CoarseSet[T]) Add(elem T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, found := seek(&s.head, elem)
	if found {
		return false
	}
	*link = &node[T]{value: elem, next: *link}
	s.len++
	return true
}

// Remove unlinks elem and reports whether it was present.
func (s *CoarseSet[T]) Remove(elem T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, found := seek(&s.head, elem)
	if !found {
		return false
	}
	n := *link
	*link = n.next
	n.next = nil
	s.len--
	return true
}

// Contains reports whether elem is in the set. The walk stops at the
// first element not less than elem.
func (s *CoarseSet[T]) Contains(elem T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := seek(&s.head, elem)
	return found
}

// Len returns the number of elements.
func (s *CoarseSet[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len
}

// Range calls yield for each element in ascending order while holding
// the read lock. yield must not modify the set.
func (s *CoarseSet[T]) Range(yield func(elem T) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rangeChain(s.head, yield)
}

// All compatible with `iter.Seq[T]`.
func (s *CoarseSet[T]) All() func(yield func(T) bool) {
	return s.Range
}

// ToSlice returns the elements in ascending order.
func (s *CoarseSet[T]) ToSlice() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, s.len)
	rangeChain(s.head, func(elem T) bool {
		out = append(out, elem)
		return true
	})
	return out
}

// Clear removes every element.
func (s *CoarseSet[T]) Clear() {
	s.mu.Lock()
	head := s.head
	s.head, s.len = nil, 0
	s.mu.Unlock()
	clearChain(head)
}
