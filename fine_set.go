package cds

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// FineGrainedSet is a sorted set backed by a singly linked chain with one
// mutex per node.
//
// Every walk uses lock coupling: the successor's lock is acquired before
// the current node's lock is released, so a goroutine always holds at
// least one lock on its path and no other goroutine can overtake it,
// unlink the node it stands on, or splice between it and its successor.
// Operations on different parts of the chain proceed in parallel behind
// each other.
//
// The first node is embedded in the set and never removed. Removing its
// value pulls the successor's value into it.
//
// The zero FineGrainedSet is empty and ready to use.
type FineGrainedSet[T constraints.Ordered] struct {
	head lockedNode[T]
	// headSet reports whether head holds a value. Guarded by head.mu.
	headSet bool
	len     atomic.Int64
}

// lockedNode is a chain node guarded by its own mutex. value and next
// are only read or written with mu held.
type lockedNode[T any] struct {
	mu    sync.Mutex
	value T
	next  *lockedNode[T]
}

// NewFineGrainedSet creates an empty FineGrainedSet.
func NewFineGrainedSet[T constraints.Ordered]() *FineGrainedSet[T] {
	return &FineGrainedSet[T]{}
}

// Add inserts elem in order and reports whether it was absent.
func (s *FineGrainedSet[T]) Add(elem T) bool {
	curr := &s.head
	curr.mu.Lock()
	if !s.headSet {
		curr.value = elem
		s.headSet = true
		curr.mu.Unlock()
		s.len.Add(1)
		return true
	}
	for {
		if curr.value == elem {
			curr.mu.Unlock()
			return false
		}
		if curr.value > elem {
			// Insert before curr: curr takes elem and its old value
			// moves into a new successor.
			curr.next = &lockedNode[T]{value: curr.value, next: curr.next}
			curr.value = elem
			curr.mu.Unlock()
			s.len.Add(1)
			return true
		}
		next := curr.next
		if next == nil {
			curr.next = &lockedNode[T]{value: elem}
			curr.mu.Unlock()
			s.len.Add(1)
			return true
		}
		next.mu.Lock()
		curr.mu.Unlock()
		curr = next
	}
}

// Remove unlinks elem and reports whether it was present.
func (s *FineGrainedSet[T]) Remove(elem T) bool {
	curr := &s.head
	curr.mu.Lock()
	if !s.headSet || curr.value > elem {
		curr.mu.Unlock()
		return false
	}
	if curr.value == elem {
		s.removeHead()
		curr.mu.Unlock()
		s.len.Add(-1)
		return true
	}
	for {
		next := curr.next
		if next == nil {
			curr.mu.Unlock()
			return false
		}
		// next.value may be rewritten in place by Add, so it is only read
		// with next locked.
		next.mu.Lock()
		if next.value == elem {
			curr.next = next.next
			next.next = nil
			next.mu.Unlock()
			curr.mu.Unlock()
			s.len.Add(-1)
			return true
		}
		if next.value > elem {
			next.mu.Unlock()
			curr.mu.Unlock()
			return false
		}
		curr.mu.Unlock()
		curr = next
	}
}

// removeHead drops the value held by the head. Must be called with
// head.mu held.
func (s *FineGrainedSet[T]) removeHead() {
	head := &s.head
	next := head.next
	if next == nil {
		var zero T
		head.value = zero
		s.headSet = false
		return
	}
	next.mu.Lock()
	head.value, head.next = next.value, next.next
	next.next = nil
	next.mu.Unlock()
}

// Contains reports whether elem is in the set.
func (s *FineGrainedSet[T]) Contains(elem T) bool {
	curr := &s.head
	curr.mu.Lock()
	if !s.headSet {
		curr.mu.Unlock()
		return false
	}
	for {
		if curr.value >= elem {
			found := curr.value == elem
			curr.mu.Unlock()
			return found
		}
		next := curr.next
		if next == nil {
			curr.mu.Unlock()
			return false
		}
		next.mu.Lock()
		curr.mu.Unlock()
		curr = next
	}
}

// Len returns the number of elements. Under concurrent modification the
// result is a momentary approximation.
func (s *FineGrainedSet[T]) Len() int {
	return int(s.len.Load())
}

// Range calls yield for each element in ascending order, walking the chain
// hand over hand. yield runs while the node holding the element is
// locked, so it must not call back into the set.
func (s *FineGrainedSet[T]) Range(yield func(elem T) bool) {
	curr := &s.head
	curr.mu.Lock()
	if !s.headSet {
		curr.mu.Unlock()
		return
	}
	for {
		if !yield(curr.value) {
			curr.mu.Unlock()
			return
		}
		next := curr.next
		if next == nil {
			curr.mu.Unlock()
			return
		}
		next.mu.Lock()
		curr.mu.Unlock()
		curr = next
	}
}

// All compatible with `iter.Seq[T]`.
func (s *FineGrainedSet[T]) All() func(yield func(T) bool) {
	return s.Range
}

// ToSlice returns the elements in ascending order.
func (s *FineGrainedSet[T]) ToSlice() []T {
	out := make([]T, 0, s.Len())
	s.Range(func(elem T) bool {
		out = append(out, elem)
		return true
	})
	return out
}
