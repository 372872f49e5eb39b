package cds

import "golang.org/x/exp/constraints"

// Set is the behavior shared by the sorted sets in this package.
type Set[T any] interface {
	// Add inserts elem and reports whether it was absent.
	Add(elem T) bool
	// Remove deletes elem and reports whether it was present.
	Remove(elem T) bool
	// Contains reports whether elem is in the set.
	Contains(elem T) bool
	// Len returns the number of elements.
	Len() int
}

var (
	_ Set[int] = (*CoarseSet[int])(nil)
	_ Set[int] = (*FineGrainedSet[int])(nil)
)

// node is a link of a singly linked chain.
type node[T any] struct {
	value T
	next  *node[T]
}

// seek walks the ascending chain rooted at *head and returns the link that
// holds elem, or the link elem would be spliced into to keep the chain
// ascending. found reports whether *link holds elem.
func seek[T constraints.Ordered](head **node[T], elem T) (link **node[T], found bool) {
	link = head
	for n := *link; n != nil; n = *link {
		if n.value >= elem {
			return link, n.value == elem
		}
		link = &n.next
	}
	return link, false
}

// clearChain unlinks every node of the chain starting at head, one at a
// time. A node still referenced elsewhere then keeps only itself alive.
func clearChain[T any](head *node[T]) {
	for head != nil {
		next := head.next
		head.next = nil
		head = next
	}
}

// rangeChain calls yield for each value from head onwards until yield
// returns false.
func rangeChain[T any](head *node[T], yield func(T) bool) {
	for n := head; n != nil; n = n.next {
		if !yield(n.value) {
			return
		}
	}
}

// List is a singly linked list that appends at its tail.
//
// List is not safe for concurrent use. The zero List is empty.
type List[T comparable] struct {
	head *node[T]
	tail *node[T]
	len  int
}

// Add appends elem to the end of the list.
func (l *List[T]) Add(elem T) {
	n := &node[T]{value: elem}
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.len++
}

// Find reports whether target is in the list.
func (l *List[T]) Find(target T) bool {
	for n := l.head; n != nil; n = n.next {
		if n.value == target {
			return true
		}
	}
	return false
}

func (l *List[T]) Len() int {
	return l.len
}

func (l *List[T]) IsEmpty() bool {
	return l.len == 0
}

// All iterates over the elements in insertion order.
func (l *List[T]) All() func(yield func(T) bool) {
	return func(yield func(T) bool) {
		rangeChain(l.head, yield)
	}
}

// OrderedList is a singly linked list kept in ascending order. Equal
// elements are allowed and keep their insertion order.
//
// OrderedList is not safe for concurrent use. The zero OrderedList is
// empty.
type OrderedList[T constraints.Ordered] struct {
	head *node[T]
	len  int
}

// Add inserts elem after every element that is less than or equal to it.
func (l *OrderedList[T]) Add(elem T) {
	link := &l.head
	for n := *link; n != nil && n.value <= elem; n = *link {
		link = &n.next
	}
	*link = &node[T]{value: elem, next: *link}
	l.len++
}

// Find reports whether target is in the list. The walk stops at the first
// element greater than target.
func (l *OrderedList[T]) Find(target T) bool {
	_, found := seek(&l.head, target)
	return found
}

func (l *OrderedList[T]) Len() int {
	return l.len
}

func (l *OrderedList[T]) IsEmpty() bool {
	return l.len == 0
}

// All iterates over the elements in ascending order.
func (l *OrderedList[T]) All() func(yield func(T) bool) {
	return func(yield func(T) bool) {
		rangeChain(l.head, yield)
	}
}
