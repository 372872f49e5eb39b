package cds

import (
	"slices"
	"testing"
)

func collect[T any](seq func(yield func(T) bool)) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
	}
	return out
}

func TestList(t *testing.T) {
	const n = 100_000
	var l List[int]
	if !l.IsEmpty() {
		t.Fatal("zero list should be empty")
	}
	for i := 0; i < n; i++ {
		l.Add(i)
	}
	if l.Len() != n || l.IsEmpty() {
		t.Fatalf("unexpected length: %d", l.Len())
	}
	i := 0
	for v := range l.All() {
		if v != i {
			t.Fatalf("unexpected element at %d: %d", i, v)
		}
		i++
	}
	if i != n {
		t.Fatalf("unexpected number of elements: %d", i)
	}
}

func TestList_Find(t *testing.T) {
	var l List[string]
	if l.Find("a") {
		t.Fatal("empty list should not find anything")
	}
	l.Add("b")
	l.Add("a")
	if !l.Find("a") || !l.Find("b") || l.Find("c") {
		t.Fatal("unexpected Find result")
	}
	// insertion order, not sorted
	if got := collect(l.All()); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("unexpected elements: %v", got)
	}
}

func TestOrderedList(t *testing.T) {
	const lo, hi = 0, 10_000
	var l, rev OrderedList[int]
	for i := lo; i < hi; i++ {
		l.Add(i)
	}
	for i := hi - 1; i >= lo; i-- {
		rev.Add(i)
	}
	for _, list := range []*OrderedList[int]{&l, &rev} {
		if list.Len() != hi-lo {
			t.Fatalf("unexpected length: %d", list.Len())
		}
		got := collect(list.All())
		for i, v := range got {
			if v != lo+i {
				t.Fatalf("unexpected element at %d: %d", i, v)
			}
		}
	}
	if !l.Find(lo) || l.Find(hi) || !l.Find((lo+hi)/2) || l.Find(-1) {
		t.Fatal("unexpected Find result")
	}
}

func TestOrderedList_Duplicates(t *testing.T) {
	var l OrderedList[int]
	for _, v := range []int{3, 1, 3, 2, 1} {
		l.Add(v)
	}
	if got := collect(l.All()); !slices.Equal(got, []int{1, 1, 2, 3, 3}) {
		t.Fatalf("unexpected elements: %v", got)
	}
	if l.Len() != 5 {
		t.Fatalf("unexpected length: %d", l.Len())
	}
}

func TestClearChain(t *testing.T) {
	var head *node[int]
	for i := 0; i < 1000; i++ {
		head = &node[int]{value: i, next: head}
	}
	second := head.next
	clearChain(head)
	if head.next != nil || second.next != nil {
		t.Fatal("chain was not unlinked")
	}
}
