package cds

import (
	"strconv"
	"sync"
	"testing"
)

func TestCoarseMap_Basic(t *testing.T) {
	m := NewCoarseMap[string, int]()
	if _, ok := m.Get("a"); ok {
		t.Fatal("empty map should not hold a value")
	}
	m.Put("a", 1)
	m.Put("a", 2)
	if v, ok := m.Get("a"); !ok || v != 2 {
		t.Fatalf("unexpected value: %v, %v", v, ok)
	}
	if !m.Contains("a") || m.Len() != 1 {
		t.Fatalf("unexpected state: contains=%v len=%d", m.Contains("a"), m.Len())
	}
	if !m.Remove("a") || m.Remove("a") {
		t.Fatal("Remove should report presence exactly once")
	}
	if m.Len() != 0 {
		t.Fatalf("unexpected size: %d", m.Len())
	}
}

func TestCoarseMap_ZeroValue(t *testing.T) {
	var m CoarseMap[int, int]
	if m.Remove(1) {
		t.Fatal("zero map should be empty")
	}
	m.Put(1, 1)
	if v, ok := m.Get(1); !ok || v != 1 {
		t.Fatalf("unexpected value: %v, %v", v, ok)
	}
}

func TestCoarseMap_Range(t *testing.T) {
	const numEntries = 100
	m := NewCoarseMap[string, int]()
	for i := 0; i < numEntries; i++ {
		m.Put(strconv.Itoa(i), i)
	}
	seen := 0
	m.Range(func(key string, value int) bool {
		if key != strconv.Itoa(value) {
			t.Fatalf("unexpected key/value: %s/%d", key, value)
		}
		seen++
		return true
	})
	if seen != numEntries {
		t.Fatalf("unexpected number of iterations: %d", seen)
	}
	seen = 0
	m.Range(func(string, int) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("early stop did not work: %d", seen)
	}
}

func TestCoarseMapParallelDisjointKeys(t *testing.T) {
	const numWorkers = 8
	const perWorker = 1000
	m := NewCoarseMap[int, int]()
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w * perWorker; i < (w+1)*perWorker; i++ {
				m.Put(i, w)
			}
		}(w)
	}
	wg.Wait()
	if m.Len() != numWorkers*perWorker {
		t.Fatalf("unexpected size: %d", m.Len())
	}
	for i := 0; i < numWorkers*perWorker; i++ {
		if v, ok := m.Get(i); !ok || v != i/perWorker {
			t.Fatalf("unexpected value for %d: %v, %v", i, v, ok)
		}
	}
}
