package cds

import (
	"fmt"
	"math"
	"strings"
)

// Compute either sets the computed new value for the key, deletes the
// value for the key, or does nothing, based on the returned ComputeOp.
//
// valueFn runs while the key's bucket is write-locked, receiving the
// current value (loaded is false when the key is absent). It must not
// call back into the map. When op is UpdateOp the returned value is
// stored (inserting the key if needed), DeleteOp removes the entry and
// CancelOp leaves the map untouched.
//
// The actual result is the value held for the key after the operation,
// and ok reports whether the key is present afterwards.
//
// If valueFn panics the bucket is poisoned: the lock is released, the
// event is logged, the panic continues, and every later operation routed
// to that bucket panics with ErrLockPoisoned.
func (m *StripedMap[K, V]) Compute(
	key K,
	valueFn func(oldValue V, loaded bool) (newValue V, op ComputeOp),
) (actual V, ok bool) {

	if m.table.Load() == nil {
		m.initSlow()
	}
	hash := m.keyHash(key, m.seed)
	table, b, bidx := m.lockBucket(hash, true)
	actual, ok, bucketLen := m.computeLocked(table, b, bidx, key, hash, valueFn)
	if bucketLen > 0 {
		m.maybeGrow(table, bucketLen)
	}
	return actual, ok
}

// computeLocked runs valueFn against the write-locked bucket b and
// releases it. bucketLen is the new bucket length when an entry was
// inserted, zero otherwise.
func (m *StripedMap[K, V]) computeLocked(
	table *stripedTable[K, V],
	b *bucketOf[K, V],
	bidx uintptr,
	key K,
	hash uintptr,
	valueFn func(oldValue V, loaded bool) (newValue V, op ComputeOp),
) (actual V, ok bool, bucketLen int) {

	completed := false
	defer func() {
		if completed {
			b.unlock()
			return
		}
		b.unlockPoisoned()
		m.logger.Error("compute callback panicked, bucket poisoned",
			"bucket", bidx,
			"buckets", len(table.buckets))
	}()

	if i := b.find(key, hash); i >= 0 {
		newValue, op := valueFn(b.entries[i].value, true)
		switch op {
		case UpdateOp:
			b.entries[i].value = newValue
			actual, ok = newValue, true
		case DeleteOp:
			b.removeAt(i)
			table.addSize(bidx, -1)
		default:
			actual, ok = b.entries[i].value, true
		}
	} else {
		var zero V
		newValue, op := valueFn(zero, false)
		if op == UpdateOp {
			bucketLen = b.add(key, newValue, hash)
			table.addSize(bidx, 1)
			actual, ok = newValue, true
		}
	}
	completed = true
	return actual, ok, bucketLen
}

// Range calls yield sequentially for each key and value present in the
// map. If yield returns false, Range stops the iteration.
//
// Buckets are visited one at a time: each bucket's entries are copied
// under its read lock and yield runs with no lock held, so yield may
// modify the map. Range does not correspond to a consistent snapshot of
// the whole map; entries written concurrently may or may not be seen.
func (m *StripedMap[K, V]) Range(yield func(key K, value V) bool) {
	table := m.table.Load()
	if table == nil {
		return
	}
	var buf []entryOf[K, V]
	for i := range table.buckets {
		b := &table.buckets[i]
		b.rlock()
		buf = append(buf[:0], b.entries...)
		b.runlock()
		for j := range buf {
			if !yield(buf[j].key, buf[j].value) {
				return
			}
		}
	}
}

// RangeKeys to iterate over all keys
func (m *StripedMap[K, V]) RangeKeys(yield func(key K) bool) {
	m.Range(func(key K, _ V) bool {
		return yield(key)
	})
}

// All compatible with `iter.Seq2[K, V]`.
func (m *StripedMap[K, V]) All() func(yield func(K, V) bool) {
	return m.Range
}

// Keys is the iterator version for iterating over all keys.
func (m *StripedMap[K, V]) Keys() func(yield func(K) bool) {
	return m.RangeKeys
}

// ToMap collect all entries and return a map[K]V
func (m *StripedMap[K, V]) ToMap() map[K]V {
	a := make(map[K]V, m.Len())
	m.Range(func(k K, v V) bool {
		a[k] = v
		return true
	})
	return a
}

// ToMapWithLimit collect up to limit entries into a map[K]V, limit < 0 is no limit
func (m *StripedMap[K, V]) ToMapWithLimit(limit int) map[K]V {
	if limit == 0 {
		return map[K]V{}
	}
	if limit < 0 {
		limit = math.MaxInt
	}
	a := make(map[K]V, min(m.Len(), limit))
	m.Range(func(k K, v V) bool {
		a[k] = v
		limit--
		return limit > 0
	})
	return a
}

// Clear deletes all entries. The bucket count is kept.
//
// Clear goes through the resize coordinator: if a resize is running it
// waits for it and then retries against the new table.
func (m *StripedMap[K, V]) Clear() {
	for {
		table := m.table.Load()
		if table == nil {
			return
		}
		if m.tryResize(table, mapClearHint) {
			return
		}
		if rs := m.resizeState.Load(); rs != nil {
			rs.wg.Wait()
		}
	}
}

// String implement the formatting output interface fmt.Stringer
func (m *StripedMap[K, V]) String() string {
	const limit = 1024
	return strings.Replace(fmt.Sprint(m.ToMapWithLimit(limit)), "map[", "StripedMap[", 1)
}

// Stats returns statistics for the StripedMap. Just like other map
// methods, this one is thread-safe. Yet it's an O(N) operation,
// so it should be used only for diagnostics or debugging purposes.
//
// Unlike other map methods, Stats does not panic on poisoned buckets: it
// counts them in PoisonedBuckets and leaves their entries out of Size and
// the per-bucket figures.
func (m *StripedMap[K, V]) Stats() *MapStats {
	stats := &MapStats{
		TotalGrowths: m.totalGrowths.Load(),
		TotalClears:  m.totalClears.Load(),
		MinEntries:   math.MaxInt,
	}
	table := m.table.Load()
	if table == nil {
		stats.MinEntries = 0
		return stats
	}
	stats.Buckets = len(table.buckets)
	stats.Counter = table.sumSize()
	stats.CounterLen = len(table.size)
	for i := range table.buckets {
		b := &table.buckets[i]
		b.mu.RLock()
		if b.isPoisoned() {
			b.mu.RUnlock()
			stats.PoisonedBuckets++
			continue
		}
		nentries := len(b.entries)
		b.mu.RUnlock()
		stats.Size += nentries
		if nentries == 0 {
			stats.EmptyBuckets++
		}
		if nentries < stats.MinEntries {
			stats.MinEntries = nentries
		}
		if nentries > stats.MaxEntries {
			stats.MaxEntries = nentries
		}
	}
	if stats.MinEntries == math.MaxInt {
		stats.MinEntries = 0
	}
	return stats
}

// MapStats is StripedMap statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type MapStats struct {
	// Buckets is the number of buckets in the published table.
	Buckets int
	// EmptyBuckets is the number of buckets that hold no entries.
	EmptyBuckets int
	// Size is the exact number of entries stored in the map, counted
	// bucket by bucket.
	Size int
	// Counter is the number of entries stored in the map according
	// to the internal atomic counter. In case of concurrent map
	// modifications this number may be different from Size.
	Counter int
	// CounterLen is the number of internal atomic counter stripes.
	CounterLen int
	// MinEntries is the minimum number of entries per bucket.
	MinEntries int
	// MaxEntries is the maximum number of entries per bucket.
	MaxEntries int
	// TotalGrowths is the number of times the bucket array doubled.
	TotalGrowths uint32
	// TotalClears is the number of times the map was cleared.
	TotalClears uint32
	// PoisonedBuckets is the number of buckets made unusable by a
	// panicking Compute callback.
	PoisonedBuckets int
}

// ToString returns string representation of map stats.
func (s *MapStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("MapStats{\n")
	sb.WriteString(fmt.Sprintf("Buckets:      %d\n", s.Buckets))
	sb.WriteString(fmt.Sprintf("EmptyBuckets: %d\n", s.EmptyBuckets))
	sb.WriteString(fmt.Sprintf("Size:         %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Counter:      %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("CounterLen:   %d\n", s.CounterLen))
	sb.WriteString(fmt.Sprintf("MinEntries:   %d\n", s.MinEntries))
	sb.WriteString(fmt.Sprintf("MaxEntries:   %d\n", s.MaxEntries))
	sb.WriteString(fmt.Sprintf("TotalGrowths: %d\n", s.TotalGrowths))
	sb.WriteString(fmt.Sprintf("TotalClears:  %d\n", s.TotalClears))
	sb.WriteString(fmt.Sprintf("Poisoned:     %d\n", s.PoisonedBuckets))
	sb.WriteString("}\n")
	return sb.String()
}
