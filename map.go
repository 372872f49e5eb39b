// Package cds provides lock-based concurrent collections: a resizable
// striped hash map, a coarse-grained map, and sorted linked-list sets with
// coarse-grained and fine-grained (hand-over-hand) locking.
//
// Every operation is synchronous and safe for concurrent use by multiple
// goroutines. Values are handed out by copy; code that needs to work on a
// value in place does so inside a callback (StripedMap.Compute) that runs
// while the owning lock is held, so no reference obtained under a lock can
// outlive it.
package cds

// Map is the behavior shared by the hash maps in this package.
type Map[K comparable, V any] interface {
	// Get returns the value mapped to key, if any.
	Get(key K) (value V, ok bool)
	// Contains reports whether a value is mapped to key.
	Contains(key K) bool
	// Put maps key to value. An existing mapping for key is overwritten.
	Put(key K, value V)
	// Remove deletes the mapping for key and reports whether one existed.
	Remove(key K) bool
}

// ComputeOp tells Compute what to do with the entry once the
// callback returns.
type ComputeOp int

const (
	// CancelOp signals to Compute to not do anything as a result
	// of executing the lambda. If the entry was not present in
	// the map, nothing happens, and if it was present, the
	// returned value is ignored.
	CancelOp ComputeOp = iota
	// UpdateOp signals to Compute to update the entry to the
	// value returned by the lambda, creating it if necessary.
	UpdateOp
	// DeleteOp signals to Compute to always delete the entry
	// from the map.
	DeleteOp
)

var (
	_ Map[string, int] = (*StripedMap[string, int])(nil)
	_ Map[string, int] = (*CoarseMap[string, int])(nil)
)
