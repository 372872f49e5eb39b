//go:build cds_opt_enablepadding

package cds

import "unsafe"

// enablePadding is true, the size counter stripes of StripedMap are padded to
// a full cache line. This mitigates false sharing between writers that hit
// different stripes, at the cost of CacheLineSize bytes per stripe.
// By default, it is turned off.
const enablePadding = true

// counterStripe represents a striped counter to reduce contention.
type counterStripe struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		c uintptr
	}{})%CacheLineSize) % CacheLineSize]byte
	c uintptr // Counter value, accessed atomically
}
