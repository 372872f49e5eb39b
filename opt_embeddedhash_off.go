//go:build !cds_opt_embeddedhash

package cds

const embeddedHash = false

// entryOf is a single key/value pair held by a StripedMap bucket.
type entryOf[K comparable, V any] struct {
	key   K
	value V
}

//go:nosplit
func (e *entryOf[K, V]) getHash() uintptr {
	return 0
}

//go:nosplit
func (e *entryOf[K, V]) setHash(_ uintptr) {
}
