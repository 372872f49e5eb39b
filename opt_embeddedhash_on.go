//go:build cds_opt_embeddedhash

package cds

// embeddedHash caches the key hash inside each bucket entry. Lookups
// compare hashes before keys, and resizing rehashes without calling the
// key hasher again.
const embeddedHash = true

// entryOf is a single key/value pair held by a StripedMap bucket.
type entryOf[K comparable, V any] struct {
	hash  uintptr
	key   K
	value V
}

//go:nosplit
func (e *entryOf[K, V]) getHash() uintptr {
	return e.hash
}

//go:nosplit
func (e *entryOf[K, V]) setHash(h uintptr) {
	e.hash = h
}
