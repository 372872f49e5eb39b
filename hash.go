package cds

import (
	"hash/maphash"
	"math/bits"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// HashFunc computes the hash of a key. The seed is the per-map seed
// configured with WithSeed (random when unset); hashers that ignore it
// produce the same bucket layout for every map.
//
// The bucket for a key is hash % bucketCount, so the low bits of the
// result should be well distributed.
type HashFunc[K any] func(key K, seed uintptr) uintptr

// comparableSeed keys the fallback hasher for key types without a
// specialized hasher. The per-map seed is mixed on top of it.
var comparableSeed = maphash.MakeSeed()

// defaultHasher returns the built-in hasher for K.
//
// Integer keys are mixed with the seed and spread, strings go through
// xxhash, and every other comparable type falls back to maphash.
func defaultHasher[K comparable]() HashFunc[K] {
	switch any(*new(K)).(type) {
	case uint, int, uintptr:
		return func(key K, seed uintptr) uintptr {
			return spread(*(*uintptr)(unsafe.Pointer(&key)) ^ seed)
		}

	case uint64, int64:
		if bits.UintSize == 32 {
			return func(key K, seed uintptr) uintptr {
				v := *(*uint64)(unsafe.Pointer(&key))
				return spread((uintptr(v) ^ uintptr(v>>32)) ^ seed)
			}
		}
		return func(key K, seed uintptr) uintptr {
			return spread(uintptr(*(*uint64)(unsafe.Pointer(&key))) ^ seed)
		}

	case uint32, int32:
		return func(key K, seed uintptr) uintptr {
			return spread(uintptr(*(*uint32)(unsafe.Pointer(&key))) ^ seed)
		}

	case uint16, int16:
		return func(key K, seed uintptr) uintptr {
			return spread(uintptr(*(*uint16)(unsafe.Pointer(&key))) ^ seed)
		}

	case uint8, int8:
		return func(key K, seed uintptr) uintptr {
			return spread(uintptr(*(*uint8)(unsafe.Pointer(&key))) ^ seed)
		}

	case string:
		return func(key K, seed uintptr) uintptr {
			return XXHashString(*(*string)(unsafe.Pointer(&key)), seed)
		}

	default:
		return func(key K, seed uintptr) uintptr {
			return spread(uintptr(maphash.Comparable(comparableSeed, key)) ^ seed)
		}
	}
}

// XXHashString hashes a string key with xxhash64. It can be passed to
// NewStripedMapWithHasher for string-keyed maps.
func XXHashString(key string, seed uintptr) uintptr {
	return spread(uintptr(xxhash.Sum64String(key)) ^ seed)
}

// XXHashBytes hashes a byte slice key with xxhash64.
func XXHashBytes(key []byte, seed uintptr) uintptr {
	return spread(uintptr(xxhash.Sum64(key)) ^ seed)
}

// Murmur3String hashes a string key with the seeded 64-bit murmur3 hash.
// Only the low 32 bits of seed are used.
func Murmur3String(key string, seed uintptr) uintptr {
	data := unsafe.Slice(unsafe.StringData(key), len(key))
	return uintptr(murmur3.Sum64WithSeed(data, uint32(seed)))
}

// Murmur3Bytes is Murmur3String for byte slice keys.
func Murmur3Bytes(key []byte, seed uintptr) uintptr {
	return uintptr(murmur3.Sum64WithSeed(key, uint32(seed)))
}

// spread mixes the high bits of h into the low bits, which select the bucket.
//
//go:nosplit
func spread(h uintptr) uintptr {
	h ^= h >> (bits.UintSize / 2)
	h *= hashPrime
	h ^= h >> (bits.UintSize/2 - 3)
	return h
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
// Compatible with both 32-bit and 64-bit systems.
func nextPowOf2(n int) int {
	if n <= 0 {
		return 1
	}

	if bits.UintSize == 32 {
		v := uint32(n)
		v--
		v |= v >> 1
		v |= v >> 2
		v |= v >> 4
		v |= v >> 8
		v |= v >> 16
		v++
		return int(v)
	}

	v := uint64(n)
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return int(v)
}
