package cds

import (
	"math/bits"
	"testing"
)

func TestNextPowOf2(t *testing.T) {
	if nextPowOf2(0) != 1 {
		t.Error("nextPowOf2 failed")
	}
	if nextPowOf2(1) != 1 {
		t.Error("nextPowOf2 failed")
	}
	if nextPowOf2(2) != 2 {
		t.Error("nextPowOf2 failed")
	}
	if nextPowOf2(3) != 4 {
		t.Error("nextPowOf2 failed")
	}
	if nextPowOf2(1000) != 1024 {
		t.Error("nextPowOf2 failed")
	}
}

func TestDefaultHasher_Deterministic(t *testing.T) {
	const seed = 0x1234
	if h := defaultHasher[int](); h(42, seed) != h(42, seed) {
		t.Fatal("int hasher is not deterministic")
	}
	if h := defaultHasher[string](); h("foo", seed) != h("foo", seed) {
		t.Fatal("string hasher is not deterministic")
	}
	if h := defaultHasher[structKey](); h(structKey{1, 2}, seed) != h(structKey{1, 2}, seed) {
		t.Fatal("struct hasher is not deterministic")
	}
	if h := defaultHasher[int8](); h(-1, seed) == h(1, seed) {
		t.Fatal("int8 hasher collides on small keys")
	}
	if h := defaultHasher[uint64](); h(1, seed) == h(1<<40, seed) && bits.UintSize == 64 {
		t.Fatal("uint64 hasher ignores high bits")
	}
}

func TestDefaultHasher_Seed(t *testing.T) {
	h := defaultHasher[string]()
	differs := false
	for seed := uintptr(1); seed < 16; seed++ {
		if h("key", 0) != h("key", seed) {
			differs = true
		}
	}
	if !differs {
		t.Fatal("seed has no effect on the string hasher")
	}
}

// Hashes are reduced modulo the bucket count, so the low bits of
// consecutive integer keys must spread over buckets.
func TestDefaultHasher_Distribution(t *testing.T) {
	const numBuckets = 64
	const numKeys = numBuckets * 64
	for name, hash := range map[string]func(i int) uintptr{
		"int":    func(i int) uintptr { return defaultHasher[int]()(i<<8, 7) },
		"string": func(i int) uintptr { return defaultHasher[string]()(string(rune('a'+i%26))+string(rune(i)), 7) },
	} {
		var counts [numBuckets]int
		for i := 0; i < numKeys; i++ {
			counts[hash(i)%numBuckets]++
		}
		for b, c := range counts {
			if c == 0 {
				t.Fatalf("%s: bucket %d never used: %v", name, b, counts)
			}
		}
	}
}

func TestStringHashers(t *testing.T) {
	for name, h := range map[string]HashFunc[string]{
		"xxhash":  XXHashString,
		"murmur3": Murmur3String,
	} {
		if h("abc", 1) != h("abc", 1) {
			t.Fatalf("%s is not deterministic", name)
		}
		if h("abc", 1) == h("abd", 1) {
			t.Fatalf("%s collides on near keys", name)
		}
	}
	if XXHashBytes([]byte("abc"), 3) != XXHashString("abc", 3) {
		t.Fatal("xxhash string and bytes disagree")
	}
	if Murmur3Bytes([]byte("abc"), 3) != Murmur3String("abc", 3) {
		t.Fatal("murmur3 string and bytes disagree")
	}
}
