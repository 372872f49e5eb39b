package cds

import (
	"strconv"
	"sync/atomic"
	"testing"
)

const benchmarkNumEntries = 1_000

var benchmarkKeys [benchmarkNumEntries]string

func init() {
	for i := range benchmarkKeys {
		benchmarkKeys[i] = strconv.Itoa(i)
	}
}

var benchmarkCases = []struct {
	name           string
	readPercentage int
}{
	{"reads=100%", 100},
	{"reads=99%", 99},
	{"reads=90%", 90},
	{"reads=75%", 75},
	{"reads=50%", 50},
}

func benchmarkMap(b *testing.B, m Map[string, int], readPercentage int) {
	for i := range benchmarkKeys {
		m.Put(benchmarkKeys[i], i)
	}
	var seq atomic.Uint64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := int(seq.Add(1) * 7919)
		for pb.Next() {
			j := i % benchmarkNumEntries
			op := i % 100
			if op >= readPercentage {
				if op&1 == 0 {
					m.Put(benchmarkKeys[j], j)
				} else {
					m.Remove(benchmarkKeys[j])
				}
			} else {
				m.Get(benchmarkKeys[j])
			}
			i++
		}
	})
}

func BenchmarkStripedMap(b *testing.B) {
	for _, bc := range benchmarkCases {
		b.Run(bc.name, func(b *testing.B) {
			benchmarkMap(b, NewStripedMap[string, int](), bc.readPercentage)
		})
	}
}

func BenchmarkStripedMap_Growing(b *testing.B) {
	m := NewStripedMap[int, int](WithBuckets(1))
	var seq atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := int(seq.Add(1))
			m.Put(k, k)
		}
	})
}

func BenchmarkCoarseMap(b *testing.B) {
	for _, bc := range benchmarkCases {
		b.Run(bc.name, func(b *testing.B) {
			benchmarkMap(b, NewCoarseMap[string, int](), bc.readPercentage)
		})
	}
}

func benchmarkSet(b *testing.B, s Set[int]) {
	for i := 0; i < benchmarkNumEntries; i += 2 {
		s.Add(i)
	}
	var seq atomic.Uint64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := int(seq.Add(1) * 7919)
		for pb.Next() {
			v := i % benchmarkNumEntries
			switch i % 10 {
			case 0:
				s.Add(v)
			case 1:
				s.Remove(v)
			default:
				s.Contains(v)
			}
			i++
		}
	})
}

func BenchmarkCoarseSet(b *testing.B) {
	benchmarkSet(b, NewCoarseSet[int]())
}

func BenchmarkFineGrainedSet(b *testing.B) {
	benchmarkSet(b, NewFineGrainedSet[int]())
}
