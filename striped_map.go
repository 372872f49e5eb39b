package cds

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultNumBuckets is the initial number of buckets of a StripedMap.
	DefaultNumBuckets = 1 << 12
	// DefaultMaxBucketSize is the default resize threshold. With the
	// MaxBucketSize policy a map grows once a write leaves the bucket it
	// landed in holding more entries than this.
	DefaultMaxBucketSize = 10
	// maxBucketCount caps the bucket array. A table whose doubled size
	// would exceed it stops growing and its buckets simply get longer.
	maxBucketCount = 1 << 30
)

// ResizePolicy selects how a StripedMap measures occupancy against its
// resize threshold.
type ResizePolicy int

const (
	// MaxBucketSize grows the map when the bucket a write landed in
	// holds more entries than the threshold.
	MaxBucketSize ResizePolicy = iota
	// MaxAvgBucketSize grows the map when the number of entries exceeds
	// threshold × bucket count, i.e. when the average bucket length
	// exceeds the threshold.
	MaxAvgBucketSize
)

// StripedMap is a concurrent hash map with one reader/writer lock per
// bucket (lock striping).
//
// Keys are routed to hash(key) % bucketCount of the currently published
// bucket array. Get takes the bucket's read lock, Put and Remove its write
// lock, so operations on keys in different buckets never contend.
//
// When a write pushes occupancy over the configured threshold, the writer
// tries to become the single resizer with a compare-and-swap. The winner
// waits until every bucket of the old array is idle (quiescence pass),
// rehashes all entries into an array twice as large, and publishes it with
// an atomic store. Losers do not wait, they just skip resizing. Callers that
// arrive while a resize runs block until it completes, and callers that
// locked a bucket of an array that is being replaced drop the lock and
// retry, so no operation ever lands in a retired array. Retired arrays are
// reclaimed by the garbage collector once the last caller lets go of them.
//
// The bucket count only ever doubles; the map never shrinks.
//
// The zero StripedMap is empty and ready to use with the default
// configuration. A StripedMap must not be copied after first use.
type StripedMap[K comparable, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		table        atomic.Pointer[struct{}]
		resizeState  atomic.Pointer[resizeState]
		totalGrowths atomic.Uint32
		totalClears  atomic.Uint32
		initMu       sync.Mutex
		keyHash      func()
		seed         uintptr
		policy       ResizePolicy
		threshold    int
		logger       hclog.Logger
	}{})%CacheLineSize) % CacheLineSize]byte

	table        atomic.Pointer[stripedTable[K, V]]
	resizeState  atomic.Pointer[resizeState]
	totalGrowths atomic.Uint32
	totalClears  atomic.Uint32
	initMu       sync.Mutex
	keyHash      HashFunc[K]
	seed         uintptr
	policy       ResizePolicy // WithMaxBucketSize, WithMaxAvgBucketSize
	threshold    int
	logger       hclog.Logger // WithLogger
}

// NewStripedMap creates a new StripedMap instance.
//
// Parameters:
//   - WithBuckets or WithCapacity for the initial bucket count
//   - WithMaxBucketSize or WithMaxAvgBucketSize for the resize threshold
//   - WithSeed for a fixed hash seed
//   - WithLogger for resize diagnostics
func NewStripedMap[K comparable, V any](
	options ...func(*MapConfig),
) *StripedMap[K, V] {
	return NewStripedMapWithHasher[K, V](nil, options...)
}

// NewStripedMapWithHasher creates a StripedMap with a custom key hasher.
// A nil keyHash uses the built-in hasher.
//
// The same hasher and seed are used for routing and for rehashing on
// resize, so keyHash must be deterministic.
func NewStripedMapWithHasher[K comparable, V any](
	keyHash HashFunc[K],
	options ...func(*MapConfig),
) *StripedMap[K, V] {
	m := &StripedMap[K, V]{}
	m.init(keyHash, options...)
	return m
}

// MapConfig defines configurable StripedMap options.
type MapConfig struct {
	numBuckets int
	policy     ResizePolicy
	threshold  int
	seed       uintptr
	seeded     bool
	logger     hclog.Logger
}

// WithBuckets configures the initial number of buckets. Values below one
// are treated as one.
func WithBuckets(numBuckets int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.numBuckets = numBuckets
	}
}

// WithCapacity configures the initial number of buckets so that capacity
// entries fit at half the default maximum bucket size.
func WithCapacity(capacity int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.numBuckets = capacity / DefaultMaxBucketSize * 2
	}
}

// WithMaxBucketSize selects the MaxBucketSize resize policy: the map grows
// when a write leaves a bucket holding more than n entries.
//
// Small thresholds cost memory. With n == 0 every insertion of a new key
// doubles the bucket array, so starting from DefaultNumBuckets about
// eighteen distinct keys reach the cap of 1<<30 buckets, which is tens of
// gigabytes of padded buckets. Use n == 0 only with a tiny initial bucket
// count and a handful of keys.
func WithMaxBucketSize(n int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.policy = MaxBucketSize
		c.threshold = n
	}
}

// WithMaxAvgBucketSize selects the MaxAvgBucketSize resize policy: the map
// grows when it holds more than n entries per bucket on average.
func WithMaxAvgBucketSize(n int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.policy = MaxAvgBucketSize
		c.threshold = n
	}
}

// WithSeed fixes the seed passed to the key hasher. By default every map
// draws a random seed.
func WithSeed(seed uintptr) func(*MapConfig) {
	return func(c *MapConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// WithLogger configures the logger that receives resize and lock
// poisoning events. By default nothing is logged.
func WithLogger(logger hclog.Logger) func(*MapConfig) {
	return func(c *MapConfig) {
		c.logger = logger
	}
}

type mapResizeHint int

const (
	mapGrowHint  mapResizeHint = 0
	mapClearHint mapResizeHint = 1
)

// resizeState marks a resize in progress. Callers that observe it wait on
// wg until the new table is published.
type resizeState struct {
	wg sync.WaitGroup
}

// stripedTable is one generation of the bucket array.
type stripedTable[K comparable, V any] struct {
	buckets []bucketOf[K, V]
	// striped counter for number of table entries;
	// feeds Len and the MaxAvgBucketSize policy
	size []counterStripe
}

// bucketOf is an independently locked partition of the key space. Its
// entries are unordered and hold at most one entry per key.
type bucketOf[K comparable, V any] struct {
	bucketLock
	entries []entryOf[K, V]

	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		bucketLock
		entries []struct{}
	}{})%CacheLineSize) % CacheLineSize]byte
}

func newStripedTable[K comparable, V any](tableLen, cpus int) *stripedTable[K, V] {
	return &stripedTable[K, V]{
		buckets: make([]bucketOf[K, V], tableLen),
		size:    make([]counterStripe, calcSizeLen(tableLen, cpus)),
	}
}

// calcSizeLen computes the size count for the table
// return value must be a power of 2
func calcSizeLen(tableLen, cpus int) int {
	return nextPowOf2(min(cpus, tableLen))
}

// addSize atomically adds delta to the size counter for the given bucket index.
func (table *stripedTable[K, V]) addSize(bucketIdx uintptr, delta int) {
	cidx := uintptr(len(table.size)-1) & bucketIdx
	atomic.AddUintptr(&table.size[cidx].c, uintptr(delta))
}

// addSizePlain adds delta to the size counter without atomic operations.
// This method should only be used on a table that is not yet published.
func (table *stripedTable[K, V]) addSizePlain(bucketIdx uintptr, delta int) {
	cidx := uintptr(len(table.size)-1) & bucketIdx
	table.size[cidx].c += uintptr(delta)
}

// sumSize calculates the total number of entries in the table by summing all counter stripes.
func (table *stripedTable[K, V]) sumSize() int {
	var sum int
	for i := range table.size {
		sum += int(atomic.LoadUintptr(&table.size[i].c))
	}
	return sum
}

// quiesce acquires and releases the write lock of every bucket, in order.
// Once it returns no caller is inside a critical section of this table, and
// every later caller sees the pending resize and retries elsewhere.
func (table *stripedTable[K, V]) quiesce() {
	for i := range table.buckets {
		table.buckets[i].lock()
		table.buckets[i].unlock()
	}
}

// find returns the index of key in the bucket, or -1.
// Must be called with the bucket lock held.
func (b *bucketOf[K, V]) find(key K, hash uintptr) int {
	for i := range b.entries {
		e := &b.entries[i]
		//goland:noinspection ALL
		if embeddedHash && e.getHash() != hash {
			continue
		}
		if e.key == key {
			return i
		}
	}
	return -1
}

// add appends a new entry and returns the resulting bucket length.
// Must be called with the write lock held.
func (b *bucketOf[K, V]) add(key K, value V, hash uintptr) int {
	e := entryOf[K, V]{key: key, value: value}
	e.setHash(hash)
	b.entries = append(b.entries, e)
	return len(b.entries)
}

// removeAt deletes entry i by moving the last entry into its slot.
// Must be called with the write lock held.
func (b *bucketOf[K, V]) removeAt(i int) {
	last := len(b.entries) - 1
	b.entries[i] = b.entries[last]
	b.entries[last] = entryOf[K, V]{}
	b.entries = b.entries[:last]
}

func (m *StripedMap[K, V]) init(
	keyHash HashFunc[K],
	options ...func(*MapConfig),
) *stripedTable[K, V] {

	c := &MapConfig{
		numBuckets: DefaultNumBuckets,
		policy:     MaxBucketSize,
		threshold:  DefaultMaxBucketSize,
	}
	for _, o := range options {
		o(c)
	}

	m.seed = uintptr(rand.Uint64())
	if c.seeded {
		m.seed = c.seed
	}
	m.keyHash = defaultHasher[K]()
	if keyHash != nil {
		m.keyHash = keyHash
	}
	m.policy = c.policy
	m.threshold = max(c.threshold, 0)
	m.logger = c.logger
	if m.logger == nil {
		m.logger = hclog.NewNullLogger()
	}

	tableLen := min(max(c.numBuckets, 1), maxBucketCount)
	table := newStripedTable[K, V](tableLen, runtime.GOMAXPROCS(0))
	m.table.Store(table)
	return table
}

// initSlow initializes a zero StripedMap on its first write. It may be
// called concurrently by multiple goroutines.
//
//go:noinline
func (m *StripedMap[K, V]) initSlow() *stripedTable[K, V] {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	if table := m.table.Load(); table != nil {
		// Someone got to it while we were waiting.
		return table
	}
	return m.init(nil)
}

// lockBucket routes hash to its bucket in the currently published table
// and returns it locked for reading or writing.
//
// A caller never proceeds against a table that is being replaced: while a
// resize is in progress it waits for the resize to finish, and if a resize
// started (or completed) between choosing the bucket and acquiring its
// lock, it releases the lock and starts over against the current table.
func (m *StripedMap[K, V]) lockBucket(
	hash uintptr,
	write bool,
) (*stripedTable[K, V], *bucketOf[K, V], uintptr) {

	for {
		if rs := m.resizeState.Load(); rs != nil {
			rs.wg.Wait()
			continue
		}
		table := m.table.Load()
		if table == nil {
			table = m.initSlow()
		}
		bidx := hash % uintptr(len(table.buckets))
		b := &table.buckets[bidx]
		if write {
			b.lock()
		} else {
			b.rlock()
		}
		if m.resizeState.Load() == nil && m.table.Load() == table {
			return table, b, bidx
		}
		if write {
			b.unlock()
		} else {
			b.runlock()
		}
	}
}

// Get returns a copy of the value mapped to key.
func (m *StripedMap[K, V]) Get(key K) (value V, ok bool) {
	if m.table.Load() == nil {
		return
	}
	hash := m.keyHash(key, m.seed)
	_, b, _ := m.lockBucket(hash, false)
	if i := b.find(key, hash); i >= 0 {
		value, ok = b.entries[i].value, true
	}
	b.runlock()
	return value, ok
}

// Contains reports whether key is present, i.e. whether Get would
// return a value.
func (m *StripedMap[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Put maps key to value, replacing the value of an existing entry for key.
// Inserting a new key may trigger a resize; see StripedMap.
func (m *StripedMap[K, V]) Put(key K, value V) {
	if m.table.Load() == nil {
		m.initSlow()
	}
	hash := m.keyHash(key, m.seed)
	table, b, bidx := m.lockBucket(hash, true)
	if i := b.find(key, hash); i >= 0 {
		b.entries[i].value = value
		b.unlock()
		return
	}
	bucketLen := b.add(key, value, hash)
	table.addSize(bidx, 1)
	b.unlock()

	m.maybeGrow(table, bucketLen)
}

// LoadOrStore returns the existing value for the key if present.
// Otherwise, it stores and returns the given value.
// The loaded result is true if the value was loaded, false if stored.
func (m *StripedMap[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	if m.table.Load() == nil {
		m.initSlow()
	}
	hash := m.keyHash(key, m.seed)
	table, b, bidx := m.lockBucket(hash, true)
	if i := b.find(key, hash); i >= 0 {
		actual = b.entries[i].value
		b.unlock()
		return actual, true
	}
	bucketLen := b.add(key, value, hash)
	table.addSize(bidx, 1)
	b.unlock()

	m.maybeGrow(table, bucketLen)
	return value, false
}

// Remove deletes the entry for key and reports whether it was present.
func (m *StripedMap[K, V]) Remove(key K) bool {
	_, loaded := m.LoadAndDelete(key)
	return loaded
}

// LoadAndDelete deletes the entry for key, returning its previous value
// if any. The loaded result reports whether the key was present.
func (m *StripedMap[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	if m.table.Load() == nil {
		return
	}
	hash := m.keyHash(key, m.seed)
	table, b, bidx := m.lockBucket(hash, true)
	i := b.find(key, hash)
	if i < 0 {
		b.unlock()
		return
	}
	value = b.entries[i].value
	b.removeAt(i)
	table.addSize(bidx, -1)
	b.unlock()
	return value, true
}

// Len returns the number of entries in the map. Under concurrent
// modification the result is a momentary approximation.
func (m *StripedMap[K, V]) Len() int {
	table := m.table.Load()
	if table == nil {
		return 0
	}
	return table.sumSize()
}

// NumBuckets returns the bucket count of the currently published table.
func (m *StripedMap[K, V]) NumBuckets() int {
	table := m.table.Load()
	if table == nil {
		return 0
	}
	return len(table.buckets)
}

// maybeGrow resizes table if the write that left a bucket holding
// bucketLen entries pushed it over the threshold. Must be called without
// any bucket lock held.
func (m *StripedMap[K, V]) maybeGrow(table *stripedTable[K, V], bucketLen int) {
	if m.overThreshold(table, bucketLen) {
		m.tryResize(table, mapGrowHint)
	}
}

func (m *StripedMap[K, V]) overThreshold(table *stripedTable[K, V], bucketLen int) bool {
	if m.policy == MaxAvgBucketSize {
		tableLen := len(table.buckets)
		if m.threshold > math.MaxInt/tableLen {
			return false
		}
		return table.sumSize() > m.threshold*tableLen
	}
	return bucketLen > m.threshold
}

// tryResize replaces table with a new generation: twice as many buckets
// holding the same entries for mapGrowHint, an empty table of the same
// size for mapClearHint.
//
// At most one resize runs at a time. If another one is in progress, or
// table is no longer the published one, tryResize returns false without
// waiting.
func (m *StripedMap[K, V]) tryResize(
	table *stripedTable[K, V],
	hint mapResizeHint,
) bool {

	tableLen := len(table.buckets)
	if hint == mapGrowHint && tableLen > maxBucketCount/2 {
		return false
	}
	if m.resizeState.Load() != nil {
		return false
	}

	rs := new(resizeState)
	rs.wg.Add(1)
	// Try to set resizeState, if successful it means we've acquired the "lock"
	if !m.resizeState.CompareAndSwap(nil, rs) {
		return false
	}
	// Release waiters even if rehashing panics; the old table is still
	// published and untouched in that case.
	defer func() {
		m.resizeState.Store(nil)
		rs.wg.Done()
	}()

	// The table may have been replaced between the caller observing the
	// threshold and winning the CAS.
	if m.table.Load() != table {
		return false
	}

	start := time.Now()
	table.quiesce()

	cpus := runtime.GOMAXPROCS(0)
	if hint == mapClearHint {
		m.table.Store(newStripedTable[K, V](tableLen, cpus))
		m.totalClears.Add(1)
		m.logger.Debug("cleared map", "buckets", tableLen)
		return true
	}

	newTable := newStripedTable[K, V](tableLen<<1, cpus)
	moved := m.rehash(table, newTable)
	m.table.Store(newTable)
	m.totalGrowths.Add(1)
	m.logger.Debug("grew bucket array",
		"old_buckets", tableLen,
		"new_buckets", len(newTable.buckets),
		"entries", moved,
		"elapsed", time.Since(start))
	return true
}

// rehash moves every entry of the quiesced table into the unpublished
// newTable and returns the number of entries moved.
func (m *StripedMap[K, V]) rehash(table, newTable *stripedTable[K, V]) int {
	newLen := uintptr(len(newTable.buckets))
	moved := 0
	for i := range table.buckets {
		for _, e := range table.buckets[i].entries {
			hash := e.getHash()
			//goland:noinspection ALL
			if !embeddedHash {
				hash = m.keyHash(e.key, m.seed)
			}
			bidx := hash % newLen
			nb := &newTable.buckets[bidx]
			nb.entries = append(nb.entries, e)
			newTable.addSizePlain(bidx, 1)
			moved++
		}
	}
	return moved
}
