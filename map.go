package chashmap

import (
	"sync"
	"sync/atomic"

	"github.com/danilailie/ConcurrentHashMap/lockstats"
)

// Map is a generic, in-memory concurrent hash map keyed by a comparable
// type K, mapping to values of type V. See doc.go for the full picture;
// this file is the top of the lock hierarchy spec.md §4 describes:
// mapMu (exclusive, Rehash-only) above a vector of Buckets, each with its
// own lock above a vector of Slots, each with its own lock.
//
// A Map must not be copied after first use; it embeds noCopy so `go vet`
// catches accidental copies, the same discipline the teacher applies to
// its own Map type.
type Map[K comparable, V any] struct {
	_ noCopy

	mapMu   sync.RWMutex
	buckets []*bucket[K, V]

	hasher         Hasher[K]
	eraseThreshold float64
	registry       *lockRegistry

	liveTotal     paddedCounter
	erasedTotal   paddedCounter
	liveIterators atomic.Int64
}

// New constructs a Map with the given options, matching the teacher's
// NewMap(options ...Option) shape from map_config.go.
func New[K comparable, V any](opts ...Option[K, V]) *Map[K, V] {
	cfg := newConfig[K, V]()
	for _, opt := range opts {
		opt(cfg)
	}

	buckets := make([]*bucket[K, V], cfg.bucketCount)
	for i := range buckets {
		buckets[i] = newBucket[K, V]()
	}

	reg := &lockRegistry{}
	if cfg.observer != nil {
		reg.observer = cfg.observer
		reg.clock = lockstats.SystemClock{}
	}

	return &Map[K, V]{
		buckets:        buckets,
		hasher:         cfg.hasher,
		eraseThreshold: cfg.eraseThreshold,
		registry:       reg,
	}
}

func (m *Map[K, V]) bucketIndex(key K, bucketCount int) int {
	return int(m.hasher(key) % uint64(bucketCount))
}

// Size returns the map's current live element count. It is eventually
// consistent (spec.md §3): liveTotal and erasedTotal are each
// monotonically non-decreasing between rehashes but are not read together
// atomically, so a concurrent insert/erase can momentarily skew the
// difference. The two loads are clamped rather than subtracted raw:
// reading erasedTotal after it has advanced past a liveTotal snapshot
// taken a moment earlier is exactly the kind of skew this comment
// describes, and against unsigned counters that skew would otherwise wrap
// into a large positive uint64 before the int64 conversion turned it
// negative, not just "approximate".
func (m *Map[K, V]) Size() int64 {
	live := m.liveTotal.load()
	erased := m.erasedTotal.load()
	if erased >= live {
		return 0
	}
	return int64(live - erased)
}

// Insert implements spec.md §4.3's Insert: if key is absent, it is added
// with val and the returned Iterator holds a fresh write-locked slot
// (inserted = true). If key is already present and live, val is discarded
// and the Iterator refers to the existing entry (inserted = false). If key
// is present but tombstoned, it is revived with val (inserted = true).
func (m *Map[K, V]) Insert(key K, val V) (Iterator[K, V], bool) {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()

	n := len(m.buckets)
	idx := m.bucketIndex(key, n)
	b := m.buckets[idx]

	it, inserted := b.insert(m, idx, key, val)
	if inserted {
		m.liveTotal.add(1)
	}
	return it, inserted
}

// Find implements spec.md §4.3's Find: a read-locked Iterator if key is
// present and live, or the End iterator otherwise.
func (m *Map[K, V]) Find(key K) (Iterator[K, V], bool) {
	return m.findMode(key, modeRead)
}

// FindMut implements spec.md §4.3's FindMut: the same lookup as Find, but
// the returned Iterator holds its slot lock in write mode, so Iterator.Set
// may be called on it.
func (m *Map[K, V]) FindMut(key K) (Iterator[K, V], bool) {
	return m.findMode(key, modeWrite)
}

func (m *Map[K, V]) findMode(key K, mode lockMode) (Iterator[K, V], bool) {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()

	n := len(m.buckets)
	idx := m.bucketIndex(key, n)
	b := m.buckets[idx]

	it, ok := b.find(m, idx, key, mode)
	if !ok {
		return endIterator(m), false
	}
	return it, true
}

// Erase implements spec.md §4.3's Erase-by-key: tombstones the entry if
// present and live, triggers best-effort compaction on its bucket, and
// reports whether anything was erased.
func (m *Map[K, V]) Erase(key K) bool {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()

	n := len(m.buckets)
	idx := m.bucketIndex(key, n)
	b := m.buckets[idx]

	erased := b.erase(m.registry, key)
	if erased {
		m.erasedTotal.add(1)
		b.compact(m.registry, m.eraseThreshold)
	}
	return erased
}

// EraseIterator implements spec.md §4.3's Erase-by-iterator: it erases the
// entry the iterator refers to and closes the iterator. Erasing an already
// End or closed iterator is a no-op that reports false.
func (m *Map[K, V]) EraseIterator(it *Iterator[K, V]) bool {
	if it.closed || it.isEnd {
		return false
	}
	key, _ := it.s.snapshotLocked()
	it.Close()
	return m.Erase(key)
}

// Begin implements spec.md §4.3's Begin: an Iterator onto the first live
// slot in bucket-then-slot order, or the End iterator if the map is empty.
func (m *Map[K, V]) Begin() Iterator[K, V] {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()

	for bi, b := range m.buckets {
		bh := m.registry.acquire(&b.mu, modeRead)
		if si, s, sh, ok := b.firstLiveFrom(m.registry, 0); ok {
			return newLiveIterator(m, bi, si, s, bh, sh)
		}
		bh.release()
	}
	return endIterator(m)
}

// End implements spec.md §4.3's End: the canonical past-the-end sentinel.
func (m *Map[K, V]) End() Iterator[K, V] {
	return endIterator(m)
}

// advance moves it to the next live slot, in the same bucket first and
// then scanning forward through subsequent buckets, matching the
// original's advanceIterator (concurrent_unordered_map.hpp).
func (m *Map[K, V]) advance(it *Iterator[K, V]) bool {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()

	b := m.buckets[it.bucketIdx]
	if si, s, sh, ok := b.firstLiveFrom(m.registry, it.slotIdx+1); ok {
		it.slotH.release()
		it.s = s
		it.slotIdx = si
		it.slotH = sh
		return true
	}
	it.releaseForAdvance()

	for bi := it.bucketIdx + 1; bi < len(m.buckets); bi++ {
		nb := m.buckets[bi]
		bh := m.registry.acquire(&nb.mu, modeRead)
		if si, s, sh, ok := nb.firstLiveFrom(m.registry, 0); ok {
			it.bucketIdx = bi
			it.slotIdx = si
			it.s = s
			it.bucketH = bh
			it.slotH = sh
			return true
		}
		bh.release()
	}

	it.closed = true
	it.isEnd = true
	m.liveIterators.Add(-1)
	return false
}

// Rehash implements spec.md §4.3's Rehash: doubles toward the next rung of
// the prime ladder, re-inserting every currently-live slot under its old
// bucket's write lock, then swaps in the new bucket vector under the
// map-wide exclusive lock. It panics (ProtocolViolation) if any Iterator is
// currently live, since a rehash invalidates every bucket/slot pointer an
// Iterator might be holding; a panicking Rehash — from the panic above or
// from a panicking Hasher (spec.md §7 names this case explicitly) — is a
// no-op: the old bucket vector is never replaced unless the full rebuild
// succeeds, and each bucket's write lock is released via a deferred call
// (the per-bucket closure below) so a panic partway through the rebuild
// can't leave that bucket permanently locked.
func (m *Map[K, V]) Rehash() {
	if m.liveIterators.Load() != 0 {
		panicProtocol("Rehash called while an Iterator is live")
	}

	m.mapMu.Lock()
	defer m.mapMu.Unlock()

	if m.liveIterators.Load() != 0 {
		panicProtocol("Rehash called while an Iterator is live")
	}

	newCount := NextPrime(uint64(len(m.buckets)))
	newBuckets := make([]*bucket[K, V], newCount)
	for i := range newBuckets {
		newBuckets[i] = newBucket[K, V]()
	}

	for _, b := range m.buckets {
		func() {
			bh := m.registry.acquire(&b.mu, modeWrite)
			defer bh.release()

			for _, s := range b.slots {
				if !s.live {
					continue
				}
				idx := int(m.hasher(s.key) % newCount)
				nb := newBuckets[idx]
				nb.slots = append(nb.slots, newSlot(s.key, s.val))
				nb.liveCount++
			}
		}()
	}

	m.buckets = newBuckets
}
