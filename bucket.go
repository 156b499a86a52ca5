package chashmap

import "sync"

// bucket is the middle tier of the lock hierarchy described in spec.md
// §4.2: a bucket-wide reader/writer lock guarding the slot vector itself
// (append on insert, compaction on erase), with each slot's own lock
// guarding that slot's live flag and value. The shape mirrors the
// original's bucket (original_source/inc/bucket.hpp), whose every method
// opens with a call to Map::getBucketLockFor.
type bucket[K comparable, V any] struct {
	mu        sync.RWMutex
	slots     []*slot[K, V]
	liveCount int
}

func newBucket[K comparable, V any]() *bucket[K, V] {
	return &bucket[K, V]{}
}

// findIndex returns the index of the slot created for key k, live or
// tombstoned, or -1. No lock required: it only reads each slot's immutable
// key (bucket.hpp's own scan loop calls getKey() under a value lock for the
// same reason the original bothers locking — there getKey() also encodes
// "is this slot currently tombstoned" into the optional's emptiness; here
// liveness is a separate field read once the caller has the slot lock, so
// the key compare itself needs none).
func (b *bucket[K, V]) findIndex(key K) int {
	for i, s := range b.slots {
		if s.matchesKey(key) {
			return i
		}
	}
	return -1
}

// insert implements spec.md §4.2's Insert contract: if key exists and is
// live, return an iterator onto it (inserted = false); if it exists
// tombstoned, revive it in place (inserted = true); otherwise append a new
// slot (inserted = true). The returned Iterator owns a write lock on both the bucket and the
// located/created slot, mirroring Bucket::insert's WRITE-mode bucketLock
// and the WRITE-mode value lock it hands to getIterator.
//
// A registry.acquire call for a write lock can panic (ProtocolViolation)
// when this goroutine already holds the target mutex read-locked through
// more than one live reference. Everything below uses named returns plus a
// defer keyed on the success flag so that an already-acquired bh is not
// leaked if the later sh acquisition panics mid-operation.
func (b *bucket[K, V]) insert(m *Map[K, V], bucketIdx int, key K, val V) (it Iterator[K, V], inserted bool) {
	bh := m.registry.acquire(&b.mu, modeWrite)
	ok := false
	defer func() {
		if !ok {
			bh.release()
		}
	}()

	i := b.findIndex(key)
	if i < 0 {
		ns := newSlot(key, val)
		b.slots = append(b.slots, ns)
		idx := len(b.slots) - 1
		b.liveCount++
		// ns.mu has never been seen by the registry before, so this can't
		// panic: it is always a fresh acquire.
		sh := m.registry.acquire(&ns.mu, modeWrite)
		it, ok, inserted = newLiveIterator(m, bucketIdx, idx, ns, bh, sh), true, true
		return
	}

	s := b.slots[i]
	sh := m.registry.acquire(&s.mu, modeWrite)
	defer func() {
		if !ok {
			sh.release()
		}
	}()
	if s.isLiveLocked() {
		it, ok = newLiveIterator(m, bucketIdx, i, s, bh, sh), true
		return
	}
	s.reviveLocked(val)
	b.liveCount++
	it, ok, inserted = newLiveIterator(m, bucketIdx, i, s, bh, sh), true, true
	return
}

// find implements spec.md §4.2's Find/FindMut: if key exists and is live,
// return an iterator holding the slot lock in the requested mode; otherwise
// report not found and hold nothing.
//
// See insert's comment on why the write-mode acquire below (used by
// FindMut) needs defer-based cleanup rather than an inline release: a
// panic there must not leak bh.
func (b *bucket[K, V]) find(m *Map[K, V], bucketIdx int, key K, mode lockMode) (it Iterator[K, V], ok bool) {
	bh := m.registry.acquire(&b.mu, modeRead)
	defer func() {
		if !ok {
			bh.release()
		}
	}()

	i := b.findIndex(key)
	if i < 0 {
		return Iterator[K, V]{}, false
	}

	s := b.slots[i]
	sh := m.registry.acquire(&s.mu, mode)
	defer func() {
		if !ok {
			sh.release()
		}
	}()
	if !s.isLiveLocked() {
		return Iterator[K, V]{}, false
	}
	it, ok = newLiveIterator(m, bucketIdx, i, s, bh, sh), true
	return
}

// erase implements spec.md §4.2's Erase-by-key: tombstone the slot if it
// exists and is live, decrement the bucket's live count, and report whether
// anything was erased. Idempotent on an already-tombstoned or absent key.
func (b *bucket[K, V]) erase(reg *lockRegistry, key K) bool {
	bh := reg.acquire(&b.mu, modeWrite)
	defer bh.release()

	i := b.findIndex(key)
	if i < 0 {
		return false
	}
	s := b.slots[i]
	sh := reg.acquire(&s.mu, modeWrite)
	defer sh.release()

	if !s.isLiveLocked() {
		return false
	}
	s.eraseLocked()
	b.liveCount--
	return true
}

// firstLiveFrom returns the first live slot starting at index from, with its
// slot lock held in read mode, or ok=false if none exists at or after
// from. The caller must already hold the bucket lock.
func (b *bucket[K, V]) firstLiveFrom(reg *lockRegistry, from int) (int, *slot[K, V], *lockHandle, bool) {
	for i := from; i < len(b.slots); i++ {
		s := b.slots[i]
		sh := reg.acquire(&s.mu, modeRead)
		if s.isLiveLocked() {
			return i, s, sh, true
		}
		sh.release()
	}
	return 0, nil, nil, false
}

// size reports the bucket's live slot count under its read lock.
func (b *bucket[K, V]) size(reg *lockRegistry) int {
	bh := reg.acquire(&b.mu, modeRead)
	defer bh.release()
	return b.liveCount
}

// compact implements spec.md §4.2's compaction: physically drops tombstoned
// slots once live density falls below threshold, but only when every slot
// in the bucket is currently uncontended — i.e. no live Iterator anywhere
// holds one of this bucket's slot locks. TryLock stands in for the
// original's comment that compaction must not run "while the bucket is
// busy": if any slot is already locked (by a live iterator, from any
// goroutine), compaction is skipped and the live count returned unchanged.
func (b *bucket[K, V]) compact(reg *lockRegistry, threshold float64) int {
	bh := reg.acquire(&b.mu, modeWrite)
	defer bh.release()

	if len(b.slots) == 0 {
		return 0
	}
	if float64(b.liveCount) >= float64(len(b.slots))*threshold {
		return b.liveCount
	}

	locked := make([]*slot[K, V], 0, len(b.slots))
	for _, s := range b.slots {
		if !s.mu.TryLock() {
			for _, l := range locked {
				l.mu.Unlock()
			}
			return b.liveCount
		}
		locked = append(locked, s)
	}

	kept := make([]*slot[K, V], 0, b.liveCount)
	for _, s := range b.slots {
		if s.live {
			kept = append(kept, s)
		}
	}
	b.slots = kept

	for _, s := range locked {
		s.mu.Unlock()
	}
	return b.liveCount
}
