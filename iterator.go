package chashmap

// Iterator is a movable, copyable handle onto one live slot of a Map, per
// spec.md §4.4. It holds a bucket lock handle and a slot lock handle (read
// or write, depending on how it was obtained) for as long as it is open,
// which is what lets it keep observing its slot correctly while other
// goroutines insert or erase keys in other buckets. Other goroutines'
// inserts and erases in its own bucket wait until it is closed.
//
// The zero Iterator is not usable; obtain one from Map's Insert, Find,
// FindMut, Begin, or End.
//
// Go has no destructor to mirror the original's RAII-released
// std::shared_mutex locks, so an Iterator must be closed explicitly with
// Close. Go also has no copy constructor, so a bare `:=` copy of an
// Iterator would share its lock handles' underlying pointers without
// bumping their reference counts; use Clone for a safe, independently
// closeable duplicate.
type Iterator[K comparable, V any] struct {
	m      *Map[K, V]
	isEnd  bool
	closed bool

	bucketIdx int
	slotIdx   int
	s         *slot[K, V]

	bucketH *lockHandle
	slotH   *lockHandle
}

// endIterator builds the canonical end-of-map iterator: no locks held, no
// map identity comparison beyond the map pointer itself (spec.md §4.4:
// "Equality is defined over (map pointer, key) or (map pointer, is-end)").
func endIterator[K comparable, V any](m *Map[K, V]) Iterator[K, V] {
	return Iterator[K, V]{m: m, isEnd: true, closed: true}
}

// newLiveIterator mints an iterator over a located, already-locked slot,
// taking ownership of bucketH/slotH (the caller must not release them).
// It and Clone are the two places a non-end Iterator comes into existence,
// so they are the two places the Map's live-iterator count is incremented —
// see Map.Rehash for why that count exists.
func newLiveIterator[K comparable, V any](m *Map[K, V], bucketIdx, slotIdx int, s *slot[K, V], bucketH, slotH *lockHandle) Iterator[K, V] {
	m.liveIterators.Add(1)
	return Iterator[K, V]{
		m:         m,
		bucketIdx: bucketIdx,
		slotIdx:   slotIdx,
		s:         s,
		bucketH:   bucketH,
		slotH:     slotH,
	}
}

// IsEnd reports whether it is the past-the-end sentinel (spec.md §4.4's
// "End" state). Dereferencing an end iterator is a protocol violation.
func (it *Iterator[K, V]) IsEnd() bool { return it.isEnd }

// Key returns the slot's key. Panics if called on a closed or end iterator
// (spec.md §7: dereferencing End is undefined behavior in the original;
// this module turns it into a catchable panic instead).
func (it *Iterator[K, V]) Key() K {
	it.mustBeLive("Key")
	k, _ := it.s.snapshotLocked()
	return k
}

// Value returns a copy of the slot's value.
func (it *Iterator[K, V]) Value() V {
	it.mustBeLive("Value")
	_, v := it.s.snapshotLocked()
	return v
}

// Set overwrites the slot's value in place. Only valid when this iterator
// holds its slot lock in write mode — i.e. it came from Insert, FindMut, or
// a Clone of one of those. Calling Set on a read-locked iterator is a
// protocol violation, not a recoverable error: it would silently race with
// concurrent readers the lock exists to prevent.
func (it *Iterator[K, V]) Set(v V) {
	it.mustBeLive("Set")
	if it.slotH.mode != modeWrite {
		panicProtocol("Set called on an iterator whose slot lock is read-only")
	}
	it.s.setLocked(v)
}

func (it *Iterator[K, V]) mustBeLive(op string) {
	if it.closed {
		panicProtocol(op + " called on a closed iterator")
	}
	if it.isEnd {
		panicProtocol(op + " called on the end iterator")
	}
}

// Next advances the iterator to the next live slot in bucket-then-slot order
// (spec.md §4.4's Advance), releasing the current slot/bucket locks and
// acquiring the next pair. It reports whether the iterator now refers to a
// live slot; a false return leaves it in the End state.
func (it *Iterator[K, V]) Next() bool {
	if it.closed {
		panicProtocol("Next called on a closed iterator")
	}
	if it.isEnd {
		return false
	}
	return it.m.advance(it)
}

// Equal reports whether two iterators refer to the same map position:
// either both End, or both live and holding the same key (spec.md §4.4 —
// equality is never defined over bucket/slot indices, since those are
// unstable across rehash).
func (it *Iterator[K, V]) Equal(other *Iterator[K, V]) bool {
	if it.m != other.m {
		return false
	}
	if it.isEnd || other.isEnd {
		return it.isEnd == other.isEnd
	}
	k1, _ := it.s.snapshotLocked()
	k2, _ := other.s.snapshotLocked()
	return k1 == k2
}

// Clone returns an independent, separately closeable iterator sharing this
// one's lock ownership (spec.md §4.4: "movable, copyable handle"). Go's
// lack of copy constructors means a bare struct copy would share the
// lockHandle pointers without bumping their refcounts, so Clone exists as
// the one supported way to duplicate an Iterator.
func (it *Iterator[K, V]) Clone() Iterator[K, V] {
	if it.closed || it.isEnd {
		return *it
	}
	it.m.liveIterators.Add(1)
	return Iterator[K, V]{
		m:         it.m,
		bucketIdx: it.bucketIdx,
		slotIdx:   it.slotIdx,
		s:         it.s,
		bucketH:   it.bucketH.retain(),
		slotH:     it.slotH.retain(),
	}
}

// Close releases this iterator's lock references. Idempotent: closing an
// already-closed or End iterator is a no-op, the same forgiveness the
// original gets for free from destructor order not mattering.
func (it *Iterator[K, V]) Close() {
	if it.closed {
		return
	}
	it.slotH.release()
	it.bucketH.release()
	it.closed = true
	if !it.isEnd {
		it.m.liveIterators.Add(-1)
	}
}

// releaseForAdvance is Next's internal equivalent of Close that does not
// mark the iterator closed — the caller (Map.advance) decides the new state
// right after.
func (it *Iterator[K, V]) releaseForAdvance() {
	it.slotH.release()
	it.bucketH.release()
}
