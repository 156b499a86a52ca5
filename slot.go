package chashmap

import "sync"

// slot is a single key/value cell, the unit described in spec.md §4.1. It
// carries its own reader/writer lock, guarding the live flag and the
// key/value pair the way original_source/inc/internal_value.hpp's
// internal_value guards them with its own std::shared_mutex.
//
// Unlike internal_value, whose compareKey/isAvailable/updateValue each take
// their own bare std::shared_lock, every field access here assumes the
// caller already holds mu through the map's lockRegistry (see registry.go).
// The original only routes bucket-level locks through its thread-local
// registry (getBucketLockFor) and leaves value-level locks bare
// (getValueLockFor is declared in concurrent_unordered_map.hpp but never
// called) — harmless there only because the original never actually keeps a
// slot lock held across an Iterator's lifetime. spec.md §4.4 requires
// exactly that ("held slot read-or-write lock" for the iterator's whole
// life), which makes bare per-method locking here a genuine self-deadlock
// hazard: a goroutine holding a live iterator's write lock on this slot,
// that then re-enters Map.Erase on the same key from the same goroutine,
// would call sync.RWMutex.Lock twice on itself. Routing every touch through
// the registry (which recognizes "I already hold this" and hands back the
// same handle) is what closes that hole; see DESIGN.md Part 1.
//
// A slot's key never changes once created (spec.md §3), so reading it
// needs no lock at all — it is written exactly once, before the slot is
// published into a bucket's slice.
type slot[K comparable, V any] struct {
	mu   sync.RWMutex
	key  K
	val  V
	live bool
}

func newSlot[K comparable, V any](key K, val V) *slot[K, V] {
	return &slot[K, V]{key: key, val: val, live: true}
}

// matchesKey reports whether this slot was created for k. Safe to call
// without holding mu: key is write-once-before-publish.
func (s *slot[K, V]) matchesKey(k K) bool {
	return s.key == k
}

// The following accessors all require the caller to already hold mu (in the
// mode indicated) via lockRegistry.acquire — mirroring internal_value's
// methods but with the locking pulled out to the registry.

// isLiveLocked reports the live flag (internal_value::isAvailable).
func (s *slot[K, V]) isLiveLocked() bool {
	return s.live
}

// snapshotLocked returns the (key, value) pair (internal_value::getKeyValuePair).
func (s *slot[K, V]) snapshotLocked() (K, V) {
	return s.key, s.val
}

// eraseLocked tombstones the slot (internal_value's delete-marking path in
// Bucket::erase). Idempotent.
func (s *slot[K, V]) eraseLocked() {
	s.live = false
}

// reviveLocked overwrites the value and clears the tombstone
// (internal_value::updateValue, paired with setAvailable in the original's
// Bucket::insert re-insert branch).
func (s *slot[K, V]) reviveLocked(v V) {
	s.val = v
	s.live = true
}

// setLocked overwrites the value without touching the live flag, used by
// Iterator.Set on a write-locked iterator.
func (s *slot[K, V]) setLocked(v V) {
	s.val = v
}
