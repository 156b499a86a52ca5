package chashmap

import (
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/danilailie/ConcurrentHashMap/internal/gid"
	"github.com/danilailie/ConcurrentHashMap/lockstats"
)

// lockMode mirrors the original's LockType (unordered_map_utils.hpp).
type lockMode uint8

const (
	modeRead lockMode = iota
	modeWrite
)

// lockHandle is this port's equivalent of the original's
// shared_ptr<VariantLock>: a shared, refcounted reference to one acquired
// bucket or slot lock. Every Iterator referencing the same lock holds a
// *lockHandle obtained from either a fresh acquire or Clone, and the
// underlying sync.RWMutex is only actually unlocked when the last reference
// releases.
type lockHandle struct {
	mu   *sync.RWMutex
	mode lockMode
	refs atomic.Int32
	gid  uint64
	reg  *lockRegistry
}

// retain shares this handle with one more owner (spec.md §4.4: "two
// iterators into the same slot share lock ownership").
func (h *lockHandle) retain() *lockHandle {
	h.refs.Add(1)
	return h
}

// release drops one reference; on the last reference it unlocks the
// underlying mutex and removes the goroutine-local registry entry, exactly
// like the original's custom shared_ptr deleter
// (concurrent_unordered_map.hpp: aquireLockFor's deleter lambda).
func (h *lockHandle) release() {
	if h.refs.Add(-1) == 0 {
		h.reg.forget(h)
	}
}

// registryEntry is the goroutine-local bookkeeping record for one mutex:
// the original's LockMap value, `std::tuple<WeakVariantLock, LockType>`.
// The registry holds a weak reference to the handle, not a strong one, so a
// leaked Iterator (one whose Close was never called) does not keep the
// registry entry alive forever; spec.md §7 calls this out explicitly as
// self-healing. The mutex itself is unlocked only by the handle's last
// release, so a leaked Iterator's lock stays held.
type registryEntry struct {
	handle weak.Pointer[lockHandle]
	mode   lockMode
}

// goroutineLocks is one goroutine's private view of the registry: a plain
// map keyed by lock identity (spec.md §9: "a small thread-local hash map
// keyed by lock identity"), normally touched only by its owning goroutine.
// The one exception is an Iterator handed to another goroutine after
// Clone — iterator.go documents Iterator as a movable, copyable handle,
// and its last reference can drop on whichever goroutine calls Close, not
// necessarily the one that acquired the lock. forget() then mutates this
// map from a goroutine other than its owner, so entries needs its own
// mutex rather than relying on "only the owner touches it" being literally
// true in every case.
type goroutineLocks struct {
	mu      sync.Mutex
	entries map[*sync.RWMutex]*registryEntry
}

// lockRegistry is the per-Map re-entrancy registry described in spec.md
// §4.3 and §9: it lets a goroutine that already holds a bucket or slot lock
// re-enter insert/find/erase on the same lock from the same goroutine
// without deadlocking on a non-recursive mutex.
type lockRegistry struct {
	byGoroutine sync.Map // uint64 -> *goroutineLocks

	// observer and clock instrument real (non-registry-hit) acquisitions
	// for the optional lockstats collector, spec.md §1/§6's "statistics
	// collection" external collaborator. Both nil unless
	// WithLockObserver was used; every call site below is nil-checked,
	// matching SPEC_FULL.md's "optional hooks stay nil-checked" rule.
	observer lockstats.Observer
	clock    lockstats.Clock
}

func (r *lockRegistry) locksFor(id uint64) *goroutineLocks {
	if v, ok := r.byGoroutine.Load(id); ok {
		return v.(*goroutineLocks)
	}
	v, _ := r.byGoroutine.LoadOrStore(id, &goroutineLocks{entries: make(map[*sync.RWMutex]*registryEntry)})
	return v.(*goroutineLocks)
}

// acquire obtains a *lockHandle for mu in the requested mode, consulting
// (and maintaining) the calling goroutine's registry entries per spec.md
// §4.3:
//   - no entry: acquire freshly and register.
//   - entry in the same mode: return the existing shared handle.
//   - entry in write mode, read requested: the existing write handle
//     already grants read access; hand it back as-is.
//   - entry in read mode, write requested: upgrade in place if this
//     goroutine is the entry's only reference, otherwise it's a protocol
//     violation (this goroutine would be blocking on itself).
func (r *lockRegistry) acquire(mu *sync.RWMutex, mode lockMode) *lockHandle {
	id := gid.Current()
	gl := r.locksFor(id)

	for {
		gl.mu.Lock()
		entry, ok := gl.entries[mu]
		if !ok {
			gl.mu.Unlock()
			h := &lockHandle{mu: mu, mode: mode, gid: id, reg: r}
			h.refs.Store(1)
			start := r.now()
			if mode == modeRead {
				mu.RLock()
			} else {
				mu.Lock()
			}
			r.observe(id, mode, start)
			gl.mu.Lock()
			gl.entries[mu] = &registryEntry{handle: weak.Make(h), mode: mode}
			gl.mu.Unlock()
			return h
		}

		h := entry.handle.Value()
		if h == nil {
			// Self-healing (spec.md §7): a stale entry whose handle was
			// never explicitly released (a leaked Iterator). Drop it and
			// acquire fresh.
			delete(gl.entries, mu)
			gl.mu.Unlock()
			continue
		}

		switch {
		case entry.mode == mode:
			gl.mu.Unlock()
			return h.retain()
		case entry.mode == modeWrite && mode == modeRead:
			gl.mu.Unlock()
			return h.retain()
		default: // entry.mode == modeRead && mode == modeWrite
			if h.refs.Load() != 1 {
				gl.mu.Unlock()
				panicProtocol("upgrade requested on a lock this goroutine holds through more than one live reference")
			}
			gl.mu.Unlock()
			mu.RUnlock()
			start := r.now()
			mu.Lock()
			r.observe(id, modeWrite, start)
			gl.mu.Lock()
			h.mode = modeWrite
			entry.mode = modeWrite
			gl.mu.Unlock()
			// This call is a distinct logical owner from whoever already
			// held h (e.g. a live Iterator) — it must retain its own
			// reference, exactly like the two cases above, or the
			// pre-existing holder and this caller each releasing once
			// would unlock mu twice.
			return h.retain()
		}
	}
}

func (r *lockRegistry) now() time.Time {
	if r.clock == nil {
		return time.Time{}
	}
	return r.clock.Now()
}

func (r *lockRegistry) observe(id uint64, mode lockMode, start time.Time) {
	if r.observer == nil {
		return
	}
	lm := lockstats.Read
	if mode == modeWrite {
		lm = lockstats.Write
	}
	r.observer.Acquire(id, lm, r.clock.Now().Sub(start))
}

// forget unlocks mu and removes h's owning goroutine's registry entry for
// it. Called exactly once, when a handle's last reference is released —
// which, since Iterator is a movable/copyable handle (iterator.go), is not
// guaranteed to happen on h.gid's own goroutine: a Clone handed to another
// goroutine can have its Close (and so this call) run there instead. gl.mu
// guards entries against that cross-goroutine access; h.gid's own calls
// into acquire take the same lock.
func (r *lockRegistry) forget(h *lockHandle) {
	if h.mode == modeRead {
		h.mu.RUnlock()
	} else {
		h.mu.Unlock()
	}
	if v, ok := r.byGoroutine.Load(h.gid); ok {
		gl := v.(*goroutineLocks)
		gl.mu.Lock()
		defer gl.mu.Unlock()
		if cur, ok := gl.entries[h.mu]; ok && cur.handle.Value() == h {
			delete(gl.entries, h.mu)
		}
	}
}
