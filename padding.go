package chashmap

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// cacheLineSize is the size of a cache line in bytes, computed the way
// llxisdsh/synx's internal/opt.CacheLineSize_ does it: sizeof the portable
// padding type x/sys/cpu exposes for exactly this purpose.
const cacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

// paddedCounter is a cache-line-padded atomic counter, modeled on
// llxisdsh/synx's counterStripe (map_util.go): liveTotal and erasedTotal are
// both hot under concurrent insert/erase from every worker goroutine, and
// without padding they would share a line and false-share on every update
// even though they're otherwise independent (spec.md §3: "live_total is
// monotonically non-decreasing between rehashes").
//
// Unlike counterStripe, this isn't generic over K/V, so the padding amount
// is an ordinary compile-time constant.
type paddedCounter struct {
	v atomic.Uint64
	_ [(cacheLineSize - unsafe.Sizeof(atomic.Uint64{})%cacheLineSize) % cacheLineSize]byte
}

func (c *paddedCounter) add(delta uint64) uint64 { return c.v.Add(delta) }
func (c *paddedCounter) load() uint64            { return c.v.Load() }
