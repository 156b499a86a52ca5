// Package gid identifies the calling goroutine.
//
// spec.md §4.3 and §9 describe the re-entrancy registry as thread-local:
// a per-thread map from lock identity to a shared handle, so a thread that
// already holds a lock doesn't block on itself when it re-enters the map.
// Go has no goroutines-are-threads guarantee and no exported goroutine-local
// storage, so "thread" is ported as "goroutine", identified here the
// standard, if unglamorous, way: parsing the numeric id out of the header
// line of runtime.Stack's own output, the same trick used by several
// ecosystem debugging and tracing libraries when the unexported runtime `g`
// pointer isn't available. No dependency in the example pack exposes
// goroutine identity, so this is a justified stdlib-only component.
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

// Current returns an identifier for the calling goroutine. It is unique
// among concurrently live goroutines but is not guaranteed stable once the
// goroutine exits; callers must not persist it beyond the lifetime of a
// single call into this package's consumers.
func Current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		panic("gid: unexpected runtime.Stack format")
	}
	b = b[len(prefix):]

	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		panic("gid: unexpected runtime.Stack format")
	}

	id, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		panic("gid: unexpected runtime.Stack format: " + err.Error())
	}
	return id
}
