package chashmap

import "hash/maphash"

// Hasher is the hash functor spec.md §6 calls external: a pure, thread-safe
// callable from a key to an unsigned integer. Determinism across calls
// within a process is required; cryptographic strength is not.
type Hasher[K comparable] func(key K) uint64

// defaultHasher builds the platform's generic hash of K, the way spec.md §6
// describes the default. llxisdsh/synx's own defaultHasher (map_util.go)
// reaches into the Go runtime's internal map-type representation with
// unsafe.Pointer casts to shave nanoseconds off the common integer/string
// cases; this module has no comparable performance budget to justify that
// risk, so it uses maphash.Comparable instead — the exported, Go-1.24-native
// equivalent that needs no internal-runtime assumptions.
func defaultHasher[K comparable]() Hasher[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}
