// Package chashmap is a generic, in-memory concurrent hash map keyed by a
// comparable type K, mapping to values of type V.
//
// It is built for workloads where lookups vastly outnumber mutations and
// workers insert, find, and erase disjoint key ranges in parallel: per-key
// caches, routing tables, shared request-pipeline state.
//
// The concurrency story is fine-grained locking, not lock-free progress: a
// map-wide lock only for Rehash, a reader/writer lock per Bucket, and a
// reader/writer lock per Slot. Erased entries are tombstoned, not removed in
// place, so an Iterator can keep observing a slot while the goroutine that
// holds it inserts or erases other keys in the same bucket (other goroutines'
// mutations of that bucket wait until the Iterator is closed); tombstones are
// reclaimed by Bucket compaction once their density crosses a configurable
// threshold.
//
// A Map must not be copied after first use.
package chashmap
