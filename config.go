package chashmap

import "github.com/danilailie/ConcurrentHashMap/lockstats"

// defaultBucketCount is the starting bucket count for a Map constructed
// without WithBucketCount: the sixth rung of primeLadder. The Map never
// rehashes on its own; only an explicit Rehash call grows the bucket count.
const defaultBucketCount = 1361

// defaultEraseThreshold is the live-density floor below which a bucket
// becomes eligible for compaction (spec.md §4.2), matching the "around 0.7"
// the original's comments use as a rule of thumb in bucket.hpp.
const defaultEraseThreshold = 0.7

// Config holds the tunables spec.md §6 names as Map construction
// parameters, set through the functional Option pattern the teacher uses
// for map_config.go's WithCapacity/WithAutoShrink/WithKeyHasher.
type Config[K comparable, V any] struct {
	bucketCount    uint64
	eraseThreshold float64
	hasher         Hasher[K]
	observer       lockstats.Observer
}

// Option configures a Map at construction time.
type Option[K comparable, V any] func(*Config[K, V])

func newConfig[K comparable, V any]() *Config[K, V] {
	return &Config[K, V]{
		bucketCount:    defaultBucketCount,
		eraseThreshold: defaultEraseThreshold,
		hasher:         defaultHasher[K](),
	}
}

// WithBucketCount sets the initial bucket count. NextPrime(n-1) is used in
// its place if n isn't itself one of primeLadder's rungs, so the map always
// starts on a ladder rung the way Rehash always steps to one.
func WithBucketCount[K comparable, V any](n uint64) Option[K, V] {
	return func(c *Config[K, V]) {
		if n == 0 {
			return
		}
		c.bucketCount = NextPrime(n - 1)
	}
}

// WithEraseThreshold overrides the compaction density floor (spec.md §4.2).
// Values outside (0, 1] are ignored.
func WithEraseThreshold[K comparable, V any](t float64) Option[K, V] {
	return func(c *Config[K, V]) {
		if t > 0 && t <= 1 {
			c.eraseThreshold = t
		}
	}
}

// WithHasher overrides the key hash functor spec.md §6 describes as
// external and swappable. The replacement must be pure and safe for
// concurrent use from every goroutine touching the Map.
func WithHasher[K comparable, V any](h Hasher[K]) Option[K, V] {
	return func(c *Config[K, V]) {
		if h != nil {
			c.hasher = h
		}
	}
}

// WithLockObserver attaches an optional lock-acquisition statistics
// collector (the lockstats package), switched off by default per
// spec.md §6.
func WithLockObserver[K comparable, V any](o lockstats.Observer) Option[K, V] {
	return func(c *Config[K, V]) {
		c.observer = o
	}
}
