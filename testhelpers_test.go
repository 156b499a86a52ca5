package chashmap

// newTestMap builds a Map via the public constructor, rounding bucketCount
// up to the next prime ladder rung the same way WithBucketCount always
// does.
func newTestMap[K comparable, V any](bucketCount uint64) *Map[K, V] {
	return New[K, V](WithBucketCount[K, V](bucketCount))
}

// newSingleBucketMap builds a Map with exactly one bucket, bypassing the
// prime-ladder rounding WithBucketCount applies, so every key collides into
// bucket 0 — useful for exercising Bucket's own scan/insert/erase/compact
// logic directly and deterministically.
func newSingleBucketMap[K comparable, V any]() *Map[K, V] {
	m := New[K, V]()
	m.buckets = []*bucket[K, V]{newBucket[K, V]()}
	return m
}
