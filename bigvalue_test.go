package chashmap

import "testing"

// bigValue is a value type large enough (a 40KB array per entry), ported
// from original_source/inc/large_object.hpp's LargeObject, that an
// accidental extra copy or a dropped/corrupted copy on the hot path would
// show up as a correctness bug rather than something only a benchmark
// would notice.
type bigValue struct {
	index int
	data  [10000]uint32
}

func newBigValue(index int) bigValue {
	return bigValue{index: index}
}

// TestBigValue_SurvivesInsertFindEraseRehash exercises the full operation
// set against a value type expensive enough (a 40KB array per entry) that
// an accidental extra copy on the hot path — e.g. compaction or Rehash
// copying values through a path other than the deliberate ones —
// would show up as a correctness bug (a stale copy's index disagreeing
// with its key) well before it would show up as a performance regression
// nobody's running a benchmark to catch.
func TestBigValue_SurvivesInsertFindEraseRehash(t *testing.T) {
	m := newTestMap[int, bigValue](41)
	const n = 64
	for i := 0; i < n; i++ {
		it, inserted := m.Insert(i, newBigValue(i))
		if !inserted {
			t.Fatalf("insert of new key %d should report inserted", i)
		}
		it.Close()
	}

	m.Rehash()

	for i := 0; i < n; i++ {
		it, ok := m.Find(i)
		if !ok {
			t.Fatalf("key %d missing after Rehash", i)
		}
		if got := it.Value(); got.index != i {
			t.Fatalf("key %d holds value with index %d after Rehash", i, got.index)
		}
		it.Close()
	}

	for i := 0; i < n; i += 2 {
		if !m.Erase(i) {
			t.Fatalf("erase of key %d should succeed", i)
		}
	}
	if got, want := m.Size(), int64(n/2); got != want {
		t.Fatalf("Size() after erasing half the keys = %d, want %d", got, want)
	}
	for i := 1; i < n; i += 2 {
		it, ok := m.Find(i)
		if !ok {
			t.Fatalf("odd key %d should have survived the even-key erase pass", i)
		}
		it.Close()
	}
}
