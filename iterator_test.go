package chashmap

import "testing"

func TestIterator_EndIsNotDereferenceable(t *testing.T) {
	m := newTestMap[int, string](64)
	end := m.End()

	defer func() {
		if recover() == nil {
			t.Fatal("Key() on the end iterator should panic")
		}
	}()
	end.Key()
}

func TestIterator_SetOnReadLockedPanics(t *testing.T) {
	m := newTestMap[int, string](64)
	it, _ := m.Insert(1, "one")
	it.Close()

	rit, ok := m.Find(1)
	if !ok {
		t.Fatal("Find should locate key 1")
	}
	defer rit.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("Set on a read-locked iterator should panic")
		}
	}()
	rit.Set("nope")
}

func TestIterator_FindMutAllowsSet(t *testing.T) {
	m := newTestMap[int, string](64)
	it, _ := m.Insert(1, "one")
	it.Close()

	wit, ok := m.FindMut(1)
	if !ok {
		t.Fatal("FindMut should locate key 1")
	}
	wit.Set("uno")
	wit.Close()

	rit, _ := m.Find(1)
	defer rit.Close()
	if got := rit.Value(); got != "uno" {
		t.Fatalf("Value() = %q, want uno", got)
	}
}

func TestIterator_CloneIsIndependentlyCloseable(t *testing.T) {
	m := newTestMap[int, string](64)
	it, _ := m.Insert(1, "one")

	clone := it.Clone()
	it.Close()

	// The clone should still be usable after the original closes.
	if got := clone.Value(); got != "one" {
		t.Fatalf("Value() on clone after original Close() = %q, want one", got)
	}
	clone.Close()
}

func TestIterator_CloseIsIdempotent(t *testing.T) {
	m := newTestMap[int, string](64)
	it, _ := m.Insert(1, "one")
	it.Close()
	it.Close() // must not panic or double-release
}

func TestIterator_EqualComparesKeyNotPosition(t *testing.T) {
	m := newTestMap[int, string](64)
	it1, _ := m.Insert(1, "one")
	defer it1.Close()

	it2, ok := m.Find(1)
	if !ok {
		t.Fatal("Find should locate key 1")
	}
	defer it2.Close()

	if !it1.Equal(&it2) {
		t.Fatal("two iterators onto the same key should be Equal")
	}

	end1 := m.End()
	end2 := m.End()
	if !end1.Equal(&end2) {
		t.Fatal("two end iterators should be Equal")
	}
}

func TestIterator_BeginTraversesAllLiveEntries(t *testing.T) {
	m := newTestMap[int, int](64)
	const n = 200
	for i := 0; i < n; i++ {
		it, _ := m.Insert(i, i*i)
		it.Close()
	}

	seen := make(map[int]bool, n)
	count := 0
	for it := m.Begin(); !it.IsEnd(); {
		k := it.Key()
		v := it.Value()
		if v != k*k {
			t.Fatalf("key %d has value %d, want %d", k, v, k*k)
		}
		seen[k] = true
		count++
		if !it.Next() {
			break
		}
	}
	if count != n {
		t.Fatalf("traversed %d entries, want %d", count, n)
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			t.Fatalf("key %d was never visited", i)
		}
	}
}
