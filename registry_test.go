package chashmap

import "testing"

func TestRegistry_ReentrantInsertOnCollidingKeysDoesNotDeadlock(t *testing.T) {
	m := newSingleBucketMap[int, int]()

	it1, inserted1 := m.Insert(1, 1)
	if !inserted1 {
		t.Fatal("first insert should report inserted")
	}
	defer it1.Close()

	// Same goroutine, same bucket (there's only one), different key: this
	// re-enters the bucket lock this goroutine already holds via it1.
	it2, inserted2 := m.Insert(2, 2)
	if !inserted2 {
		t.Fatal("second insert should report inserted")
	}
	defer it2.Close()

	if got := it1.Value(); got != 1 {
		t.Fatalf("it1.Value() = %d, want 1", got)
	}
	if got := it2.Value(); got != 2 {
		t.Fatalf("it2.Value() = %d, want 2", got)
	}
}

func TestRegistry_FindMutThenSameGoroutineEraseUpgradesInPlace(t *testing.T) {
	m := newTestMap[int, int](64)
	it, _ := m.Insert(1, 1)
	it.Close()

	wit, ok := m.FindMut(1)
	if !ok {
		t.Fatal("FindMut should locate key 1")
	}

	// Erasing the same key this goroutine already holds a write-locked
	// iterator on must not self-deadlock: the bucket lock upgrades from
	// read to write in place, and the slot lock is already write mode.
	if !m.Erase(1) {
		t.Fatal("Erase should succeed")
	}

	wit.Close()

	if _, ok := m.Find(1); ok {
		t.Fatal("key 1 should be gone after Erase")
	}
}

func TestRegistry_UpgradeWithMultipleReferencesPanics(t *testing.T) {
	m := newTestMap[int, int](64)
	it, _ := m.Insert(1, 1)
	it.Close()

	rit, ok := m.Find(1)
	if !ok {
		t.Fatal("Find should locate key 1")
	}
	defer rit.Close()

	// A second independent reference to the same read-locked slot, held
	// alongside rit, makes an upgrade unsafe: this goroutine would have to
	// wait for its own still-live reference to release.
	clone := rit.Clone()
	defer clone.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("FindMut while two read references are held should panic")
		}
	}()
	m.FindMut(1)
}
