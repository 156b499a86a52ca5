// Command chashbench reproduces original_source/src/main.cpp's
// populate/rehash/find/erase/traverse workload: ten workers each touching
// 10,000 disjoint keys concurrently, timed against a plain map guarded by a
// single sync.Mutex. It exists to demonstrate the library, not to gate
// correctness — spec.md §1 keeps benchmarking out of the core package, the
// way the teacher keeps its own benchmark/ directory separate from the
// primitives it measures.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	chashmap "github.com/danilailie/ConcurrentHashMap"
)

const (
	workers    = 10
	perWorker  = 10000
	totalItems = workers * perWorker
)

func main() {
	runConcurrentMap()
	fmt.Println()
	runPlainMap()
}

func runConcurrentMap() {
	m := chashmap.New[int, int](chashmap.WithBucketCount[int, int](10007))

	fmt.Println("chashmap:")
	timeIt("insert", func() error {
		return fanOut(func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				it, _ := m.Insert(i, i)
				it.Close()
			}
			return nil
		})
	})

	m.Rehash()

	timeIt("find", func() error {
		return fanOut(func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				it, ok := m.Find(i)
				if !ok {
					return fmt.Errorf("key %d missing after populate", i)
				}
				it.Close()
			}
			return nil
		})
	})

	var traversed int64
	traverseDone := make(chan struct{})
	go func() {
		defer close(traverseDone)
		count := 0
		for it := m.Begin(); !it.IsEnd(); {
			count++
			if !it.Next() {
				break
			}
		}
		traversed = int64(count)
	}()

	timeIt("erase", func() error {
		return fanOut(func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				m.Erase(i)
			}
			return nil
		})
	})
	<-traverseDone

	fmt.Printf("  traversed (racing erase): %d\n", traversed)
	fmt.Printf("  size after full erase: %d\n", m.Size())
}

func runPlainMap() {
	var mu sync.Mutex
	m := make(map[int]int, totalItems)

	fmt.Println("map+sync.Mutex:")
	timeIt("insert", func() error {
		return fanOut(func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				mu.Lock()
				m[i] = i
				mu.Unlock()
			}
			return nil
		})
	})

	timeIt("find", func() error {
		return fanOut(func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				mu.Lock()
				_, ok := m[i]
				mu.Unlock()
				if !ok {
					return fmt.Errorf("key %d missing after populate", i)
				}
			}
			return nil
		})
	})

	timeIt("erase", func() error {
		return fanOut(func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				mu.Lock()
				delete(m, i)
				mu.Unlock()
			}
			return nil
		})
	})
}

// fanOut runs fn over the [0, totalItems) key range split across `workers`
// disjoint sub-ranges, the same partitioning original_source/src/main.cpp
// used for its std::thread pool, but through errgroup.Group so the first
// worker error is returned instead of an assert() crashing the process. The
// other workers are not cancelled: they run their ranges to completion.
func fanOut(fn func(lo, hi int) error) error {
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		lo, hi := w*perWorker, (w+1)*perWorker
		g.Go(func() error { return fn(lo, hi) })
	}
	return g.Wait()
}

func timeIt(label string, fn func() error) {
	start := time.Now()
	if err := fn(); err != nil {
		fmt.Printf("  %s: FAILED: %v\n", label, err)
		return
	}
	fmt.Printf("  %s: %s\n", label, time.Since(start))
}
