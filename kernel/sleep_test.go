package kernel

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"
)

func TestIsAfterBasic(t *testing.T) {
	if !isAfter(20, 10, 0) {
		t.Fatal("isAfter(20, 10, 0) = false, want true")
	}
	if isAfter(10, 20, 0) {
		t.Fatal("isAfter(10, 20, 0) = true, want false")
	}
}

func TestIsAfterWraparound(t *testing.T) {
	// A tick count that has just wrapped to a small value is "after" one
	// near the top of uint32's range, as long as the true gap is small.
	a := uint32(5)
	b := uint32(math.MaxUint32 - 2)
	ref := b
	if !isAfter(a, b, ref) {
		t.Fatalf("isAfter(%d, %d, ref=%d) = false, want true (wraparound case)", a, b, ref)
	}
}

func TestSleepHeapOrdersByWakeTick(t *testing.T) {
	var now uint32
	h := newSleepHeap(func() uint32 { return now })

	t3 := &TCB{id: 3, data: 30}
	t1 := &TCB{id: 1, data: 10}
	t2 := &TCB{id: 2, data: 20}
	h.Insert(t3)
	h.Insert(t1)
	h.Insert(t2)

	if got := h.ExtractMin(); got.id != 1 {
		t.Fatalf("ExtractMin() = task %d, want the earliest waker (task %d)", got.id, 1)
	}
	if got := h.ExtractMin(); got.id != 2 {
		t.Fatalf("ExtractMin() = task %d, want task %d", got.id, 2)
	}
	if got := h.ExtractMin(); got.id != 3 {
		t.Fatalf("ExtractMin() = task %d, want task %d", got.id, 3)
	}
	if got := h.ExtractMin(); got != nil {
		t.Fatalf("ExtractMin() on empty heap = %v, want nil", got)
	}
}

func TestSleepHeapNeedsWakeup(t *testing.T) {
	now := uint32(0)
	h := newSleepHeap(func() uint32 { return now })
	h.Insert(&TCB{id: 1, data: 100})

	if h.NeedsWakeup(50) {
		t.Fatal("NeedsWakeup(50) = true before wake-tick 100, want false")
	}
	if !h.NeedsWakeup(150) {
		t.Fatal("NeedsWakeup(150) = false after wake-tick 100, want true")
	}
}

func TestSleepHeapWraparoundOrdering(t *testing.T) {
	now := uint32(math.MaxUint32 - 5)
	h := newSleepHeap(func() uint32 { return now })

	// wrapsSoon wakes a few ticks after wraparound; wrapsLater wakes after
	// that. Inserted out of order to exercise siftUp across the wrap.
	wrapsLater := &TCB{id: 2, data: 20}
	wrapsSoon := &TCB{id: 1, data: 2}
	h.Insert(wrapsLater)
	h.Insert(wrapsSoon)

	if got := h.ExtractMin(); got.id != wrapsSoon.id {
		t.Fatalf("ExtractMin() = task %d, want the sooner-after-wrap task %d", got.id, wrapsSoon.id)
	}
	if got := h.ExtractMin(); got.id != wrapsLater.id {
		t.Fatalf("ExtractMin() = task %d, want task %d", got.id, wrapsLater.id)
	}
}

// TestSleepHeapConcurrentInsertExtract stress-tests Insert and ExtractMin
// running truly concurrently, independent of whatever scheduling
// discipline a caller layers on top. It exercises the fail-fast-inside-
// sift-up discipline (see siftUp) under contention: the test's only
// correctness assertion is that every inserted task is eventually
// extracted exactly once without deadlock, race (run with -race), or
// panic — heap-order correctness under concurrent mutation is the
// original source's own documented best-effort mitigation, not a
// guarantee.
//
// Rounds are kept within MaxTasks so that even the worst-case interleaving
// (every inserter finishes before the extractor runs once) never exceeds
// the heap's fixed capacity.
func TestSleepHeapConcurrentInsertExtract(t *testing.T) {
	var now uint32
	h := newSleepHeap(func() uint32 { return now })

	const inserters = 10
	const rounds = 50

	var extracted atomic.Int64
	var nextID atomic.Int64

	for round := 0; round < rounds; round++ {
		var wg sync.WaitGroup
		wg.Add(inserters)
		for g := 0; g < inserters; g++ {
			go func() {
				defer wg.Done()
				id := TaskID(nextID.Add(1))
				h.Insert(&TCB{id: id, data: uint32(id)})
			}()
		}

		stop := make(chan struct{})
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for {
				select {
				case <-stop:
					return
				default:
					if h.ExtractMin() != nil {
						extracted.Add(1)
					}
				}
			}
		}()

		wg.Wait()
		close(stop)
		<-drained

		for h.ExtractMin() != nil {
			extracted.Add(1)
		}
	}

	if got, want := extracted.Load(), int64(inserters*rounds); got != want {
		t.Fatalf("extracted %d tasks across all rounds, want %d", got, want)
	}
}
