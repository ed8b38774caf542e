package kernel

import (
	"sync"
	"sync/atomic"
)

// halfUint32Max is the maximum sleep duration in ticks (~24.85 days at a
// 1ms tick). The wraparound-safe "is after" comparisons use
// now+halfUint32Max+1 (2^31) as their reference.
const halfUint32Max = 0x7FFFFFFF

// isAfter reports whether a is after b, with wraparound handled by
// comparing both against a common reference: (a-ref) > (b-ref) in unsigned
// arithmetic. Differences of more than halfUint32Max are undefined, per
// spec.md §3.
func isAfter(a, b, ref uint32) bool {
	return (a - ref) > (b - ref)
}

// SleepHeap is an array-backed binary min-heap of sleeping TCBs, keyed on
// TCB.data (the absolute wake-tick). Insert is called from task context and
// is mutex-protected around its own modification of the heap; ExtractMin
// is called from the scheduler, which must never block, so it takes no
// lock at all — mirroring the original source exactly, which protects
// sleep_heapInsert with a mutex but leaves sleep_heapExtract unguarded.
// The two can genuinely race: Insert's sift-up loop re-reads a fail-fast
// snapshot on every iteration and only commits a swap if it is unchanged,
// restarting the iteration otherwise so it never acts on a heap shape
// ExtractMin has since changed out from under it. ExtractMin's own
// sift-down has no equivalent guard, again matching the original: this
// narrows the corruption window, it does not eliminate the possibility of
// a pathological interleaving (see §4.2) — the original's own comment
// admits as much ("I have found no good way of dealing with this race
// condition"). Heap slots and the length are held in atomic fields so that
// this documented logical race never becomes a memory-unsafe one.
type SleepHeap struct {
	now func() uint32

	insertMu sync.Mutex
	store    [MaxTasks]atomic.Pointer[TCB]
	length   atomic.Uint32
	failFast fastFailCounter
}

// newSleepHeap creates an empty sleep heap. now is consulted on every
// comparison, matching the original's repeated OS_elapsedTicks() calls
// inside its sift loops rather than a single snapshot per call.
func newSleepHeap(now func() uint32) *SleepHeap {
	return &SleepHeap{now: now}
}

// Insert places tcb into the heap, keyed on tcb.data, and restores heap
// order. Capacity is never exceeded in practice because the scheduler
// rejects more than MaxTasks total tasks. insertMu only serializes Insert
// against other concurrent Inserts — never against ExtractMin, which takes
// no lock.
func (h *SleepHeap) Insert(tcb *TCB) {
	h.insertMu.Lock()
	defer h.insertMu.Unlock()

	length := h.length.Load()
	assertDebug(length < MaxTasks, "sleep heap: capacity exceeded")
	h.store[length].Store(tcb)
	h.length.Store(length + 1)
	h.siftUp(length)
}

// ExtractMin removes and returns the root (soonest-waking) task, or nil if
// the heap is empty. Must only be called after NeedsWakeup (or an explicit
// emptiness check) confirms there is something to extract. Deliberately
// takes no lock: the scheduler that calls this can never block waiting on
// a mutex an arbitrary task might be holding.
func (h *SleepHeap) ExtractMin() *TCB {
	length := h.length.Load()
	if length == 0 {
		return nil
	}
	tcb := h.store[0].Load()
	last := h.store[length-1].Load()
	h.store[0].Store(last)
	h.store[length-1].Store(nil)
	h.length.Store(length - 1)
	h.siftDown()

	// Increment after the shape change is fully committed, so any Insert
	// whose siftUp snapshot predates this line is guaranteed to see a
	// different value and retry.
	h.failFast.Increment()
	return tcb
}

// NeedsWakeup reports whether the root element, if any, has a wake-tick
// that has already passed as of now. Lock-free for the same reason as
// ExtractMin — it is only ever called right before it.
func (h *SleepHeap) NeedsWakeup(now uint32) bool {
	if h.length.Load() == 0 {
		return false
	}
	root := h.store[0].Load()
	if root == nil {
		return false
	}
	ref := now + halfUint32Max + 1
	return isAfter(now, root.data, ref)
}

// siftUp restores heap order after an element was appended at index i.
// Called with insertMu held, but ExtractMin may be mutating the same
// store/length concurrently without any lock at all — every comparison
// re-reads live state, and a swap only commits if the fail-fast counter
// ExtractMin bumps on every extraction is unchanged since the top of the
// current iteration.
func (h *SleepHeap) siftUp(i uint32) {
	for {
		// Snapshot as early as possible in the iteration, so a concurrent
		// ExtractMin that runs anywhere in this iteration is caught below.
		ff := h.failFast.Load()

		if i == 0 {
			return
		}
		parent := (i - 1) / 2

		elem := h.store[i].Load()
		parentElem := h.store[parent].Load()
		if elem == nil || parentElem == nil {
			// ExtractMin shortened the heap out from under this index;
			// nothing more to sort.
			return
		}

		ref := h.now() + halfUint32Max + 1
		if isAfter(elem.data, parentElem.data, ref) {
			return
		}

		if ff == h.failFast.Load() {
			h.store[i].Store(parentElem)
			h.store[parent].Store(elem)
			i = parent
		}
		// else: a concurrent ExtractMin changed the heap shape mid-iteration;
		// retry this iteration against the (possibly different) current state.
	}
}

// siftDown restores heap order after the root was overwritten by the
// former last element. Called only from ExtractMin, which is itself never
// called concurrently with another ExtractMin (the scheduler is the sole
// caller and runs on one goroutine), so this has no fail-fast guard of its
// own — matching the original, which gives sleep_heapDown none either.
func (h *SleepHeap) siftDown() {
	i := uint32(0)
	for {
		length := h.length.Load()
		left := 2*i + 1
		if left >= length {
			return
		}
		right := left + 1
		ref := h.now() + halfUint32Max + 1

		elemI := h.store[i].Load()
		elemLeft := h.store[left].Load()
		if elemI == nil || elemLeft == nil {
			// A concurrent Insert hasn't finished writing this slot yet;
			// give up rather than sort against a hole.
			return
		}

		smallest := left
		smallestElem := elemLeft
		if right < length {
			if elemRight := h.store[right].Load(); elemRight != nil && isAfter(elemLeft.data, elemRight.data, ref) {
				smallest = right
				smallestElem = elemRight
			}
		}

		if isAfter(smallestElem.data, elemI.data, ref) {
			return
		}

		h.store[i].Store(smallestElem)
		h.store[smallest].Store(elemI)
		i = smallest
	}
}
