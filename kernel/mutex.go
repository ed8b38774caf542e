package kernel

import (
	"runtime"
	"sync/atomic"
)

// waitNotifier is the wait/notify fabric that every blocking primitive is
// built on top of: a way to read the current task and the fast-fail
// counter, and to suspend/resume onto a resource's wait queue. *OS
// implements it; primitives accept it at Init time rather than reaching
// for package-level globals (see SPEC_FULL.md §3).
type waitNotifier interface {
	currentTCB() *TCB
	fastFail() uint32
	wait(tcb *TCB, waitQueueHead **TCB, failFastSeen uint32)
	notify(waitQueueHead **TCB)
	barrier()
}

// Mutex is a recursive mutual-exclusion lock. Acquire/Release are built on
// an LL/SC-emulated owner word (compare-and-swap, retried on failure the
// way the original retries a failed STREX) and the wait/notify fabric for
// the contended path.
type Mutex struct {
	kn  waitNotifier
	sig bool // initialized guard, debug-only

	owner    atomic.Pointer[TCB]
	counter  uint32
	waitHead *TCB
}

// Init prepares an unowned mutex. kn is the kernel the mutex will wait and
// notify through.
func (m *Mutex) Init(kn waitNotifier) {
	m.kn = kn
	m.owner.Store(nil)
	m.counter = 0
	m.waitHead = nil
	m.sig = true
}

// Acquire takes the mutex, blocking (indefinitely — there is no timeout)
// until it is free or already owned by the calling task, then increments
// the recursion counter.
func (m *Mutex) Acquire() {
	assertDebug(m.sig, "mutex: Acquire called before Init")
	self := m.kn.currentTCB()

	for {
		failFastSeen := m.kn.fastFail()

		owner := m.owner.Load()
		if owner == nil {
			if m.owner.CompareAndSwap(nil, self) {
				m.kn.barrier()
				break
			}
			runtime.Gosched()
			continue
		}
		if owner == self {
			break
		}

		m.kn.wait(self, &m.waitHead, failFastSeen)
		runtime.Gosched()
	}

	m.counter++
}

// Release gives up one level of recursive ownership. Once the recursion
// counter reaches zero the mutex is cleared and the wait queue head (if
// any) is notified. Calling Release when the calling task does not own the
// mutex is a no-op, as in the original.
func (m *Mutex) Release() {
	assertDebug(m.sig, "mutex: Release called before Init")
	self := m.kn.currentTCB()
	if m.owner.Load() != self {
		return
	}

	m.kn.barrier()
	m.counter--
	if m.counter == 0 {
		m.owner.Store(nil)
		// A non-waiting task may acquire here, between the clear and the
		// notify below; the notified waiter will then simply wait again on
		// its next attempt. Benign, per the original's own note.
		m.kn.notify(&m.waitHead)
	}
}
