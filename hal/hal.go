// Package hal is the porting layer the kernel depends on for everything
// that is, on real silicon, irreducibly hardware-specific: saving and
// restoring a task's execution context, and driving a periodic tick.
//
// The host build (host.go) backs TaskHandle with a goroutine parked on a
// channel. A bare-metal build would back it with a real stack pointer and
// an assembly-language context switch; see baremetal.go for the documented
// stub of that contract.
package hal

import (
	"errors"
	"sync/atomic"
)

// ErrNotImplemented is the panic value of porting-layer operations that
// have no realization on the current build target.
var ErrNotImplemented = errors.New("hal: not implemented on this target")

// TaskHandle is an opaque execution context for one task — the porting
// layer's realization of "stack pointer plus saved registers".
type TaskHandle struct {
	resume chan struct{}
	done   chan struct{}
	exited atomic.Bool
}

// Runner is the porting-layer contract for task execution and context
// switching. It maps onto ctx_switch_save_restore / ctx_init_switch /
// tick_enable from the original porting layer.
type Runner interface {
	// Spawn prepares a new task context that will run fn on its first
	// Switch. fn receives the handle so it can call Relinquish on itself;
	// Spawn must not let fn start running before the first Switch.
	Spawn(fn func(h *TaskHandle)) *TaskHandle

	// Switch transfers control to next and blocks the caller until next
	// relinquishes control via TaskHandle.Relinquish, or returns from fn.
	Switch(next *TaskHandle)

	// Ticks starts a periodic tick source at the given frequency and
	// returns a channel that receives one value per tick. Calling Ticks
	// more than once is undefined.
	Ticks(hz int) <-chan struct{}

	// MemoryBarrier is a documented no-op standing in for the DMB the
	// original issues around lock-free mutex/semaphore transitions.
	MemoryBarrier()

	// Breakpoint halts execution for debugging. The host build panics.
	Breakpoint(msg string)
}

// Relinquish hands control back to whichever goroutine most recently called
// Switch(h), then blocks until h is switched into again.
func (h *TaskHandle) Relinquish() {
	h.done <- struct{}{}
	<-h.resume
}

// Exited reports whether the task function backing h has returned. It is
// only meaningful after a Switch(h) call has returned.
func (h *TaskHandle) Exited() bool {
	return h.exited.Load()
}
