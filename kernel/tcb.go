package kernel

import "corertos/hal"

// StateFlags describes the bits in a TCB's state field. Only Sleep and Wait
// are set by the kernel; Yield and PriorityInherited are reserved and never
// set.
type StateFlags uint32

const (
	StateYield StateFlags = 1 << iota
	StateSleep
	StateWait
	StatePriorityInherited
)

// TaskID identifies a task slot. Zero is never assigned to a real task.
type TaskID uint32

// TaskFunc is the body of a task. It runs until it returns, at which point
// the task exits and is never re-added (see Scheduler.ExitTask).
type TaskFunc func(ctx *Context, arg any)

// TCB is the per-task control block.
//
// sp is kept first, as in the original stack-frame contract, even though it
// now holds a porting-layer handle rather than a raw register frame pointer
// (see SPEC_FULL.md §3).
type TCB struct {
	sp *hal.TaskHandle

	state    StateFlags
	priority uint8
	data     uint32 // scratch; holds the absolute wake-tick while sleeping

	prev *TCB
	next *TCB // ring neighbor, or wait-queue successor — never both

	id  TaskID
	fn  TaskFunc
	arg any

	exited bool
}

// ID returns the task's identifier.
func (t *TCB) ID() TaskID { return t.id }

// Priority returns the task's scheduling priority.
func (t *TCB) Priority() uint8 { return t.priority }

func newTCB(id TaskID, priority uint8, fn TaskFunc, arg any) *TCB {
	return &TCB{id: id, priority: priority, fn: fn, arg: arg}
}
