// Package kernel is the RTOS core: a fixed-priority round-robin scheduler,
// a fail-fast wait/notify fabric, a wraparound-safe sleep subsystem, and
// the synchronization primitives (Mutex, Semaphore, Queue, MemPool) built
// on top of them.
//
// Everything that was process-wide global state in the original C source
// — the current TCB, the tick counter, the scheduler rings — is instead a
// field of an *OS value constructed by New. A task's handle to its kernel
// is an explicit *Context parameter, never a package-level lookup.
package kernel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"corertos/hal"
)

// Context is a task's handle to the kernel it runs under, threaded in as
// the first argument to every TaskFunc. It plays the role the original's
// implicit "current task" global played, made explicit.
type Context struct {
	os  *OS
	tcb *TCB
}

// TCB returns the control block for the task this context belongs to.
func (c *Context) TCB() *TCB { return c.tcb }

// Yield gives up the remainder of the task's timeslice. The task stays
// runnable and moves to the back of its priority ring.
func (c *Context) Yield() { c.os.yieldTask(c.tcb) }

// Sleep suspends the task for the given number of ticks. Ticks must be
// greater than zero and at most halfUint32Max; see SleepHeap and §3 of
// SPEC_FULL.md for why larger gaps are undefined.
func (c *Context) Sleep(ticks uint32) { c.os.sleepTask(c.tcb, ticks) }

// ElapsedTicks returns the kernel's current tick count.
func (c *Context) ElapsedTicks() uint32 { return c.os.ElapsedTicks() }

// OS is one instance of the kernel: a scheduler, a sleep heap, and the
// tick/task bookkeeping that glues them to a hal.Runner. Unlike the
// original, nothing here is a package-level global, so more than one OS
// could in principle coexist in a single process (each with its own
// runner) — not a goal, but a natural consequence of removing globals.
type OS struct {
	runner hal.Runner
	log    *slog.Logger

	// mu is the kernel lock: every mutation of the scheduler rings, the
	// sleep heap's membership (not its internal locking — that is its
	// own), or a wait queue happens with mu held. It is the Go stand-in
	// for "these operations run with interrupts disabled" in the
	// original; see SPEC_FULL.md §5.
	mu      sync.Mutex
	sched   *Scheduler
	sleep   *SleepHeap
	current *TCB
	nextID  TaskID
	started atomic.Bool

	ticks atomic.Uint32
}

// New constructs a kernel driven by runner. The kernel does not start
// running tasks until Start is called.
func New(runner hal.Runner) *OS {
	k := &OS{
		runner: runner,
		log:    slog.New(discardHandler{}),
	}
	idle := newTCB(0, 0, nil, nil)
	k.sched = newScheduler(idle)
	k.sleep = newSleepHeap(k.ElapsedTicks)
	return k
}

// SetLogger installs a structured logger for kernel and task lifecycle
// events (kernel started, task added, task exited). Primitive contention is
// not logged. A nil logger is ignored; the default discards everything.
func (k *OS) SetLogger(l *slog.Logger) {
	if l != nil {
		k.log = l
	}
}

// ElapsedTicks returns the current tick count. Safe to call from any task
// or from outside the kernel.
func (k *OS) ElapsedTicks() uint32 { return k.ticks.Load() }

// AddTask registers a new task at the given priority (1..PriorityMax; 0 is
// reserved for the idle task) and returns its ID. Combines the original's
// OS_init_tcb and OS_add_task: spawning the task's execution context and
// inserting it into the scheduler are one call in this port, since Go has
// no separate "allocate a stack frame" step.
//
// AddTask may be called before or after Start, matching the original,
// though in practice it is almost always called from main() before
// Start. A task past the MaxTasks capacity is rejected by
// Scheduler.AddTask, but its execution context is still spawned, the
// "task added" event is still logged, and its ID is still returned.
func (k *OS) AddTask(priority uint8, fn TaskFunc, arg any) TaskID {
	assertDebug(priority >= 1 && priority <= PriorityMax, "os: priority %d out of range [1,%d]", priority, PriorityMax)
	if priority < 1 {
		priority = 1
	} else if priority > PriorityMax {
		priority = PriorityMax
	}

	k.mu.Lock()
	k.nextID++
	id := k.nextID
	k.mu.Unlock()

	tcb := newTCB(id, priority, fn, arg)
	tcb.sp = k.runner.Spawn(func(h *hal.TaskHandle) {
		ctx := &Context{os: k, tcb: tcb}
		fn(ctx, arg)
		k.exitTask(tcb)
	})

	k.mu.Lock()
	k.sched.AddTask(tcb)
	k.mu.Unlock()
	k.log.Info("task added", "id", id, "priority", priority)
	return id
}

// Start spawns the idle task, starts the 1ms tick source, and runs the
// scheduler driver loop. Like the original's OS_start, it never returns —
// it plays the role of the tick ISR and PendSV handler combined, baton-
// passing control to exactly one task goroutine at a time. Calling Start
// more than once is a no-op.
func (k *OS) Start() {
	if !k.started.CompareAndSwap(false, true) {
		return
	}

	idle := k.sched.idle
	idle.sp = k.runner.Spawn(func(h *hal.TaskHandle) {
		ctx := &Context{os: k, tcb: idle}
		for {
			ctx.Yield()
		}
	})

	tickCh := k.runner.Ticks(1000)
	go func() {
		for range tickCh {
			k.ticks.Add(1)
		}
	}()

	k.log.Info("kernel started")
	k.run()
}

// run is the scheduler driver loop: repeatedly pick the next task to run
// and hand it the baton, blocking until it relinquishes or exits.
func (k *OS) run() {
	for {
		k.mu.Lock()
		next := k.sched.Schedule(k.ticks.Load(), k.sleep)
		k.current = next
		k.mu.Unlock()

		k.runner.Switch(next.sp)
	}
}

// yieldTask is the realization of the original's OS_SVC_YIELD_TASK: simply
// hand the baton back to the driver loop, which will re-run Schedule.
func (k *OS) yieldTask(tcb *TCB) {
	tcb.sp.Relinquish()
}

// sleepTask is the realization of OS_SVC_SLEEP (layered on OS_taskSleep in
// the original): move tcb from its priority ring to the sleep heap keyed
// on now+ticks, then relinquish. The task does not resume here until the
// driver loop's Schedule call has drained it back out of the sleep heap
// and round-robined it back onto a ring.
func (k *OS) sleepTask(tcb *TCB, ticks uint32) {
	assertDebug(ticks > 0 && ticks <= halfUint32Max, "os: sleep duration %d out of range (0, %d]", ticks, halfUint32Max)

	k.mu.Lock()
	tcb.data = k.ticks.Load() + ticks
	tcb.state |= StateSleep
	k.sched.RemoveTask(tcb)
	k.sleep.Insert(tcb)
	k.mu.Unlock()

	tcb.sp.Relinquish()
	tcb.state &^= StateSleep
}

// exitTask is the realization of _OS_taskEnd / OS_SVC_EXIT_TASK: called
// from the task wrapper once its TaskFunc has returned. The task is
// removed from scheduling permanently; its ID is never reused.
func (k *OS) exitTask(tcb *TCB) {
	k.mu.Lock()
	tcb.exited = true
	k.sched.ExitTask(tcb)
	k.mu.Unlock()
	k.log.Info("task exited", "id", tcb.id)
}

// currentTCB, fastFail, wait, notify and barrier implement waitNotifier
// (defined in mutex.go), the interface every blocking primitive is built
// on. Together with Start/AddTask/exitTask/yieldTask/sleepTask, these are
// the eight kernel entry points the original dispatched through its SVC
// table: enableTick (folded into Start), schedule (Start's driver loop),
// addTask, exitTask, yieldTask, removeTask (sleepTask/wait), wait, notify.
func (k *OS) currentTCB() *TCB {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

func (k *OS) fastFail() uint32 { return k.sched.FastFail() }

func (k *OS) wait(tcb *TCB, waitQueueHead **TCB, failFastSeen uint32) {
	k.mu.Lock()
	suspended := k.sched.Wait(tcb, waitQueueHead, failFastSeen)
	k.mu.Unlock()
	if !suspended {
		return
	}

	tcb.state |= StateWait
	tcb.sp.Relinquish()
	tcb.state &^= StateWait
}

func (k *OS) notify(waitQueueHead **TCB) {
	k.mu.Lock()
	k.sched.Notify(waitQueueHead)
	k.mu.Unlock()
}

func (k *OS) barrier() { k.runner.MemoryBarrier() }

// discardHandler is a slog.Handler that drops every record, so the
// default logger costs nothing on the hot path when the caller never
// calls SetLogger.
type discardHandler struct{}

func (discardHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (discardHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (h discardHandler) WithAttrs(_ []slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(_ string) slog.Handler             { return h }
