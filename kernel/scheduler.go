package kernel

// PriorityLevels is the number of priority buckets, including the reserved
// idle priority 0. Priorities in use by real tasks run 1..PriorityMax.
const PriorityLevels = 5

// PriorityMax is the highest usable task priority.
const PriorityMax = PriorityLevels - 1

// MaxTasks bounds the number of tasks that are added and not yet exited,
// including tasks currently sleeping or waiting. It sizes the sleep heap so
// that every task can be asleep at once.
const MaxTasks = 15

// Scheduler implements fixed-priority round-robin scheduling over per-
// priority circular doubly-linked rings, plus the wait/notify fabric that
// blocking primitives use to suspend and resume tasks.
//
// Scheduler is not safe for concurrent use by itself: all of its methods
// are "kernel mode" operations, invoked only while the owning OS holds its
// kernel lock (see os.go).
type Scheduler struct {
	head  [PriorityLevels]*TCB
	added uint32
	idle  *TCB

	fastFail fastFailCounter
}

func newScheduler(idle *TCB) *Scheduler {
	return &Scheduler{idle: idle}
}

// Schedule drains any sleepers whose wake-tick has passed as of now,
// reinserting them into their priority ring, then returns the next task to
// run: the highest non-empty priority ring's next task, or the idle task if
// every ring is empty.
func (s *Scheduler) Schedule(now uint32, sleep *SleepHeap) *TCB {
	for sleep.NeedsWakeup(now) {
		if tcb := sleep.ExtractMin(); tcb != nil {
			s.insertTask(tcb)
		} else {
			break
		}
	}

	for p := PriorityMax; p > 0; p-- {
		if s.head[p] == nil {
			continue
		}
		s.head[p] = s.head[p].next
		return s.head[p]
	}
	return s.idle
}

// AddTask registers tcb for scheduling. It silently rejects the task (after
// a debug assertion) once MaxTasks have been added.
func (s *Scheduler) AddTask(tcb *TCB) {
	if s.added >= MaxTasks {
		assertDebug(false, "scheduler: MaxTasks (%d) exceeded", MaxTasks)
		return
	}
	s.insertTask(tcb)
	s.added++
}

// ExitTask removes tcb from its ring and decrements the added count. Called
// when a task function returns; an exited TCB must never be re-added.
func (s *Scheduler) ExitTask(tcb *TCB) {
	s.removeTask(tcb)
	s.added--
}

// RemoveTask removes tcb from its ring without decrementing the added
// count — used when a task is about to sleep or block on a resource.
func (s *Scheduler) RemoveTask(tcb *TCB) {
	s.removeTask(tcb)
}

// Wait is the idempotent fail-fast suspend operation: if failFastSeen no
// longer matches the current fast-fail counter, a concurrent notify has
// already happened and this call does nothing — reporting false so the
// caller knows to retry its atomic attempt instead of blocking. Otherwise
// tcb is moved from its ring onto the resource's wait queue and Wait
// reports true.
func (s *Scheduler) Wait(tcb *TCB, waitQueueHead **TCB, failFastSeen uint32) bool {
	if failFastSeen != s.fastFail.Load() {
		return false
	}
	s.removeTask(tcb)
	waitQueueInsert(waitQueueHead, tcb)
	return true
}

// Notify bumps the fast-fail counter and moves the highest-priority,
// earliest-arrived waiter (if any) from the wait queue back onto its
// priority ring. It does not itself request a context switch.
func (s *Scheduler) Notify(waitQueueHead **TCB) {
	s.fastFail.Increment()
	if tcb := waitQueueExtract(waitQueueHead); tcb != nil {
		s.insertTask(tcb)
	}
}

// FastFail returns the current value of the fast-fail counter.
func (s *Scheduler) FastFail() uint32 { return s.fastFail.Load() }

func (s *Scheduler) insertTask(tcb *TCB) {
	p := tcb.priority
	if s.head[p] == nil {
		s.head[p] = tcb
		tcb.next = tcb
		tcb.prev = tcb
		return
	}
	tcb.prev = s.head[p]
	tcb.next = s.head[p].next
	tcb.prev.next = tcb
	tcb.next.prev = tcb
}

func (s *Scheduler) removeTask(tcb *TCB) {
	p := tcb.priority
	if tcb.next == tcb {
		s.head[p] = nil
		return
	}
	tcb.prev.next = tcb.next
	tcb.next.prev = tcb.prev
	s.head[p] = tcb.prev
	tcb.next = nil
	tcb.prev = nil
}
