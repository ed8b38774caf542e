package kernel

import "testing"

func newTestScheduler() (*Scheduler, *SleepHeap) {
	idle := &TCB{id: 0, priority: 0}
	idle.next, idle.prev = idle, idle
	sched := newScheduler(idle)
	sleep := newSleepHeap(func() uint32 { return 0 })
	return sched, sleep
}

func TestScheduleReturnsIdleWhenEmpty(t *testing.T) {
	sched, sleep := newTestScheduler()
	got := sched.Schedule(0, sleep)
	if got.id != 0 {
		t.Fatalf("Schedule() on empty scheduler returned task %d, want idle (0)", got.id)
	}
}

func TestScheduleHonorsHighestNonEmptyPriority(t *testing.T) {
	sched, sleep := newTestScheduler()
	low := &TCB{id: 1, priority: 1}
	high := &TCB{id: 2, priority: 3}
	sched.AddTask(low)
	sched.AddTask(high)

	got := sched.Schedule(0, sleep)
	if got.id != 2 {
		t.Fatalf("Schedule() = task %d, want the higher-priority task %d", got.id, high.id)
	}
}

func TestScheduleRoundRobinsWithinPriority(t *testing.T) {
	sched, sleep := newTestScheduler()
	a := &TCB{id: 1, priority: 1}
	b := &TCB{id: 2, priority: 1}
	sched.AddTask(a)
	sched.AddTask(b)

	first := sched.Schedule(0, sleep)
	second := sched.Schedule(0, sleep)
	if first.id == second.id {
		t.Fatalf("Schedule() returned task %d twice in a row at the same priority", first.id)
	}
	third := sched.Schedule(0, sleep)
	if third.id != first.id {
		t.Fatalf("Schedule() did not cycle back to task %d after two tasks, got %d", first.id, third.id)
	}
}

func TestExitTaskRemovesFromScheduling(t *testing.T) {
	sched, sleep := newTestScheduler()
	a := &TCB{id: 1, priority: 1}
	sched.AddTask(a)
	sched.ExitTask(a)

	got := sched.Schedule(0, sleep)
	if got.id != 0 {
		t.Fatalf("Schedule() after ExitTask = task %d, want idle (0)", got.id)
	}
}

func TestWaitMovesTaskOffRingOntoWaitQueue(t *testing.T) {
	sched, sleep := newTestScheduler()
	a := &TCB{id: 1, priority: 1}
	sched.AddTask(a)

	var waitHead *TCB
	seen := sched.FastFail()
	suspended := sched.Wait(a, &waitHead, seen)
	if !suspended {
		t.Fatal("Wait() returned false for a fresh fast-fail snapshot, want true")
	}
	if waitHead != a {
		t.Fatalf("wait queue head = %v, want task %d", waitHead, a.id)
	}

	got := sched.Schedule(0, sleep)
	if got.id != 0 {
		t.Fatalf("Schedule() after Wait = task %d, want idle (0), task should be off the ring", got.id)
	}
}

func TestWaitIsNoOpWhenFastFailStale(t *testing.T) {
	sched, _ := newTestScheduler()
	a := &TCB{id: 1, priority: 1}
	sched.AddTask(a)

	seen := sched.FastFail()
	sched.fastFail.Increment() // simulate a concurrent notify between snapshot and Wait

	var waitHead *TCB
	if suspended := sched.Wait(a, &waitHead, seen); suspended {
		t.Fatal("Wait() returned true despite a stale fast-fail snapshot, want false")
	}
	if waitHead != nil {
		t.Fatal("stale Wait() must not touch the wait queue")
	}
}

func TestNotifyMovesWaiterBackOntoRing(t *testing.T) {
	sched, sleep := newTestScheduler()
	a := &TCB{id: 1, priority: 1}
	sched.AddTask(a)

	var waitHead *TCB
	sched.Wait(a, &waitHead, sched.FastFail())

	sched.Notify(&waitHead)
	if waitHead != nil {
		t.Fatal("Notify() should have removed the task from the wait queue")
	}

	got := sched.Schedule(0, sleep)
	if got.id != a.id {
		t.Fatalf("Schedule() after Notify = task %d, want the woken task %d", got.id, a.id)
	}
}
