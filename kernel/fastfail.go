package kernel

import "sync/atomic"

// fastFailCounter is the monotonic counter separating notify epochs from
// wait decisions (spec.md §3, §5). It is bumped on every notify, before the
// wait-queue head pointer is read; a would-be waiter that captured the
// counter before its failed atomic attempt aborts its wait if the counter
// has since moved, closing the lost-wakeup window without disabling
// interrupts.
type fastFailCounter struct {
	v atomic.Uint32
}

func (c *fastFailCounter) Load() uint32 { return c.v.Load() }

func (c *fastFailCounter) Increment() { c.v.Add(1) }
