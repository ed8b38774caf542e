//go:build !tinygo

package hal

import (
	"fmt"
	"time"
)

// hostRunner backs TaskHandle with a goroutine parked on a channel, and the
// tick source with a time.Ticker — the same pattern the teacher uses in
// kernel.System.StartTick for its v0 microkernel's timebase.
type hostRunner struct{}

// NewHostRunner returns the porting-layer implementation used on a normal
// OS host: goroutines standing in for independent task stacks, context
// switch realized as channel handoff.
func NewHostRunner() Runner { return hostRunner{} }

func (hostRunner) Spawn(fn func(h *TaskHandle)) *TaskHandle {
	h := &TaskHandle{
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		<-h.resume
		fn(h)
		h.exited.Store(true)
		h.done <- struct{}{}
	}()
	return h
}

func (hostRunner) Switch(next *TaskHandle) {
	next.resume <- struct{}{}
	<-next.done
}

func (hostRunner) Ticks(hz int) <-chan struct{} {
	if hz <= 0 {
		hz = 1000
	}
	ch := make(chan struct{}, 1)
	t := time.NewTicker(time.Second / time.Duration(hz))
	go func() {
		defer t.Stop()
		for range t.C {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch
}

func (hostRunner) MemoryBarrier() {}

func (hostRunner) Breakpoint(msg string) {
	panic(fmt.Sprintf("hal: breakpoint: %s", msg))
}
