package main

import (
	"fmt"
	"log/slog"

	"corertos/kernel"
)

// scenarios maps a flag value to a function that wires up tasks on k before
// Start is called. Each mirrors one of the concrete scenarios in
// SPEC_FULL.md §10.
var scenarios = map[string]func(k *kernel.OS, log *slog.Logger){
	"sleepers":          sleepersScenario,
	"mutex":             mutexScenario,
	"producer-consumer": producerConsumerScenario,
	"mempool":           mempoolScenario,
}

// sleepersScenario starts three tasks that sleep for different, staggered
// durations in a loop, demonstrating that the sleep heap wakes them in
// wake-tick order regardless of insertion order.
func sleepersScenario(k *kernel.OS, log *slog.Logger) {
	durations := []uint32{30, 10, 20}
	for i, d := range durations {
		i, d := i, d
		k.AddTask(uint8(1+i%kernel.PriorityMax), func(ctx *kernel.Context, _ any) {
			for n := 0; n < 5; n++ {
				ctx.Sleep(d)
				log.Info("sleeper woke", "task", i, "tick", ctx.ElapsedTicks())
			}
		}, nil)
	}
}

// mutexScenario starts several tasks contending for one recursive mutex
// around a shared counter, demonstrating mutual exclusion: the counter
// only ever reflects whole critical sections, never a torn read.
func mutexScenario(k *kernel.OS, log *slog.Logger) {
	var mu kernel.Mutex
	mu.Init(k)
	counter := 0

	for i := 0; i < 3; i++ {
		i := i
		k.AddTask(2, func(ctx *kernel.Context, _ any) {
			for n := 0; n < 20; n++ {
				mu.Acquire()
				mu.Acquire() // recursive re-entry, exercising the counter
				counter++
				mu.Release()
				mu.Release()
				ctx.Yield()
			}
			log.Info("mutex worker done", "task", i, "counter", counter)
		}, nil)
	}
}

// producerConsumerScenario wires one producer and one consumer around a
// bounded queue of four-byte integers.
func producerConsumerScenario(k *kernel.OS, log *slog.Logger) {
	var q kernel.Queue
	store := make([]byte, 4*4)
	q.Init(k, store, 4, 4)

	k.AddTask(2, func(ctx *kernel.Context, _ any) {
		for n := 0; n < 10; n++ {
			item := []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
			q.Enqueue(item)
			log.Info("produced", "n", n)
			ctx.Yield()
		}
	}, nil)

	k.AddTask(1, func(ctx *kernel.Context, _ any) {
		buf := make([]byte, 4)
		for n := 0; n < 10; n++ {
			q.Dequeue(buf)
			log.Info("consumed", "bytes", fmt.Sprintf("%x", buf))
			ctx.Yield()
		}
	}, nil)
}

// mempoolScenario has more allocators than blocks, so some tasks must
// block in Allocate until another task frees a block back to the pool.
func mempoolScenario(k *kernel.OS, log *slog.Logger) {
	var pool kernel.MemPool
	const blocks, blockSize = 2, 8
	store := make([]byte, blocks*blockSize)
	pool.Init(k, store, blocks, blockSize)

	for i := 0; i < 4; i++ {
		i := i
		k.AddTask(1, func(ctx *kernel.Context, _ any) {
			block := pool.Allocate()
			log.Info("allocated", "task", i, "block", block)
			ctx.Yield()
			pool.Free(block)
			log.Info("freed", "task", i, "block", block)
		}, nil)
	}
}
