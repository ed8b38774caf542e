package kernel

import "encoding/binary"

// freeListEnd marks the end of the intrusive free list: it is the largest
// uint32, which no block's byte offset can equal because every block needs
// at least four bytes after its offset.
const freeListEnd uint32 = 0xFFFFFFFF

// MemPool is a fixed-block allocator: number_of_blocks blocks of block_size
// bytes each, carved out of a single backing buffer. Free blocks are
// threaded into an intrusive singly-linked list, exactly as
// OS_UTILS/mempool.c does with real pointers — here a block is identified
// by its byte offset into the store, and the "next" link is the next free
// block's offset, encoded in the free block's own first four bytes, since
// Go gives us no legal way to store a pointer inside arbitrary byte storage.
type MemPool struct {
	store     []byte
	blockSize uint32
	head      uint32 // byte offset of first free block, or freeListEnd

	mutexRW    Mutex
	blockAvail Semaphore
}

// Init prepares a pool backed by store (numBlocks*blockSize bytes), with
// every block initially free.
//
// The original additionally allows a NULL static_memory to start an empty
// pool grown later by deallocating arbitrary external pointers into it.
// That has no sound equivalent once blocks are identified by index into a
// store the pool owns, so this port always requires a real backing slice;
// see DESIGN.md.
func (p *MemPool) Init(kn waitNotifier, store []byte, numBlocks, blockSize uint32) {
	assertDebug(blockSize >= 4, "mempool: block_size must be at least 4 bytes to hold a free-list link")
	assertDebug(uint32(len(store)) >= numBlocks*blockSize, "mempool: store too small for number_of_blocks*block_size")
	p.store = store
	p.blockSize = blockSize
	p.head = freeListEnd
	p.mutexRW.Init(kn)

	// This must only run before any task can observe the pool, matching
	// the original's "only from main(), before OS_start" contract, so the
	// blocks are threaded in without mutex/semaphore overhead.
	p.blockAvail.Init(kn, numBlocks, numBlocks)
	for i := uint32(0); i < numBlocks; i++ {
		p.addLocked(i * blockSize)
	}
}

// Allocate takes one block from the pool, blocking until one is available.
// The returned byte offset identifies the block for Block and Free; its
// first four bytes hold a stale free-list link and the rest is whatever was
// left by the previous occupant.
func (p *MemPool) Allocate() uint32 {
	p.blockAvail.Take()
	p.mutexRW.Acquire()

	block := p.head
	p.head = binary.LittleEndian.Uint32(p.store[block : block+4])

	p.mutexRW.Release()
	return block
}

// Free returns block to the pool. There is no protection against freeing
// more blocks than were ever allocated, or double-freeing — the original
// accepts this tradeoff rather than spending a second semaphore guarding
// against user error.
func (p *MemPool) Free(block uint32) {
	p.mutexRW.Acquire()
	p.addLocked(block)

	// Give the semaphore before releasing the mutex, for the same reason
	// as Queue.Enqueue/Dequeue.
	p.blockAvail.Give()
	p.mutexRW.Release()
}

// Block returns the byte range backing the given block offset, for the
// caller to read or write its payload.
func (p *MemPool) Block(block uint32) []byte {
	return p.store[block : block+p.blockSize]
}

func (p *MemPool) addLocked(block uint32) {
	binary.LittleEndian.PutUint32(p.store[block:block+4], p.head)
	p.head = block
}
