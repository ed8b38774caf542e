package kernel

// Queue is a bounded, fixed-item-size ring buffer used for inter-task
// message passing. It is protected by a mutex for the copy and two
// semaphores — sem_r counting filled slots, sem_w counting free slots — so
// that producers and consumers block instead of racing, per
// OS_UTILS/queue.c.
type Queue struct {
	store    []byte
	itemSize uint32
	length   uint32
	head     uint32
	tail     uint32

	mutexRW Mutex
	semR    Semaphore
	semW    Semaphore
}

// Init prepares a queue backed by store, which must be at least
// length*itemSize bytes; only the first length*itemSize bytes are used. The
// queue starts empty.
func (q *Queue) Init(kn waitNotifier, store []byte, length, itemSize uint32) {
	assertDebug(uint32(len(store)) >= length*itemSize, "queue: store too small for length*itemSize")
	q.store = store
	q.itemSize = itemSize
	q.length = length
	q.head = 0
	q.tail = 0

	q.mutexRW.Init(kn)
	q.semR.Init(kn, length, 0)
	q.semW.Init(kn, length, length)
}

// Enqueue copies item onto the back of the queue, blocking until there is
// a free slot. item must be exactly itemSize bytes.
func (q *Queue) Enqueue(item []byte) {
	assertDebug(uint32(len(item)) == q.itemSize, "queue: Enqueue item size mismatch")

	q.semW.Take()
	q.mutexRW.Acquire()

	copy(q.store[q.head:q.head+q.itemSize], item)
	q.head += q.itemSize
	if q.head >= q.length*q.itemSize {
		q.head = 0
	}

	// Give the semaphore before releasing the mutex: this favours a task
	// waiting on the mutex over one waiting on the semaphore, except in
	// the rare case where a context switch lands between the two calls.
	q.semR.Give()
	q.mutexRW.Release()
}

// Dequeue copies the item from the front of the queue into buf, blocking
// until one is available. buf must be exactly itemSize bytes.
func (q *Queue) Dequeue(buf []byte) {
	assertDebug(uint32(len(buf)) == q.itemSize, "queue: Dequeue buffer size mismatch")

	q.semR.Take()
	q.mutexRW.Acquire()

	copy(buf, q.store[q.tail:q.tail+q.itemSize])
	q.tail += q.itemSize
	if q.tail >= q.length*q.itemSize {
		q.tail = 0
	}

	q.semW.Give()
	q.mutexRW.Release()
}
