package kernel

// waitQueueInsert inserts tcb into the singly-linked, priority-sorted wait
// queue headed by *head. Strict '>' against the head and '>=' during the
// walk together place the new task after all equal-priority predecessors
// and before the first strictly-lower-priority successor, implementing
// FIFO-within-priority.
func waitQueueInsert(head **TCB, tcb *TCB) {
	tcb.next = nil

	if *head == nil {
		*head = tcb
		return
	}

	queued := *head
	if tcb.priority > queued.priority {
		tcb.next = queued
		*head = tcb
		return
	}

	for queued.next != nil && tcb.priority >= queued.next.priority {
		queued = queued.next
	}
	tcb.next = queued.next
	queued.next = tcb
}

// waitQueueExtract pops and returns the head of the wait queue (the
// highest-priority, earliest-arrived waiter), or nil if the queue is empty.
func waitQueueExtract(head **TCB) *TCB {
	extracted := *head
	if extracted != nil {
		*head = extracted.next
	}
	return extracted
}
