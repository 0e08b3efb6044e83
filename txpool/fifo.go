package txpool

import "github.com/blocksim/blocksim/kernel"

// FIFOQueue is the Bitcoin-style mempool: plain first-in-first-out
// ordering, per spec.md section 4.3.
type FIFOQueue struct {
	store   *kernel.Store
	counter Counter
	address string
}

// NewFIFOQueue builds an empty FIFO queue reporting depth increments
// under address via counter.
func NewFIFOQueue(k *kernel.Kernel, address string, counter Counter) *FIFOQueue {
	if counter == nil {
		counter = NoopCounter{}
	}
	return &FIFOQueue{store: k.NewStore(), counter: counter, address: address}
}

// Put enqueues item and increments the depth counter.
func (q *FIFOQueue) Put(item interface{}) {
	q.store.Put(item)
	q.counter.IncrementQueueDepth(q.address)
}

// Get suspends task until an item is available, then returns it.
func (q *FIFOQueue) Get(task *kernel.Task) (interface{}, error) {
	return q.store.Get(task)
}

// IsEmpty reports whether no items are currently buffered.
func (q *FIFOQueue) IsEmpty() bool { return q.store.Len() == 0 }

// Size reports the number of buffered, not-yet-collected items.
func (q *FIFOQueue) Size() int { return q.store.Len() }
