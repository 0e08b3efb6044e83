package txpool

import (
	"container/heap"

	"github.com/blocksim/blocksim/kernel"
)

// PriorityItem is satisfied by any item orderable by fee, matching
// spec.md section 3's "transactions are compared by fee/gas_price".
type PriorityItem interface {
	Fee() float64
}

// PriorityQueue is the Ethereum-style mempool (spec.md section 4.3):
// Get always returns the highest-fee pending item, built on the same
// suspend/resume contract as FIFOQueue but backed by a container/heap
// instead of kernel.Store, grounded on the Python source's
// simpy.PriorityStore-backed TransactionQueue.
type PriorityQueue struct {
	k       *kernel.Kernel
	items   itemHeap
	waiters []*kernel.Task
	counter Counter
	address string
}

// NewPriorityQueue builds an empty fee-ordered queue.
func NewPriorityQueue(k *kernel.Kernel, address string, counter Counter) *PriorityQueue {
	if counter == nil {
		counter = NoopCounter{}
	}
	return &PriorityQueue{k: k, counter: counter, address: address}
}

// Put enqueues item, waking the longest-waiting parked task if one is
// blocked on Get.
func (q *PriorityQueue) Put(item interface{}) {
	q.counter.IncrementQueueDepth(q.address)
	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		q.k.Wake(w, item, nil)
		return
	}
	heap.Push(&q.items, item.(PriorityItem))
}

// Get removes and returns the highest-fee item, suspending task until
// one is available if the queue is currently empty.
func (q *PriorityQueue) Get(task *kernel.Task) (interface{}, error) {
	if len(q.items) > 0 {
		return heap.Pop(&q.items), nil
	}
	q.waiters = append(q.waiters, task)
	v, err := task.Park(func() {
		for i, w := range q.waiters {
			if w == task {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				break
			}
		}
	})
	return v, err
}

// IsEmpty reports whether no items are currently buffered.
func (q *PriorityQueue) IsEmpty() bool { return len(q.items) == 0 }

// Size reports the number of buffered, not-yet-collected items.
func (q *PriorityQueue) Size() int { return len(q.items) }

type itemHeap []PriorityItem

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].Fee() > h[j].Fee() }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(PriorityItem)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
