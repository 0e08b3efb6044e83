// Package txpool implements the per-miner transaction pool (spec.md
// section 4.3): a FIFO queue for Bitcoin-style nodes and a fee-ordered
// queue for Ethereum-style nodes, both built on the kernel's
// suspend/resume primitives, grounded on
// original_source/blocksim/models/transaction_queue.py's
// simpy.PriorityStore-backed queue.
package txpool

import "github.com/blocksim/blocksim/kernel"

// Queue is the shared contract: an ordered collection of pending
// transactions. Get suspends the calling task until a Put occurs on an
// empty queue.
type Queue interface {
	Put(item interface{})
	Get(task *kernel.Task) (interface{}, error)
	IsEmpty() bool
	Size() int
}

// Counter is the monitor-counter sink a Queue increments on every Put
// (spec.md section 4.3: `{address}_number_of_transactions_queue`).
// Implementations that don't care can pass a no-op Counter.
type Counter interface {
	IncrementQueueDepth(address string)
}

// NoopCounter implements Counter by discarding every increment.
type NoopCounter struct{}

func (NoopCounter) IncrementQueueDepth(string) {}
