// Package kernel implements the discrete-event simulation core: a
// virtual clock, a min-heap of timed events, and cooperative tasks
// that suspend at explicit points (wait, await_event, blocking queue
// reads) and may be interrupted. Exactly one task runs at any instant;
// there is no preemption and no data race, matching spec.md section 5.
package kernel

import (
	"container/heap"
	"math/rand"

	"github.com/blocksim/blocksim/log"
)

var logger = log.NewModuleLogger(log.ModuleKernel)

// Handle is a cancellable reference to a scheduled action.
type Handle struct {
	ev *event
}

// Cancel prevents the handle's action from firing. A no-op if the
// action has already fired or was already cancelled.
func (h *Handle) Cancel() {
	h.ev.cancelled = true
}

// Kernel owns the virtual clock and the event heap. It is not safe for
// concurrent use from multiple goroutines driving RunUntil; tasks
// spawned on it run on their own goroutines but are synchronized so
// that only one is ever making progress at a time.
type Kernel struct {
	now  float64
	seq  uint64
	heap eventHeap
	rng  *rand.Rand
}

// New creates a kernel with its clock at initialTime, seeded for
// reproducible replay as spec.md section 9 requires ("Randomness").
func New(initialTime float64, seed int64) *Kernel {
	return &Kernel{
		now: initialTime,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Now returns the current virtual time.
func (k *Kernel) Now() float64 { return k.now }

// Rand returns the kernel-owned PRNG. All sampling in the simulation
// must go through this source so that a whole run is replayable from
// a single seed.
func (k *Kernel) Rand() *rand.Rand { return k.rng }

func (k *Kernel) nextSeq() uint64 {
	k.seq++
	return k.seq
}

func (k *Kernel) pushEvent(when float64, seq uint64, action func()) *event {
	e := &event{when: when, seq: seq, action: action}
	heap.Push(&k.heap, e)
	return e
}

// Schedule produces a cancellable handle that fires action at
// now()+delay.
func (k *Kernel) Schedule(delay float64, action func()) *Handle {
	e := k.pushEvent(k.now+delay, k.nextSeq(), action)
	return &Handle{ev: e}
}

// RunUntil processes events in (when, seq) order until no events
// remain with when < T, then leaves the clock at T.
func (k *Kernel) RunUntil(t float64) {
	for k.heap.Len() > 0 && k.heap[0].when < t {
		e := heap.Pop(&k.heap).(*event)
		if e.cancelled {
			continue
		}
		k.now = e.when
		e.action()
	}
	k.now = t
}

// Pending reports how many events remain on the heap, used by tests
// asserting the kernel drains cleanly.
func (k *Kernel) Pending() int { return k.heap.Len() }
