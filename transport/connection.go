package transport

import "github.com/blocksim/blocksim/kernel"

// Connection is a one-way channel from origin to destination (spec.md
// section 4.5). Put schedules delivery into the ordered store after a
// latency delay computed by the caller (Transport.Latency); the store
// itself preserves per-call insertion order but different Put calls
// race against each other's virtual-time delay, so delivery order can
// reorder relative to send order when latency draws differ, matching
// the Python source's `env.process(self.latency(envelope))`
// fire-and-forget scheduling.
type Connection struct {
	k     *kernel.Kernel
	store *kernel.Store
}

// NewConnection creates a connection backed by the kernel's scheduler.
func NewConnection(k *kernel.Kernel) *Connection {
	return &Connection{k: k, store: k.NewStore()}
}

// Put schedules env for delivery after delaySeconds.
func (c *Connection) Put(env Envelope, delaySeconds float64) {
	c.k.Schedule(delaySeconds, func() {
		c.store.Put(env)
	})
}

// Get blocks task until an envelope is available, then returns it.
func (c *Connection) Get(task *kernel.Task) (Envelope, error) {
	v, err := c.store.Get(task)
	if err != nil {
		return Envelope{}, err
	}
	return v.(Envelope), nil
}
