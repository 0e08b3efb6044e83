package kernel

// Event is a one-shot rendezvous point: any number of tasks may await
// it, and Fire wakes all of them at once and returns a fresh, unfired
// instance that the caller stores back into the same variable so it can
// be awaited again for the next occurrence (mirrors simpy's `env.event()` / Python
// source's `self.handshaking = self.env.event()` pattern).
type Event struct {
	k       *Kernel
	waiters []*Task
}

// NewEvent creates a fresh, unfired event.
func (k *Kernel) NewEvent() *Event {
	return &Event{k: k}
}

// Await suspends the calling task until Fire is called on this event.
func (e *Event) Await(t *Task) error {
	e.register(t)
	_, err := t.park(func() {
		for i, w := range e.waiters {
			if w == t {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				break
			}
		}
	})
	return err
}

// Fire wakes every task currently awaiting this event and returns a
// fresh, unfired event for the next occurrence.
func (e *Event) Fire() *Event {
	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		e.k.Wake(w, nil, nil)
	}
	return e.k.NewEvent()
}

func (e *Event) register(t *Task) {
	e.waiters = append(e.waiters, t)
}
