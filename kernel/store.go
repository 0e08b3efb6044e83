package kernel

// Store is an ordered, unbounded FIFO queue whose Get suspends the
// calling task when empty until a matching Put occurs. It backs the
// connection delivery store (spec.md section 4.5) and anywhere else a
// plain send/receive rendezvous over virtual time is needed.
type Store struct {
	k       *Kernel
	items   []interface{}
	waiters []*Task
}

// NewStore creates an empty store.
func (k *Kernel) NewStore() *Store {
	return &Store{k: k}
}

// Put enqueues v, waking the longest-waiting parked task if one is
// blocked on Get.
func (s *Store) Put(v interface{}) {
	if len(s.waiters) > 0 {
		w := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.k.Wake(w, v, nil)
		return
	}
	s.items = append(s.items, v)
}

// Get removes and returns the front item, suspending the task until
// one is available if the store is currently empty.
func (s *Store) Get(t *Task) (interface{}, error) {
	if len(s.items) > 0 {
		v := s.items[0]
		s.items = s.items[1:]
		return v, nil
	}
	s.waiters = append(s.waiters, t)
	v, err := t.park(func() {
		for i, w := range s.waiters {
			if w == t {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				break
			}
		}
	})
	return v, err
}

// Len reports the number of buffered, not-yet-collected items.
func (s *Store) Len() int { return len(s.items) }
