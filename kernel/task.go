package kernel

import "errors"

// ErrInterrupted is delivered to a task's current suspension point when
// another task calls Kernel.Interrupt on it.
var ErrInterrupted = errors.New("kernel: task interrupted")

type resumeMsg struct {
	value interface{}
	err   error
}

// Task is a cooperative unit of work. Its body runs on its own
// goroutine, but the kernel only ever lets one task make progress at a
// time: every suspension point hands control back to the kernel's
// RunUntil loop and blocks until the kernel schedules a resume.
type Task struct {
	k             *Kernel
	resumeCh      chan resumeMsg
	stepDone      chan struct{}
	waiting       bool
	pendingCancel func()
	Finished      bool
}

// Spawn starts a cooperative task. The task's goroutine is created
// parked: its body does not run until the kernel's event loop reaches
// the scheduled start event and drives it through the same park/
// resolve rendezvous every other suspension point uses, so fn never
// executes concurrently with the caller of Spawn or with whatever
// event the kernel loop is currently processing. In virtual time the
// task then executes atomically until its first suspension point.
func (k *Kernel) Spawn(fn func(t *Task)) *Task {
	t := &Task{
		k:        k,
		resumeCh: make(chan resumeMsg),
		stepDone: make(chan struct{}),
	}
	go func() {
		<-t.resumeCh
		fn(t)
		t.Finished = true
		t.stepDone <- struct{}{}
	}()
	k.pushEvent(k.now, k.nextSeq(), func() {
		resolve(t, nil, nil)
	})
	return t
}

// park registers cancel (invoked if the task is interrupted while
// parked), hands control back to the kernel and blocks until some
// event resolves it via resumeCh. Every suspension point is built on
// this primitive.
func (t *Task) park(cancel func()) (interface{}, error) {
	t.waiting = true
	t.pendingCancel = cancel
	t.stepDone <- struct{}{}
	msg := <-t.resumeCh
	return msg.value, msg.err
}

// resolve delivers value/err to a parked task and blocks the caller
// (the kernel's event loop) until the task reaches its next
// suspension point or finishes. Callers must clear waiting state
// before invoking resolve.
func resolve(t *Task, value interface{}, err error) {
	t.resumeCh <- resumeMsg{value: value, err: err}
	<-t.stepDone
}

// Wake schedules an immediate resume of a parked task, preserving
// (when, seq) ordering relative to other events at the current time.
// Exported for packages (txpool, transport) that build custom blocking
// collections on top of the kernel's cooperative scheduling.
func (k *Kernel) Wake(t *Task, value interface{}, err error) {
	t.waiting = false
	t.pendingCancel = nil
	k.pushEvent(k.now, k.nextSeq(), func() {
		resolve(t, value, err)
	})
}

// Park is the exported suspension primitive paired with Wake.
func (t *Task) Park(cancel func()) (interface{}, error) {
	return t.park(cancel)
}

// Wait suspends the task for delay seconds of virtual time. Returns
// ErrInterrupted if the wait was cancelled before it elapsed.
func (t *Task) Wait(delay float64) error {
	if delay < 0 {
		delay = 0
	}
	e := t.k.pushEvent(t.k.now+delay, t.k.nextSeq(), func() {
		t.waiting = false
		t.pendingCancel = nil
		resolve(t, nil, nil)
	})
	_, err := t.park(func() {
		e.cancelled = true
	})
	return err
}

// Interrupt cancels the task's current suspension point (if any) and
// delivers ErrInterrupted there instead. A no-op if the task is not
// currently suspended.
func (k *Kernel) Interrupt(t *Task) {
	if !t.waiting {
		return
	}
	if t.pendingCancel != nil {
		t.pendingCancel()
	}
	k.Wake(t, nil, ErrInterrupted)
}

// Alive reports whether the task has neither finished nor been torn
// down, mirroring the source's `process.is_alive` check before
// interrupting a miner.
func (t *Task) Alive() bool { return !t.Finished }
