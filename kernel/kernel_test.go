package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFiresAtExactTime(t *testing.T) {
	k := New(0, 1)
	var fired float64 = -1
	k.Schedule(5, func() { fired = k.Now() })
	k.RunUntil(10)
	assert.Equal(t, 5.0, fired)
}

func TestCausalConsistency(t *testing.T) {
	k := New(0, 1)
	var observed []float64
	k.Schedule(3, func() { observed = append(observed, k.Now()) })
	k.Schedule(1, func() { observed = append(observed, k.Now()) })
	k.Schedule(2, func() { observed = append(observed, k.Now()) })
	k.RunUntil(10)
	require.Equal(t, []float64{1, 2, 3}, observed)
}

func TestEqualTimeFIFOBySeq(t *testing.T) {
	k := New(0, 1)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		k.Schedule(1, func() { order = append(order, i) })
	}
	k.RunUntil(2)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestCancelPreventsAction(t *testing.T) {
	k := New(0, 1)
	fired := false
	h := k.Schedule(1, func() { fired = true })
	h.Cancel()
	k.RunUntil(2)
	assert.False(t, fired)
}

func TestRunUntilStopsBeforeDeadline(t *testing.T) {
	k := New(0, 1)
	k.Schedule(100, func() {})
	k.RunUntil(10)
	assert.Equal(t, 10.0, k.Now())
	assert.Equal(t, 1, k.Pending())
}

func TestTaskWaitSuspendsAndResumes(t *testing.T) {
	k := New(0, 1)
	var resumedAt float64 = -1
	k.Spawn(func(task *Task) {
		err := task.Wait(7)
		require.NoError(t, err)
		resumedAt = k.Now()
	})
	k.RunUntil(20)
	assert.Equal(t, 7.0, resumedAt)
}

func TestTaskInterruptDeliversErrInterrupted(t *testing.T) {
	k := New(0, 1)
	var gotErr error
	interruptedAt := -1.0
	interruptMe := k.Spawn(func(task *Task) {
		gotErr = task.Wait(50)
		interruptedAt = k.Now()
	})
	k.Schedule(1, func() {
		k.Interrupt(interruptMe)
	})
	k.RunUntil(10)
	assert.ErrorIs(t, gotErr, ErrInterrupted)
	assert.Equal(t, 1.0, interruptedAt)
}

func TestInterruptOnNonWaitingTaskIsNoop(t *testing.T) {
	k := New(0, 1)
	done := false
	tk := k.Spawn(func(task *Task) {
		done = true
	})
	// Spawn only schedules the task's start, so it is not suspended yet;
	// interrupting it must not panic or hang.
	k.Interrupt(tk)
	k.RunUntil(1)
	assert.True(t, done)
}

func TestEventFireWakesAllAwaitersAndResets(t *testing.T) {
	k := New(0, 1)
	ev := k.NewEvent()
	var woke int
	for i := 0; i < 3; i++ {
		k.Spawn(func(task *Task) {
			err := ev.Await(task)
			require.NoError(t, err)
			woke++
		})
	}
	k.Schedule(1, func() {
		ev = ev.Fire()
	})
	k.RunUntil(5)
	assert.Equal(t, 3, woke)
}

func TestStoreGetBlocksUntilPut(t *testing.T) {
	k := New(0, 1)
	store := k.NewStore()
	var gotAt float64 = -1
	var gotVal interface{}
	k.Spawn(func(task *Task) {
		v, err := store.Get(task)
		require.NoError(t, err)
		gotVal = v
		gotAt = k.Now()
	})
	k.Schedule(4, func() { store.Put("hello") })
	k.RunUntil(10)
	assert.Equal(t, 4.0, gotAt)
	assert.Equal(t, "hello", gotVal)
}

func TestStoreGetImmediateWhenNonEmpty(t *testing.T) {
	k := New(0, 1)
	store := k.NewStore()
	store.Put(42)
	var got interface{}
	k.Spawn(func(task *Task) {
		v, _ := store.Get(task)
		got = v
	})
	k.RunUntil(1)
	assert.Equal(t, 42, got)
	assert.Equal(t, 0, store.Len())
}

func TestMultipleTasksInterleaveDeterministically(t *testing.T) {
	k := New(0, 1)
	var trace []string
	k.Spawn(func(task *Task) {
		trace = append(trace, "A0")
		task.Wait(2)
		trace = append(trace, "A1")
	})
	k.Spawn(func(task *Task) {
		trace = append(trace, "B0")
		task.Wait(1)
		trace = append(trace, "B1")
	})
	k.RunUntil(10)
	assert.Equal(t, []string{"A0", "B0", "B1", "A1"}, trace)
}
