package txpool

import (
	"testing"

	"github.com/blocksim/blocksim/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyCounter struct{ increments int }

func (c *spyCounter) IncrementQueueDepth(string) { c.increments++ }

func TestFIFOQueuePreservesOrder(t *testing.T) {
	k := kernel.New(0, 1)
	counter := &spyCounter{}
	q := NewFIFOQueue(k, "miner-0", counter)
	q.Put("a")
	q.Put("b")
	assert.Equal(t, 2, q.Size())
	assert.Equal(t, 2, counter.increments)

	var got []string
	k.Spawn(func(task *kernel.Task) {
		v1, err := q.Get(task)
		require.NoError(t, err)
		got = append(got, v1.(string))
		v2, err := q.Get(task)
		require.NoError(t, err)
		got = append(got, v2.(string))
	})
	k.RunUntil(1)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.True(t, q.IsEmpty())
}

func TestFIFOQueueGetBlocksUntilPut(t *testing.T) {
	k := kernel.New(0, 1)
	q := NewFIFOQueue(k, "miner-0", nil)
	var gotAt float64 = -1
	k.Spawn(func(task *kernel.Task) {
		_, err := q.Get(task)
		require.NoError(t, err)
		gotAt = k.Now()
	})
	k.Schedule(3, func() { q.Put("tx") })
	k.RunUntil(10)
	assert.Equal(t, 3.0, gotAt)
}

type feeItem struct {
	name string
	fee  float64
}

func (f feeItem) Fee() float64 { return f.fee }

func TestPriorityQueueReturnsHighestFeeFirst(t *testing.T) {
	k := kernel.New(0, 1)
	q := NewPriorityQueue(k, "miner-0", nil)
	q.Put(feeItem{"low", 1})
	q.Put(feeItem{"high", 10})
	q.Put(feeItem{"mid", 5})

	first, err := q.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, "high", first.(feeItem).name)

	second, err := q.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, "mid", second.(feeItem).name)
}

func TestPriorityQueueGetBlocksUntilPut(t *testing.T) {
	k := kernel.New(0, 1)
	q := NewPriorityQueue(k, "miner-0", nil)
	var gotAt float64 = -1
	k.Spawn(func(task *kernel.Task) {
		v, err := q.Get(task)
		require.NoError(t, err)
		assert.Equal(t, "late", v.(feeItem).name)
		gotAt = k.Now()
	})
	k.Schedule(4, func() { q.Put(feeItem{"late", 1}) })
	k.RunUntil(10)
	assert.Equal(t, 4.0, gotAt)
}
