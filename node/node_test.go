package node

import (
	"testing"

	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksim/blocksim/kernel"
)

const testLocation = "us-east"

func constDist(v float64) sampling.Distribution {
	return sampling.Distribution{Name: "const", Parameters: []float64{v}}
}

// newTestTransport builds a Transport where every hop costs a fixed,
// small delay, keyed for testLocation<->testLocation only.
func newTestTransport(k *kernel.Kernel) *transport.Transport {
	row := map[string]sampling.Distribution{testLocation: constDist(10)}
	return &transport.Transport{
		Sampler:            sampling.NewGonumSampler(k.Rand()),
		Latencies:          transport.DelayTable{testLocation: {testLocation: constDist(50)}},
		ThroughputSent:     transport.DelayTable{testLocation: row},
		ThroughputReceived: transport.DelayTable{testLocation: row},
	}
}

type recordingHandler struct {
	envelopes []transport.Envelope
}

func (h *recordingHandler) HandleEnvelope(env transport.Envelope) {
	h.envelopes = append(h.envelopes, env)
}

func newTestNode(t *testing.T, k *kernel.Kernel, tr *transport.Transport, address string) (*Node, *recordingHandler) {
	t.Helper()
	genesis := chain.Block{Header: chain.GenesisHeader("", 0, 100000)}
	c, err := chain.New(chain.NewMemDatabase(), genesis, address, k.Rand())
	require.NoError(t, err)
	n := NewNode(k, tr, c, address, testLocation)
	h := &recordingHandler{}
	n.Handler = h
	return n, h
}

func TestLatchAwaitBeforeArmBlocksUntilArmed(t *testing.T) {
	k := kernel.New(0, 1)
	l := newLatch(k)
	var gotAt float64 = -1
	k.Spawn(func(task *kernel.Task) {
		require.NoError(t, l.Await(task))
		gotAt = k.Now()
	})
	k.Schedule(5, l.Arm)
	k.RunUntil(10)
	assert.Equal(t, 5.0, gotAt)
}

func TestLatchAwaitAfterArmReturnsImmediately(t *testing.T) {
	k := kernel.New(0, 1)
	l := newLatch(k)
	l.Arm()
	var gotAt float64 = -1
	k.Schedule(3, func() {
		k.Spawn(func(task *kernel.Task) {
			require.NoError(t, l.Await(task))
			gotAt = k.Now()
		})
	})
	k.RunUntil(10)
	assert.Equal(t, 3.0, gotAt)
}

func TestLatchArmIsIdempotent(t *testing.T) {
	k := kernel.New(0, 1)
	l := newLatch(k)
	l.Arm()
	assert.NotPanics(t, func() { l.Arm() })
	assert.True(t, l.done)
}

func TestNodeConnectAttachesEveryPeerBeforeArmingConnecting(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a, _ := newTestNode(t, k, tr, "node-a")
	b, hb := newTestNode(t, k, tr, "node-b")
	c, _ := newTestNode(t, k, tr, "node-c")

	var connectingArmedAt float64 = -1
	k.Spawn(func(task *kernel.Task) {
		require.NoError(t, a.AwaitConnecting(task))
		connectingArmedAt = k.Now()
	})

	a.Connect([]Peer{a, b, c})
	k.RunUntil(100)

	assert.Greater(t, connectingArmedAt, 0.0)
	assert.Len(t, hb.envelopes, 0)
	_, ok := a.PeerSession("node-b")
	assert.True(t, ok)
	_, ok = a.PeerSession("node-c")
	assert.True(t, ok)
}

func TestNodeSendAsyncDeliversAfterUploadAndLatencyDelay(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a, _ := newTestNode(t, k, tr, "node-a")
	b, hb := newTestNode(t, k, tr, "node-b")

	a.Connect([]Peer{a, b})
	k.RunUntil(1)

	a.K.Spawn(func(task *kernel.Task) {
		require.NoError(t, a.AwaitConnecting(task))
		a.SendAsync("node-b", "hello", 1)
	})
	k.RunUntil(200)

	require.Len(t, hb.envelopes, 1)
	assert.Equal(t, "hello", hb.envelopes[0].Msg)
	assert.Equal(t, "node-a", hb.envelopes[0].Origin)
}

func TestNodeSendAsyncWithoutSessionLogsAndDoesNotPanic(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a, _ := newTestNode(t, k, tr, "node-a")
	assert.NotPanics(t, func() {
		a.SendAsync("unknown", "hello", 1)
		k.RunUntil(10)
	})
}

func TestNodeBroadcastAsyncCanSkipPerPeer(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a, _ := newTestNode(t, k, tr, "node-a")
	b, hb := newTestNode(t, k, tr, "node-b")
	c, hc := newTestNode(t, k, tr, "node-c")

	a.Connect([]Peer{a, b, c})
	k.RunUntil(1)

	a.K.Spawn(func(task *kernel.Task) {
		require.NoError(t, a.AwaitConnecting(task))
		a.BroadcastAsync(func(task *kernel.Task, dest string) (interface{}, float64, bool) {
			if dest == "node-c" {
				return nil, 0, true
			}
			return "only-for-b", 1, false
		})
	})
	k.RunUntil(200)

	assert.Len(t, hb.envelopes, 1)
	assert.Len(t, hc.envelopes, 0)
}
