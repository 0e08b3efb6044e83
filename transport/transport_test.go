package transport

import (
	"math/rand"
	"testing"

	"github.com/blocksim/blocksim/kernel"
	"github.com/blocksim/blocksim/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constDist(v float64) sampling.Distribution {
	return sampling.Distribution{Name: "const", Parameters: []float64{v}}
}

func newTestTransport() *Transport {
	s := sampling.NewGonumSampler(rand.New(rand.NewSource(1)))
	return &Transport{
		Sampler: s,
		Latencies: DelayTable{
			"eu": {"eu": constDist(100), "us": constDist(200)},
		},
		ThroughputSent: DelayTable{
			"eu": {"eu": constDist(8), "us": constDist(8)},
		},
		ThroughputReceived: DelayTable{
			"eu": {"eu": constDist(8), "us": constDist(8)},
		},
	}
}

func TestLatencyConvertsMsToSeconds(t *testing.T) {
	tr := newTestTransport()
	d, err := tr.Latency("eu", "eu")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, d, 1e-9)
}

func TestLatencyMissingLocationIsTopologyError(t *testing.T) {
	tr := newTestTransport()
	_, err := tr.Latency("eu", "asia")
	assert.Error(t, err)
}

func TestUploadDelayComputation(t *testing.T) {
	tr := newTestTransport()
	d, err := tr.UploadDelay(1, "eu", "eu")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-9)
}

func TestConnectDelayUsesNominalOneMBPayload(t *testing.T) {
	tr := newTestTransport()
	connect, err := tr.ConnectDelay("eu", "eu")
	require.NoError(t, err)
	upload, err := tr.UploadDelay(1, "eu", "eu")
	require.NoError(t, err)
	assert.Equal(t, upload, connect)
}

func TestConnectionDeliversAfterDelay(t *testing.T) {
	k := kernel.New(0, 1)
	conn := NewConnection(k)
	var receivedAt float64 = -1
	var got Envelope
	k.Spawn(func(task *kernel.Task) {
		env, err := conn.Get(task)
		if err == nil {
			got = env
			receivedAt = k.Now()
		}
	})
	conn.Put(Envelope{Msg: "hello", Origin: "a", Destination: "b"}, 5)
	k.RunUntil(10)
	assert.Equal(t, 5.0, receivedAt)
	assert.Equal(t, "hello", got.Msg)
}

func TestActiveSessionDedupTracksMarkedHashes(t *testing.T) {
	k := kernel.New(0, 1)
	conn := NewConnection(k)
	s, err := NewActiveSession(conn)
	require.NoError(t, err)

	assert.False(t, s.KnowsTransaction("h1"))
	s.MarkTransaction("h1")
	assert.True(t, s.KnowsTransaction("h1"))

	assert.False(t, s.KnowsBlock("b1"))
	s.MarkBlock("b1")
	assert.True(t, s.KnowsBlock("b1"))
}

func TestActiveSessionEvictsUnderCapPressure(t *testing.T) {
	k := kernel.New(0, 1)
	conn := NewConnection(k)
	s, err := NewActiveSession(conn)
	require.NoError(t, err)

	for i := 0; i < MaxKnownTxs+10; i++ {
		s.MarkTransaction(rune32(i))
	}
	// the cache never exceeds its configured capacity regardless of
	// how many distinct hashes are marked.
	assert.LessOrEqual(t, s.knownTxs.Len(), MaxKnownTxs)
}

func rune32(i int) string {
	buf := make([]byte, 0, 12)
	for n := i; ; n /= 36 {
		d := n % 36
		if d < 10 {
			buf = append(buf, byte('0'+d))
		} else {
			buf = append(buf, byte('a'+d-10))
		}
		if n < 36 {
			break
		}
	}
	return string(buf)
}
