// Package transport implements the per-connection message transport
// (spec.md section 4.5): latency- and throughput-driven delivery of
// envelopes between node listeners, grounded on
// original_source/blocksim/models/network.py and
// original_source/blocksim/models/node.py's send/broadcast/
// listening_node methods.
package transport

// Envelope is a message in flight (spec.md section 3): msg, send
// timestamp, origin and destination addresses. SizeMB is computed by
// the sender from the message catalogue's per-protocol size table at
// construction time and carried alongside the message, mirroring the
// Python source's `msg['size']` entry, so the receiving listener can
// charge a download delay without needing the sender's size table.
type Envelope struct {
	Msg         interface{}
	Timestamp   float64
	Origin      string
	Destination string
	SizeMB      float64
}
