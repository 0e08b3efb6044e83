package transport

import (
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/simerr"
)

// DelayTable maps origin location to destination location to the
// distribution to sample a delay from, loaded from the simulation's
// latency/throughput measurement files (spec.md section 6), grounded
// on original_source/blocksim/world.py's `_set_latencies`/
// `_set_download_bandwidths`/`_set_upload_bandwidths` location-keyed
// dictionaries.
type DelayTable map[string]map[string]sampling.Distribution

func (t DelayTable) lookup(origin, destination string) (sampling.Distribution, error) {
	row, ok := t[origin]
	if !ok {
		return sampling.Distribution{}, simerr.NewTopologyError("no delay entry for origin location %q", origin)
	}
	d, ok := row[destination]
	if !ok {
		return sampling.Distribution{}, simerr.NewTopologyError("no delay entry for %q -> %q", origin, destination)
	}
	return d, nil
}

// Transport computes the three delay kinds spec.md section 4.5 names:
// latency (per envelope, at delivery), upload/send throughput and
// download/receive throughput, each sampled from a location-pair
// distribution via a shared Sampler.
type Transport struct {
	Sampler            sampling.Sampler
	Latencies          DelayTable
	ThroughputSent     DelayTable
	ThroughputReceived DelayTable
}

// Latency draws a one-way latency delay in seconds for origin->destination.
func (t *Transport) Latency(originLoc, destLoc string) (float64, error) {
	d, err := t.Latencies.lookup(originLoc, destLoc)
	if err != nil {
		return 0, err
	}
	return sampling.LatencyDelay(t.Sampler, d, originLoc, destLoc)
}

// UploadDelay draws the send-side transmission delay for a message of
// sizeMB from originLoc to destLoc.
func (t *Transport) UploadDelay(sizeMB float64, originLoc, destLoc string) (float64, error) {
	d, err := t.ThroughputSent.lookup(originLoc, destLoc)
	if err != nil {
		return 0, err
	}
	return sampling.TransmissionDelay(t.Sampler, d, sizeMB, originLoc, destLoc)
}

// DownloadDelay draws the receive-side transmission delay for a
// message of sizeMB from originLoc to destLoc.
func (t *Transport) DownloadDelay(sizeMB float64, originLoc, destLoc string) (float64, error) {
	d, err := t.ThroughputReceived.lookup(originLoc, destLoc)
	if err != nil {
		return 0, err
	}
	return sampling.TransmissionDelay(t.Sampler, d, sizeMB, originLoc, destLoc)
}

// ConnectDelay approximates the TCP-handshake-shaped delay paid before
// a listener starts consuming a new connection (spec.md's supplemented
// feature from original_source/blocksim/models/node.py's
// `_connecting`: an upload transmission delay for a nominal 1MB
// handshake payload).
func (t *Transport) ConnectDelay(originLoc, destLoc string) (float64, error) {
	return t.UploadDelay(1, originLoc, destLoc)
}
