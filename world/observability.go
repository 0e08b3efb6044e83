package world

import (
	"sync"

	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/eventbus"
	"github.com/blocksim/blocksim/metrics"
)

// Recorder accumulates the observability record spec.md section 6
// names, written once at the end of a simulation run. It satisfies
// both txpool.Counter (IncrementQueueDepth) and node.Monitor
// (RecordCreated/RecordReceived), so the same value can be handed to
// every node's mempool and to every node's Monitor field.
//
// Grounded on original_source/blocksim/main.py's `set_monitor`
// (`env.data` dict of running counters) and world.py/node.py's forks
// and chain bookkeeping; extended per spec.md section 9's supplemented
// feature 3 with the world-level `CreatedTransactions` and
// `BroadcastTransactions` counters the source's `env.data` carries
// alongside the per-address ones.
type Recorder struct {
	mu sync.Mutex

	startedAt string
	endedAt   string

	createdTransactions   int
	broadcastTransactions int
	queueDepth            map[string]int

	created     map[string]createdEntry
	propagation map[string]map[string]map[string]float64 // kind -> "{origin}_{dest}" -> hashPrefix -> seconds

	bus *eventbus.Bus
}

type createdEntry struct {
	origin string
	at     float64
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		queueDepth:  make(map[string]int),
		created:     make(map[string]createdEntry),
		propagation: map[string]map[string]map[string]float64{"tx": {}, "block": {}},
	}
}

// SetEventBus wires an optional best-effort domain-event publisher. A
// nil bus (the default) makes every publish a no-op.
func (r *Recorder) SetEventBus(b *eventbus.Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bus = b
}

// MarkStart/MarkEnd record formatted wall-clock timestamps, per
// spec.md section 6's `start_simulation_time`/`end_simulation_time`.
func (r *Recorder) MarkStart(formatted string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startedAt = formatted
}

func (r *Recorder) MarkEnd(formatted string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endedAt = formatted
}

// IncrementCreatedTransactions tallies the transaction factory's
// `created_transactions` world-level counter.
func (r *Recorder) IncrementCreatedTransactions(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createdTransactions += n
}

// IncrementBroadcastTransactions tallies the transaction factory's
// `broadcast_transactions` world-level counter.
func (r *Recorder) IncrementBroadcastTransactions(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastTransactions += n
}

// IncrementQueueDepth satisfies txpool.Counter: every successful Put
// on a mempool increments `{address}_number_of_transactions_queue`.
func (r *Recorder) IncrementQueueDepth(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queueDepth[address]++
	metrics.QueueDepthGauge(address).Update(int64(r.queueDepth[address]))
}

// RecordCreated satisfies node.Monitor: a node (the transaction
// factory's chosen origin, or a miner's BuildNewBlock) has originated
// the object identified by hash at virtual time at.
func (r *Recorder) RecordCreated(kind, hash, origin string, at float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := kind + ":" + hash
	if _, exists := r.created[key]; exists {
		return
	}
	r.created[key] = createdEntry{origin: origin, at: at}
	if kind == "block" {
		metrics.BlocksBuiltCounter(origin).Inc(1)
		r.bus.Publish(eventbus.Event{Kind: eventbus.EventBlockAdded, Address: origin, BlockHash: hash, At: at})
	}
}

// RecordReceived satisfies node.Monitor: dest has taken full ownership
// of the object identified by hash at virtual time at. If the object's
// creation was never observed (e.g. dest is the origin itself) this is
// a no-op.
func (r *Recorder) RecordReceived(kind, hash, dest string, at float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := kind + ":" + hash
	entry, ok := r.created[key]
	if !ok || entry.origin == dest {
		return
	}
	bucket := r.propagation[kind]
	if bucket == nil {
		bucket = make(map[string]map[string]float64)
		r.propagation[kind] = bucket
	}
	pairKey := entry.origin + "_" + dest
	byHash, ok := bucket[pairKey]
	if !ok {
		byHash = make(map[string]float64)
		bucket[pairKey] = byHash
	}
	prefix := hash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if _, already := byHash[prefix]; already {
		return
	}
	byHash[prefix] = at - entry.at
}

// ChainSummary is the `{address}_chain` record (spec.md section 6).
type ChainSummary struct {
	HeadBlockHash  string       `json:"head_block_hash"`
	NumberOfBlocks uint64       `json:"number_of_blocks"`
	ChainList      []chain.Hash `json:"chain_list"`
}

// NodeSnapshot carries everything about one node the final record
// needs beyond what the Recorder itself accumulated during the run.
type NodeSnapshot struct {
	Address string
	Forks   int
	Chain   ChainSummary
}

// Record is the full observability record spec.md section 6 describes,
// ready to be marshalled to JSON.
type Record struct {
	StartSimulationTime  string                        `json:"start_simulation_time"`
	EndSimulationTime    string                        `json:"end_simulation_time"`
	CreatedTransactions  int                           `json:"created_transactions"`
	BroadcastTransactions int                          `json:"broadcast_transactions"`
	TxPropagation        map[string]map[string]float64 `json:"tx_propagation"`
	BlockPropagation     map[string]map[string]float64 `json:"block_propagation"`
	Forks                map[string]int                `json:"forks"`
	QueueDepth           map[string]int                `json:"number_of_transactions_queue"`
	Chains               map[string]ChainSummary       `json:"chains"`
}

// Snapshot assembles the final Record from the accumulated counters
// plus a per-node snapshot the world builder takes after run_until
// returns.
func (r *Recorder) Snapshot(nodes []NodeSnapshot) Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	forks := make(map[string]int, len(nodes))
	chains := make(map[string]ChainSummary, len(nodes))
	for _, n := range nodes {
		forks[n.Address] = n.Forks
		chains[n.Address] = n.Chain
		metrics.ForksCounter(n.Address).Clear()
		metrics.ForksCounter(n.Address).Inc(int64(n.Forks))
		if n.Forks > 0 {
			r.bus.Publish(eventbus.Event{Kind: eventbus.EventFork, Address: n.Address, Detail: n.Forks})
		}
	}

	return Record{
		StartSimulationTime:   r.startedAt,
		EndSimulationTime:     r.endedAt,
		CreatedTransactions:   r.createdTransactions,
		BroadcastTransactions: r.broadcastTransactions,
		TxPropagation:         flattenPropagation(r.propagation["tx"]),
		BlockPropagation:      flattenPropagation(r.propagation["block"]),
		Forks:                 forks,
		QueueDepth:            r.queueDepth,
		Chains:                chains,
	}
}

func flattenPropagation(bucket map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(bucket))
	for pair, byHash := range bucket {
		copied := make(map[string]float64, len(byHash))
		for h, v := range byHash {
			copied[h] = v
		}
		out[pair] = copied
	}
	return out
}
