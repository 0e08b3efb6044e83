package world

import (
	"path/filepath"

	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/eventbus"
	"github.com/blocksim/blocksim/kernel"
	"github.com/blocksim/blocksim/network"
	"github.com/blocksim/blocksim/node"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/simerr"
	"github.com/blocksim/blocksim/transport"
)

// InputFiles names the fixed relative paths the CLI reads from,
// mirroring original_source/blocksim/main.py's `set_simulation`.
type InputFiles struct {
	Config             string
	Factory            string
	Latency            string
	ThroughputReceived string
	ThroughputSent     string
	Delays             string
}

// DefaultInputFiles resolves the fixed file layout under dir (the
// CLI's `./input-parameters/` by default).
func DefaultInputFiles(dir string) InputFiles {
	return InputFiles{
		Config:             filepath.Join(dir, "config.json"),
		Factory:            filepath.Join(dir, "factory.json"),
		Latency:            filepath.Join(dir, "latency.json"),
		ThroughputReceived: filepath.Join(dir, "throughput-received.json"),
		ThroughputSent:     filepath.Join(dir, "throughput-sent.json"),
		Delays:             filepath.Join(dir, "delays.json"),
	}
}

// World is the fully built simulation: kernel, transport, node
// registry, the concrete node set for whichever blockchain was
// configured, the heartbeat, the transaction factory and the
// observability recorder. Grounded on
// original_source/blocksim/world.py's SimulationWorld and
// main.py's run_model.
type World struct {
	K         *kernel.Kernel
	Transport *transport.Transport
	Network   *network.Network
	Recorder  *Recorder
	Config    Config

	btcNodes []*node.BTCNode
	ethNodes []*node.ETHNode

	heartbeat *network.Heartbeat
	txFactory *TransactionFactory
	txCfg     TransactionFactoryCfg
	txNodes   []Broadcaster
	duration  float64
}

// Build loads every input file, cross-validates location sets and
// factory locations, constructs the node set for the configured
// blockchain, and wires the heartbeat and transaction factory — but
// does not start the clock. Every failure here is a ConfigError,
// surfaced before any event is scheduled (spec.md section 7 category 1).
func Build(files InputFiles, seed int64, initialTime float64) (*World, error) {
	cfg, err := LoadConfig(files.Config)
	if err != nil {
		return nil, err
	}
	factoryInput, err := LoadFactoryInput(files.Factory)
	if err != nil {
		return nil, err
	}
	latency, err := LoadLocationTable(files.Latency)
	if err != nil {
		return nil, err
	}
	download, err := LoadLocationTable(files.ThroughputReceived)
	if err != nil {
		return nil, err
	}
	upload, err := LoadLocationTable(files.ThroughputSent)
	if err != nil {
		return nil, err
	}
	if err := checkLocationSetsMatch(latency, download, upload); err != nil {
		return nil, err
	}
	delays, err := LoadDelays(files.Delays)
	if err != nil {
		return nil, err
	}
	if err := CheckLocations(factoryInput.Miners, factoryInput.NonMiners, latency.locationSet()); err != nil {
		return nil, err
	}

	k := kernel.New(initialTime, seed)
	tr := &transport.Transport{
		Sampler:            sampling.NewGonumSampler(k.Rand()),
		Latencies:          transport.DelayTable(latency.Locations),
		ThroughputSent:     transport.DelayTable(upload.Locations),
		ThroughputReceived: transport.DelayTable(download.Locations),
	}
	net := network.New()
	recorder := NewRecorder()
	factory := NewNodeFactory(k, tr, net, recorder)

	w := &World{
		K:         k,
		Transport: tr,
		Network:   net,
		Recorder:  recorder,
		Config:    cfg,
		duration:  cfg.DurationSeconds(),
	}

	var miners []node.Miner
	var broadcasters []Broadcaster
	var orphanProbability float64
	var timeBetweenBlocks sampling.Distribution

	switch cfg.Blockchain {
	case Bitcoin:
		validation := node.ValidationDelays{
			Sampler:         tr.Sampler,
			TxValidation:    delays.Bitcoin.TxValidation,
			BlockValidation: delays.Bitcoin.BlockValidation,
		}
		nodes, err := factory.CreateBitcoinNodes(cfg.Bitcoin, validation, factoryInput.Miners, factoryInput.NonMiners)
		if err != nil {
			return nil, err
		}
		w.btcNodes = nodes
		for _, n := range nodes {
			if n.IsMining() {
				miners = append(miners, n)
			}
		}
		broadcasters = BitcoinBroadcasters(nodes)
		orphanProbability = cfg.Bitcoin.OrphanBlocksProbability
		timeBetweenBlocks = delays.Bitcoin.TimeBetweenBlocksSeconds
	case Ethereum:
		validation := node.ValidationDelays{
			Sampler:         tr.Sampler,
			TxValidation:    delays.Ethereum.TxValidation,
			BlockValidation: delays.Ethereum.BlockValidation,
		}
		nodes, err := factory.CreateEthereumNodes(cfg.Ethereum, validation, factoryInput.Miners, factoryInput.NonMiners)
		if err != nil {
			return nil, err
		}
		w.ethNodes = nodes
		for _, n := range nodes {
			if n.IsMining() {
				miners = append(miners, n)
			}
		}
		broadcasters = EthereumBroadcasters(nodes)
		orphanProbability = cfg.Ethereum.OrphanBlocksProbability
		timeBetweenBlocks = delays.Ethereum.TimeBetweenBlocksSeconds
	default:
		return nil, simerr.NewConfigError("unreachable: blockchain already validated", nil)
	}

	w.heartbeat = network.NewHeartbeat(k, tr.Sampler, network.HeartbeatConfig{
		TimeBetweenBlocks:       timeBetweenBlocks,
		OrphanBlocksProbability: orphanProbability,
	}, miners)

	w.txCfg = cfg.TransactionFactory.WithDefaults()
	w.txNodes = broadcasters
	w.txFactory = NewTransactionFactory(k, cfg.Blockchain, cfg.Ethereum.TxGasLimit, recorder)

	return w, nil
}

// EnableEventBus dials brokers and wires a best-effort domain-event
// publisher into the run's recorder. Optional: a run with no eventbus
// configured behaves identically, just without the side-channel
// telemetry.
func (w *World) EnableEventBus(brokers []string, topic string) error {
	bus, err := eventbus.New(brokers, topic)
	if err != nil {
		return err
	}
	w.Recorder.SetEventBus(bus)
	return nil
}

// Run starts the heartbeat and transaction factory, advances the
// kernel to initial_time+duration, and returns the final observability
// record. Mirrors main.py's run_model / world.start_simulation.
func (w *World) Run() Record {
	w.heartbeat.Start()
	w.txFactory.Start(w.txCfg.NumberOfBatches, w.txCfg.TransactionsPerBatch, w.txCfg.IntervalSeconds, w.txNodes)
	w.K.RunUntil(w.K.Now() + w.duration)
	return w.Recorder.Snapshot(w.snapshots())
}

func (w *World) snapshots() []NodeSnapshot {
	var out []NodeSnapshot
	for _, n := range w.btcNodes {
		out = append(out, snapshotOf(n.AddressID, n.Chain))
	}
	for _, n := range w.ethNodes {
		out = append(out, snapshotOf(n.AddressID, n.Chain))
	}
	return out
}

func snapshotOf(address string, c *chain.Chain) NodeSnapshot {
	head := c.Head()
	hashes := c.GetBlockHashesFromHash(head.Header.Hash(), int(head.Header.HeaderNumber())+1)
	return NodeSnapshot{
		Address: address,
		Forks:   c.ForksCount(),
		Chain: ChainSummary{
			HeadBlockHash:  string(head.Header.Hash()),
			NumberOfBlocks: head.Header.HeaderNumber() + 1,
			ChainList:      hashes,
		},
	}
}
