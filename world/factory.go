package world

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/hashicorp/go-uuid"

	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/kernel"
	"github.com/blocksim/blocksim/network"
	"github.com/blocksim/blocksim/node"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/simerr"
	"github.com/blocksim/blocksim/transport"
)

// chainDatabaseBytes sizes the per-node fastcache-backed chain index,
// generous enough for a multi-day simulated run's worth of headers.
const chainDatabaseBytes = 4 * 1024 * 1024

// NodeFactory builds every node a simulation run needs and fully
// connects them, grounded on
// original_source/blocksim/node_factory.py's NodeFactory.
type NodeFactory struct {
	k         *kernel.Kernel
	transport *transport.Transport
	network   *network.Network
	recorder  *Recorder
	rng       *rand.Rand
}

// NewNodeFactory builds a factory sharing the run's kernel, transport
// and node registry.
func NewNodeFactory(k *kernel.Kernel, tr *transport.Transport, net *network.Network, recorder *Recorder) *NodeFactory {
	return &NodeFactory{k: k, transport: tr, network: net, recorder: recorder, rng: k.Rand()}
}

// CheckLocations rejects any miner/non-miner location absent from the
// known location set, mirroring node_factory.py's `_check_location`
// (spec.md section 9's supplemented feature 5). Must be called before
// any node is built.
func CheckLocations(miners, nonMiners LocationFactory, known map[string]struct{}) error {
	for loc := range miners {
		if _, ok := known[loc]; !ok {
			return simerr.NewConfigError(
				fmt.Sprintf("no measurements for location %q, only available: %v", loc, keys(known)), nil)
		}
	}
	for loc := range nonMiners {
		if _, ok := known[loc]; !ok {
			return simerr.NewConfigError(
				fmt.Sprintf("no measurements for location %q, only available: %v", loc, keys(known)), nil)
		}
	}
	return nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// CreateBitcoinNodes builds every miner and non-miner node for a
// Bitcoin run, assigns a node id per location the way node_factory.py
// does (`{location.lower()}-{id}`), and fully connects the resulting
// set.
func (f *NodeFactory) CreateBitcoinNodes(cfg BitcoinConfig, validation node.ValidationDelays, miners, nonMiners LocationFactory) ([]*node.BTCNode, error) {
	sizeTable := cfg.MessageSizeKB.SizeTable()
	nodeCfg := node.BitcoinConfig{
		BlockSizeLimitMB:           cfg.BlockSizeLimitMB,
		NumberTransactionsPerBlock: cfg.NumberTxPerBlock,
	}
	genesis := node.DefaultBitcoinGenesis()
	sampler := sampling.NewGonumSampler(f.rng)

	var id int
	var built []*node.BTCNode
	build := func(location string, isMining bool, hashrate float64) error {
		id++
		address := fmt.Sprintf("%s-%d", strings.ToLower(location), id)
		n, err := node.NewBTCNode(f.k, f.transport, chain.NewFastCacheDatabase(chainDatabaseBytes), genesis,
			address, location, isMining, hashrate, sizeTable, nodeCfg, sampler, validation, f.recorder)
		if err != nil {
			return err
		}
		n.Monitor = f.recorder
		built = append(built, n)
		f.network.AddNode(n)
		logger.Debugw("node built", "address", address, "session_id", sessionID(), "mining", isMining)
		return nil
	}

	for location, spec := range miners {
		lo, hi, err := spec.HashrateBoundsMHs()
		if err != nil {
			return nil, err
		}
		for i := 0; i < spec.HowMany; i++ {
			hashrate := randomHashrateHz(f.rng, lo, hi)
			if err := build(location, true, hashrate); err != nil {
				return nil, err
			}
		}
	}
	for location, spec := range nonMiners {
		for i := 0; i < spec.HowMany; i++ {
			if err := build(location, false, 0); err != nil {
				return nil, err
			}
		}
	}

	connectAllBitcoin(built)
	logger.Infow("node factory created bitcoin nodes", "count", len(built))
	return built, nil
}

// CreateEthereumNodes is CreateBitcoinNodes's Ethereum counterpart.
func (f *NodeFactory) CreateEthereumNodes(cfg EthereumConfig, validation node.ValidationDelays, miners, nonMiners LocationFactory) ([]*node.ETHNode, error) {
	sizeTable := cfg.MessageSizeKB.SizeTable()
	nodeCfg := node.EthereumConfig{
		BlockGasLimit: cfg.BlockGasLimit,
		TxGasLimit:    cfg.TxGasLimit,
	}
	genesis := node.DefaultEthereumGenesis()

	var id int
	var built []*node.ETHNode
	build := func(location string, isMining bool, hashrate float64) error {
		id++
		address := fmt.Sprintf("%s-%d", strings.ToLower(location), id)
		n, err := node.NewETHNode(f.k, f.transport, chain.NewFastCacheDatabase(chainDatabaseBytes), genesis,
			address, location, isMining, hashrate, sizeTable, nodeCfg, validation, f.recorder)
		if err != nil {
			return err
		}
		n.Monitor = f.recorder
		built = append(built, n)
		f.network.AddNode(n)
		logger.Debugw("node built", "address", address, "session_id", sessionID(), "mining", isMining)
		return nil
	}

	for location, spec := range miners {
		lo, hi, err := spec.HashrateBoundsMHs()
		if err != nil {
			return nil, err
		}
		for i := 0; i < spec.HowMany; i++ {
			hashrate := randomHashrateHz(f.rng, lo, hi)
			if err := build(location, true, hashrate); err != nil {
				return nil, err
			}
		}
	}
	for location, spec := range nonMiners {
		for i := 0; i < spec.HowMany; i++ {
			if err := build(location, false, 0); err != nil {
				return nil, err
			}
		}
	}

	connectAllEthereum(built)
	logger.Infow("node factory created ethereum nodes", "count", len(built))
	return built, nil
}

// sessionID mints a correlation id for a single node-construction log
// line. It is never part of a node's address or wire identity — purely
// an aid for tracing a specific construction event back through logs
// when a run builds many nodes at the same location.
func sessionID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "unknown"
	}
	return id
}

// randomHashrateHz draws a uniform mega-hashrate in [lo,hi] and
// converts to H/s, matching node_factory.py's
// `randint(lo, hi) * 10**6`.
func randomHashrateHz(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo * 1e6
	}
	mh := lo + rng.Float64()*(hi-lo)
	return mh * 1e6
}

func connectAllBitcoin(nodes []*node.BTCNode) {
	peers := make([]node.Peer, len(nodes))
	for i, n := range nodes {
		peers[i] = n
	}
	for _, n := range nodes {
		n.Connect(peers)
	}
}

func connectAllEthereum(nodes []*node.ETHNode) {
	peers := make([]node.Peer, len(nodes))
	for i, n := range nodes {
		peers[i] = n
	}
	for _, n := range nodes {
		n.Connect(peers)
	}
}
