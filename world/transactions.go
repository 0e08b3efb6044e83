package world

import (
	"math/rand"

	"github.com/blocksim/blocksim/kernel"
	"github.com/blocksim/blocksim/node"
	"github.com/blocksim/blocksim/tx"
)

const randomSignatureLength = 20

var signatureAlphabet = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// randomSignature mirrors transaction_factory.py's
// `choices(string.ascii_letters + string.digits, k=20)`, used only to
// make otherwise-identical generated transactions distinct by hash.
func randomSignature(rng *rand.Rand) string {
	out := make([]rune, randomSignatureLength)
	for i := range out {
		out[i] = signatureAlphabet[rng.Intn(len(signatureAlphabet))]
	}
	return string(out)
}

// TransactionFactory generates and broadcasts random transaction
// batches on a timer, grounded on
// original_source/blocksim/transaction_factory.py's TransactionFactory
// (spec.md section 9's supplemented feature 4).
type TransactionFactory struct {
	k          *kernel.Kernel
	blockchain Blockchain
	txGasLimit uint64
	recorder   *Recorder
	rng        *rand.Rand
}

// NewTransactionFactory builds a factory for the given blockchain kind.
// txGasLimit is only consulted for Ethereum batches.
func NewTransactionFactory(k *kernel.Kernel, blockchain Blockchain, txGasLimit uint64, recorder *Recorder) *TransactionFactory {
	return &TransactionFactory{k: k, blockchain: blockchain, txGasLimit: txGasLimit, recorder: recorder, rng: k.Rand()}
}

// Start spawns the batching loop: every interval seconds, for
// numberOfBatches iterations, build transactionsPerBatch random
// transactions and broadcast them from a uniformly random node in
// nodes. Mirrors transaction_factory.py's `broadcast` loop; REDESIGN
// note carried in DESIGN.md covers the source's per-batch interval
// wait being independent of the broadcast itself.
func (f *TransactionFactory) Start(numberOfBatches, transactionsPerBatch int, interval float64, nodes []Broadcaster) *kernel.Task {
	return f.k.Spawn(func(task *kernel.Task) {
		for i := 0; i < numberOfBatches; i++ {
			if len(nodes) == 0 {
				return
			}
			batch := f.buildBatch(transactionsPerBatch)
			f.recorder.IncrementCreatedTransactions(len(batch))
			origin := nodes[f.rng.Intn(len(nodes))]
			now := f.k.Now()
			for _, t := range batch {
				f.recorder.RecordCreated(f.kind(), t.hash, origin.Address(), now)
			}
			f.recorder.IncrementBroadcastTransactions(len(batch))
			origin.BroadcastGenerated(batch)
			if err := task.Wait(interval); err != nil {
				return
			}
		}
	})
}

func (f *TransactionFactory) kind() string { return "tx" }

// generatedTx is a broadcast-ready transaction plus its hash, built
// once so the factory can record creation without re-hashing.
type generatedTx struct {
	hash string
	btc  tx.Transaction
	eth  tx.EthTransaction
}

func (f *TransactionFactory) buildBatch(n int) []generatedTx {
	out := make([]generatedTx, 0, n)
	for i := 0; i < n; i++ {
		sig := randomSignature(f.rng)
		switch f.blockchain {
		case Ethereum:
			t := tx.EthTransaction{
				Nonce:    uint64(i),
				GasPrice: 2,
				StartGas: float64(f.txGasLimit),
				To:       "address",
				Sender:   "address",
				Value:    140,
			}
			out = append(out, generatedTx{hash: string(t.Hash()), eth: t})
		default:
			t := tx.Transaction{
				To:        "address",
				Sender:    "address",
				Value:     140,
				Signature: sig,
				Fee:       50,
			}
			out = append(out, generatedTx{hash: string(t.Hash()), btc: t})
		}
	}
	return out
}

// Broadcaster is the capability the transaction factory needs from a
// node: broadcast a batch of freshly generated transactions. BTCNode
// and ETHNode each get a thin adapter (bitcoinBroadcaster,
// ethereumBroadcaster) below so the factory stays blockchain-agnostic.
type Broadcaster interface {
	Address() string
	BroadcastGenerated(batch []generatedTx)
}

type bitcoinBroadcaster struct{ n *node.BTCNode }

func (b bitcoinBroadcaster) Address() string { return b.n.Address() }
func (b bitcoinBroadcaster) BroadcastGenerated(batch []generatedTx) {
	txs := make([]tx.Transaction, len(batch))
	for i, g := range batch {
		txs[i] = g.btc
	}
	b.n.BroadcastTransactions(txs)
}

type ethereumBroadcaster struct{ n *node.ETHNode }

func (b ethereumBroadcaster) Address() string { return b.n.Address() }
func (b ethereumBroadcaster) BroadcastGenerated(batch []generatedTx) {
	txs := make([]tx.EthTransaction, len(batch))
	for i, g := range batch {
		txs[i] = g.eth
	}
	b.n.BroadcastTransactions(txs)
}

// BitcoinBroadcasters adapts a slice of Bitcoin nodes to Broadcaster.
func BitcoinBroadcasters(nodes []*node.BTCNode) []Broadcaster {
	out := make([]Broadcaster, len(nodes))
	for i, n := range nodes {
		out[i] = bitcoinBroadcaster{n: n}
	}
	return out
}

// EthereumBroadcasters adapts a slice of Ethereum nodes to Broadcaster.
func EthereumBroadcasters(nodes []*node.ETHNode) []Broadcaster {
	out := make([]Broadcaster, len(nodes))
	for i, n := range nodes {
		out[i] = ethereumBroadcaster{n: n}
	}
	return out
}
