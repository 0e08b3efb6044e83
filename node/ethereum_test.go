package node

import (
	"testing"

	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/message/ethereum"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/transport"
	"github.com/blocksim/blocksim/tx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksim/blocksim/kernel"
)

func testEthereumConfig() EthereumConfig {
	return EthereumConfig{BlockGasLimit: 100, TxGasLimit: 21}
}

func testValidationDelays(k *kernel.Kernel) ValidationDelays {
	return ValidationDelays{
		Sampler:         sampling.NewGonumSampler(k.Rand()),
		TxValidation:    sampling.Distribution{Name: "const", Parameters: []float64{1}},
		BlockValidation: sampling.Distribution{Name: "const", Parameters: []float64{1}},
	}
}

func newTestETHNode(t *testing.T, k *kernel.Kernel, tr *transport.Transport, address string, mining bool) *ETHNode {
	t.Helper()
	n, err := NewETHNode(k, tr, chain.NewMemDatabase(), DefaultEthereumGenesis(), address, testLocation, mining, 1,
		ethereum.SizeTable{}, testEthereumConfig(), testValidationDelays(k), nil)
	require.NoError(t, err)
	return n
}

func TestEthereumHandshakeExchangesStatus(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a := newTestETHNode(t, k, tr, "node-a", false)
	b := newTestETHNode(t, k, tr, "node-b", false)

	a.Connect([]Peer{a, b})
	b.Connect([]Peer{a, b})
	k.RunUntil(300)

	assert.True(t, a.handshaking.done)
	assert.True(t, b.handshaking.done)
	assert.Equal(t, a.Chain.GenesisHash(), a.peerStatus["node-b"].GenesisHash)
}

func TestEthereumNewBlocksTriggersHeaderThenBodyFetch(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a := newTestETHNode(t, k, tr, "node-a", false)
	b := newTestETHNode(t, k, tr, "node-b", false)

	a.Connect([]Peer{a, b})
	b.Connect([]Peer{a, b})
	k.RunUntil(10)

	head := b.Chain.Head().Header.(chain.EthHeader)
	newHeader := chain.EthHeader{
		Header: chain.Header{
			PrevHash:   head.Hash(),
			Number:     head.Number + 1,
			Timestamp:  head.Timestamp + 1,
			Coinbase:   "node-b",
			Difficulty: head.Difficulty + 1,
		},
		GasLimit: 100,
		GasUsed:  0,
	}
	newBlock := chain.Block{Header: newHeader}
	added, err := b.Chain.AddBlock(newBlock)
	require.NoError(t, err)
	require.True(t, added)

	b.broadcastNewBlocks([]chain.Block{newBlock})
	k.RunUntil(1000)

	gotBlock, ok := a.Chain.GetBlock(newHeader.Hash())
	require.True(t, ok)
	assert.Equal(t, newHeader.Number, gotBlock.Header.HeaderNumber())
	assert.Equal(t, newHeader.Hash(), a.Chain.Head().Header.Hash())
}

func TestEthereumNewBlocksInterruptsMining(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a := newTestETHNode(t, k, tr, "node-a", true)
	b := newTestETHNode(t, k, tr, "node-b", false)

	a.Connect([]Peer{a, b})
	b.Connect([]Peer{a, b})
	k.RunUntil(10)

	a.BuildNewBlock()
	k.RunUntil(11)
	require.True(t, a.miningTask.Alive())

	head := b.Chain.Head().Header.(chain.EthHeader)
	newHeader := chain.EthHeader{
		Header: chain.Header{
			PrevHash:   head.Hash(),
			Number:     head.Number + 1,
			Timestamp:  head.Timestamp + 1,
			Coinbase:   "node-b",
			Difficulty: head.Difficulty + 1,
		},
		GasLimit: 100,
	}
	newBlock := chain.Block{Header: newHeader}
	added, err := b.Chain.AddBlock(newBlock)
	require.NoError(t, err)
	require.True(t, added)
	b.broadcastNewBlocks([]chain.Block{newBlock})
	k.RunUntil(1000)

	assert.True(t, a.miningTask.Finished)
}

func TestEthereumBuildNewBlockDrainsMempoolByGas(t *testing.T) {
	k := kernel.New(0, 1)
	tr := newTestTransport(k)
	a := newTestETHNode(t, k, tr, "node-a", true)
	b := newTestETHNode(t, k, tr, "node-b", false)

	a.Connect([]Peer{a, b})
	b.Connect([]Peer{a, b})
	k.RunUntil(10)

	a.mempool.Put(tx.EthTransaction{Nonce: 1, GasPrice: 5, StartGas: 100, Sender: "a", To: "x1"})
	a.mempool.Put(tx.EthTransaction{Nonce: 2, GasPrice: 2, StartGas: 60, Sender: "a", To: "x2"})

	a.BuildNewBlock()
	k.RunUntil(1200)

	head := a.Chain.Head()
	assert.Equal(t, uint64(1), head.Header.HeaderNumber())
	require.Len(t, head.Transactions, 1)
	assert.Equal(t, "x1", head.Transactions[0].(tx.EthTransaction).To)
}
