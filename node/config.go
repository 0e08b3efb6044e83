package node

import (
	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/sampling"
)

// BitcoinConfig carries the subset of spec.md section 6's `bitcoin.*`
// configuration block a Bitcoin node consults directly when mining
// (the message size table lives with the catalogue, bitcoin.SizeTable).
type BitcoinConfig struct {
	BlockSizeLimitMB           float64
	NumberTransactionsPerBlock sampling.Distribution
}

// EthereumConfig carries the subset of spec.md section 6's
// `ethereum.*` configuration block an Ethereum node consults when
// mining. TxGasLimit is read by the transaction factory (world/), kept
// here so the whole `ethereum.*` block has one home.
type EthereumConfig struct {
	BlockGasLimit uint64
	TxGasLimit    uint64
}

// ValidationDelays models the Python source's Consensus collaborator
// (original_source/blocksim/models/consensus.py): validation is never
// simulated beyond charging a sampled delay.
type ValidationDelays struct {
	Sampler         sampling.Sampler
	TxValidation    sampling.Distribution
	BlockValidation sampling.Distribution
}

// ValidateTransaction draws a transaction-validation delay, resampling
// away any negative draw (REDESIGN flag 4).
func (v ValidationDelays) ValidateTransaction() (float64, error) {
	return sampling.SampleNonNegative(v.Sampler, v.TxValidation, "", "")
}

// ValidateBlock draws a block-validation delay.
func (v ValidationDelays) ValidateBlock() (float64, error) {
	return sampling.SampleNonNegative(v.Sampler, v.BlockValidation, "", "")
}

// DefaultBitcoinGenesis builds the block-0 header every Bitcoin node in
// a simulation run must share, matching the Python source's
// `Block(BlockHeader())` default-constructed genesis (no per-node
// coinbase, difficulty 100000) so all nodes compute the same genesis
// hash.
func DefaultBitcoinGenesis() chain.Block {
	return chain.Block{Header: chain.GenesisHeader("", 0, 100000)}
}

// DefaultEthereumGenesis builds the block-0 header every Ethereum node
// must share.
func DefaultEthereumGenesis() chain.Block {
	return chain.Block{Header: chain.GenesisEthHeader("", 0, 100000, 3000000)}
}
