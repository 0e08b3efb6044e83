// Package ethereum is the Ethereum Wire Protocol message catalogue
// (spec.md section 4.4), grounded on
// original_source/blocksim/models/ethereum/message.py.
package ethereum

import (
	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/tx"
)

// SizeTable holds the measured per-field sizes (kilobytes), loaded
// from the simulation's `ethereum.message_size_kB` configuration block.
type SizeTable struct {
	StatusKB      float64
	HashSizeKB    float64
	TxKB          float64
	GetHeadersKB  float64
	HeaderKB      float64
	BlockBodiesKB float64
}

// Message is satisfied by every catalogue entry.
type Message interface {
	MessageID() string
	Size(t SizeTable) float64
}

// Status informs a peer of chain state just after the handshake.
type Status struct {
	ProtocolVersion string
	Network         string
	TotalDifficulty int64
	BestHash        chain.Hash
	GenesisHash     chain.Hash
}

func (Status) MessageID() string { return "status" }
func (Status) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.StatusKB)
}

// NewBlocks advertises newly-seen blocks by hash and number.
type NewBlocks struct {
	Blocks map[chain.Hash]uint64
}

func (NewBlocks) MessageID() string { return "new_blocks" }
func (m NewBlocks) Size(t SizeTable) float64 {
	return sampling.KBToMB(float64(len(m.Blocks)) * t.HashSizeKB)
}

// Transactions bulk-pushes pending transactions to a peer.
type Transactions struct {
	Transactions []tx.EthTransaction
}

func (Transactions) MessageID() string { return "transactions" }
func (m Transactions) Size(t SizeTable) float64 {
	return sampling.KBToMB(float64(len(m.Transactions)) * t.TxKB)
}

// GetHeaders requests up to MaxHeaders headers starting at BlockNumber.
type GetHeaders struct {
	BlockNumber uint64
	MaxHeaders  int
}

func (GetHeaders) MessageID() string { return "get_headers" }
func (GetHeaders) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.GetHeadersKB)
}

// BlockHeaders replies to GetHeaders.
type BlockHeaders struct {
	Headers []chain.EthHeader
}

func (BlockHeaders) MessageID() string { return "block_headers" }
func (m BlockHeaders) Size(t SizeTable) float64 {
	return sampling.KBToMB(float64(len(m.Headers)) * t.HeaderKB)
}

// GetBlockBodies requests the bodies behind previously-fetched headers.
type GetBlockBodies struct {
	Hashes []chain.Hash
}

func (GetBlockBodies) MessageID() string { return "get_block_bodies" }
func (m GetBlockBodies) Size(t SizeTable) float64 {
	return sampling.KBToMB(float64(len(m.Hashes)) * t.HashSizeKB)
}

// BlockBodies replies to GetBlockBodies with the transactions for each
// requested hash.
type BlockBodies struct {
	Bodies map[chain.Hash][]tx.EthTransaction
}

func (BlockBodies) MessageID() string { return "block_bodies" }
func (m BlockBodies) Size(t SizeTable) float64 {
	count := 0
	for _, txs := range m.Bodies {
		count += len(txs)
	}
	return sampling.KBToMB(float64(count)*t.TxKB + t.BlockBodiesKB)
}
