// Package bitcoin is the Bitcoin message catalogue (spec.md section
// 4.4): tagged records carrying an id, payload fields, and a size in
// megabytes derived from a static per-protocol size table, grounded on
// original_source/blocksim/models/bitcoin/message.py.
package bitcoin

import (
	"github.com/blocksim/blocksim/chain"
	"github.com/blocksim/blocksim/sampling"
	"github.com/blocksim/blocksim/tx"
)

// SizeTable holds the measured per-field sizes (kilobytes) the
// catalogue derives every message size from, loaded from the
// simulation's `bitcoin.message_size_kB` configuration block.
type SizeTable struct {
	HeaderKB    float64
	VersionKB   float64
	VerackKB    float64
	InvVectorKB float64
	TxKB        float64
	BlockBaseKB float64
}

// InvType distinguishes the two kinds of inventory items Bitcoin
// advertises.
type InvType string

const (
	InvTypeTx    InvType = "tx"
	InvTypeBlock InvType = "block"
)

// Message is satisfied by every catalogue entry.
type Message interface {
	MessageID() string
	Size(t SizeTable) float64
}

// Version is sent immediately on an outgoing connection.
type Version struct{}

func (Version) MessageID() string { return "version" }
func (Version) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.HeaderKB + t.VersionKB)
}

// Verack replies to Version.
type Verack struct{}

func (Verack) MessageID() string { return "verack" }
func (Verack) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.HeaderKB + t.VerackKB)
}

// Inv advertises knowledge of transactions or blocks.
type Inv struct {
	Type   InvType
	Hashes []chain.Hash
}

func (Inv) MessageID() string { return "inv" }
func (m Inv) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.HeaderKB + float64(len(m.Hashes))*t.InvVectorKB)
}

// GetData requests the content behind previously-advertised hashes.
type GetData struct {
	Type   InvType
	Hashes []chain.Hash
}

func (GetData) MessageID() string { return "getdata" }
func (m GetData) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.HeaderKB + float64(len(m.Hashes))*t.InvVectorKB)
}

// Tx carries a single transaction, sent in reply to GetData.
type Tx struct {
	Tx tx.Transaction
}

func (Tx) MessageID() string { return "tx" }
func (Tx) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.HeaderKB + t.TxKB)
}

// Block carries a full block body, sent in reply to GetData.
type Block struct {
	Block chain.Block
}

func (Block) MessageID() string { return "block" }
func (m Block) Size(t SizeTable) float64 {
	return sampling.KBToMB(t.HeaderKB + t.BlockBaseKB + float64(len(m.Block.Transactions))*t.TxKB)
}
