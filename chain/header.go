// Package chain implements the block/header model and the Chain store
// (spec.md section 3 and section 4.2): orphan queueing, fork detection
// and head replacement by cumulative difficulty, grounded on the
// Python source's models/chain.py and models/block.py.
package chain

import (
	"fmt"

	"github.com/blocksim/blocksim/hashutil"
)

// Hash is a stable 256-bit digest, hex-encoded.
type Hash = hashutil.Hash

// Header is the base block header (spec.md section 3): a Bitcoin-style
// header with no gas accounting.
type Header struct {
	PrevHash   Hash
	Number     uint64
	Timestamp  float64
	Coinbase   string
	Difficulty int64
	Nonce      string
}

// Hash returns the Keccak-256 digest of the canonical string encoding.
// Two headers are equal iff their hashes are equal.
func (h Header) Hash() Hash {
	return hashutil.Keccak256Hex(h.canonical())
}

// HeaderNumber, HeaderPrevHash, HeaderDifficulty and HeaderTimestamp
// satisfy the BlockHeader interface the Chain store works against;
// EthHeader promotes them unchanged by embedding Header.
func (h Header) HeaderNumber() uint64     { return h.Number }
func (h Header) HeaderPrevHash() Hash     { return h.PrevHash }
func (h Header) HeaderDifficulty() int64  { return h.Difficulty }
func (h Header) HeaderTimestamp() float64 { return h.Timestamp }

func (h Header) canonical() string {
	return fmt.Sprintf("<Header(#%d prevhash:%s timestamp:%v coinbase:%s difficulty:%d)>",
		h.Number, h.PrevHash, h.Timestamp, h.Coinbase, h.Difficulty)
}

// GenesisHeader builds the header for block 0 with a zero prevhash and
// the given coinbase, timestamp and difficulty.
func GenesisHeader(coinbase string, timestamp float64, difficulty int64) Header {
	return Header{
		PrevHash:   hashutil.ZeroHash32,
		Number:     0,
		Timestamp:  timestamp,
		Coinbase:   coinbase,
		Difficulty: difficulty,
	}
}
