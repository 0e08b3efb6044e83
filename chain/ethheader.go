package chain

import (
	"fmt"

	"github.com/blocksim/blocksim/hashutil"
)

// EthHeader is the Ethereum variant of Header (spec.md section 3):
// adds gas_limit/gas_used, and hashes over a canonical encoding that
// includes them, shadowing the embedded Header.Hash.
type EthHeader struct {
	Header
	GasLimit uint64
	GasUsed  uint64
}

// Hash returns the Keccak-256 digest of the canonical string encoding,
// including the gas fields absent from the base Header.
func (h EthHeader) Hash() Hash {
	return hashutil.Keccak256Hex(h.canonical())
}

func (h EthHeader) canonical() string {
	return fmt.Sprintf("<EthHeader(#%d prevhash:%s timestamp:%v coinbase:%s difficulty:%d gaslimit:%d gasused:%d)>",
		h.Number, h.PrevHash, h.Timestamp, h.Coinbase, h.Difficulty, h.GasLimit, h.GasUsed)
}

// GenesisEthHeader builds block 0's header, matching the Python
// source's Ethereum BlockHeader defaults (gas_limit 3000000, gas_used 0).
func GenesisEthHeader(coinbase string, timestamp float64, difficulty int64, gasLimit uint64) EthHeader {
	return EthHeader{
		Header:   GenesisHeader(coinbase, timestamp, difficulty),
		GasLimit: gasLimit,
		GasUsed:  0,
	}
}
