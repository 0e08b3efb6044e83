package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderHashStableAndFieldSensitive(t *testing.T) {
	a := Header{PrevHash: "p", Number: 1, Timestamp: 10, Coinbase: "c", Difficulty: 100}
	b := a
	assert.Equal(t, a.Hash(), b.Hash())

	c := a
	c.Difficulty = 101
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestEthHeaderHashDiffersFromBaseHeaderForSameFields(t *testing.T) {
	base := Header{PrevHash: "p", Number: 1, Timestamp: 10, Coinbase: "c", Difficulty: 100}
	eth := EthHeader{Header: base, GasLimit: 3000000, GasUsed: 21000}
	assert.NotEqual(t, base.Hash(), eth.Hash())
}

func TestEthHeaderPromotesBaseHeaderFields(t *testing.T) {
	base := Header{PrevHash: "p", Number: 7, Timestamp: 10, Coinbase: "c", Difficulty: 100}
	eth := EthHeader{Header: base, GasLimit: 3000000}
	assert.Equal(t, uint64(7), eth.HeaderNumber())
	assert.Equal(t, Hash("p"), eth.HeaderPrevHash())
}

func TestGenesisHeaderUsesZeroPrevHash(t *testing.T) {
	g := GenesisHeader("miner", 0, 100000)
	assert.Equal(t, 64, len(string(g.PrevHash)))
	assert.Equal(t, uint64(0), g.Number)
}
