package bitcoin

import (
	"testing"

	"github.com/blocksim/blocksim/chain"
	"github.com/stretchr/testify/assert"
)

var table = SizeTable{
	HeaderKB:    24,
	VersionKB:   0.1,
	VerackKB:    0,
	InvVectorKB: 0.036,
	TxKB:        0.25,
	BlockBaseKB: 0.08,
}

func TestVersionSize(t *testing.T) {
	assert.InDelta(t, (24+0.1)/1024, Version{}.Size(table), 1e-9)
}

func TestInvSizeGrowsWithHashCount(t *testing.T) {
	small := Inv{Type: InvTypeTx, Hashes: []chain.Hash{"a"}}
	large := Inv{Type: InvTypeTx, Hashes: []chain.Hash{"a", "b", "c"}}
	assert.Less(t, small.Size(table), large.Size(table))
}

func TestBlockSizeAccountsForTransactionCount(t *testing.T) {
	empty := Block{Block: chain.Block{}}
	withTxs := Block{Block: chain.Block{Transactions: make([]chain.Transaction, 5)}}
	assert.Less(t, empty.Size(table), withTxs.Size(table))
}

func TestMessageIDs(t *testing.T) {
	assert.Equal(t, "version", Version{}.MessageID())
	assert.Equal(t, "verack", Verack{}.MessageID())
	assert.Equal(t, "inv", Inv{}.MessageID())
	assert.Equal(t, "getdata", GetData{}.MessageID())
	assert.Equal(t, "tx", Tx{}.MessageID())
	assert.Equal(t, "block", Block{}.MessageID())
}
