package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionHashStable(t *testing.T) {
	a := Transaction{To: "bob", Sender: "alice", Value: 10, Fee: 1}
	b := Transaction{To: "bob", Sender: "alice", Value: 10, Fee: 1}
	assert.Equal(t, a.Hash(), b.Hash())
	assert.True(t, a.Equal(b))
}

func TestTransactionHashChangesWithFields(t *testing.T) {
	a := Transaction{To: "bob", Sender: "alice", Value: 10, Fee: 1}
	b := Transaction{To: "bob", Sender: "alice", Value: 10, Fee: 2}
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(b))
}

func TestTransactionOrderingByFee(t *testing.T) {
	cheap := Transaction{Fee: 1}
	expensive := Transaction{Fee: 5}
	assert.True(t, cheap.Less(expensive))
	assert.False(t, expensive.Less(cheap))
}

func TestEthTransactionFeeIsGasPriceTimesStartGas(t *testing.T) {
	etx := EthTransaction{GasPrice: 3, StartGas: 21000}
	assert.Equal(t, 63000.0, etx.Fee())
}

func TestEthTransactionOrderingByGasPrice(t *testing.T) {
	low := EthTransaction{GasPrice: 1, StartGas: 100}
	high := EthTransaction{GasPrice: 2, StartGas: 1}
	assert.True(t, low.Less(high))
}

func TestEthTransactionHashStable(t *testing.T) {
	a := EthTransaction{Nonce: 1, GasPrice: 2, StartGas: 21000, To: "bob", Sender: "alice", Value: 10}
	b := a
	assert.True(t, a.Equal(b))
	a.Nonce = 2
	assert.False(t, a.Equal(b))
}
