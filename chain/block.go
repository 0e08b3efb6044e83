package chain

// BlockHeader is the contract the Chain store needs from a header,
// satisfied by both Header and EthHeader (spec.md section 3: "Two
// headers are equal iff their hashes are equal").
type BlockHeader interface {
	Hash() Hash
	HeaderNumber() uint64
	HeaderPrevHash() Hash
	HeaderDifficulty() int64
	HeaderTimestamp() float64
}

// Transaction is the contract the Chain store needs from a
// transaction: just enough to preserve ordering, never to interpret it.
type Transaction interface {
	Hash() Hash
}

// Block is header plus an ordered transaction list (spec.md section
// 3). Order of Transactions is preserved, never re-sorted by the store.
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// TransactionCount mirrors the Python source's transaction_count
// property.
func (b Block) TransactionCount() int {
	return len(b.Transactions)
}
