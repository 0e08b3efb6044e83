package tx

import "fmt"

// Transaction is the base, Bitcoin-style model (spec.md section 3):
// to/sender/value/signature plus a flat fee. Two transactions are equal
// iff their hashes match; ordering is by fee.
type Transaction struct {
	To        string
	Sender    string
	Value     float64
	Signature string
	Fee       float64
}

// Hash returns the Keccak-256 digest of the canonical string encoding.
func (t Transaction) Hash() Hash {
	return keccak256Hex(t.canonical())
}

func (t Transaction) canonical() string {
	return fmt.Sprintf("<Transaction(to:%s sender:%s value:%v signature:%s fee:%v)>",
		t.To, t.Sender, t.Value, t.Signature, t.Fee)
}

// Equal reports whether two transactions share a hash.
func (t Transaction) Equal(other Transaction) bool {
	return t.Hash() == other.Hash()
}

// Less orders transactions by fee, ascending.
func (t Transaction) Less(other Transaction) bool {
	return t.Fee < other.Fee
}

// String returns a readable representation, matching the Python
// source's __str__ used as the hash preimage.
func (t Transaction) String() string {
	return t.canonical()
}
