package tx

import "fmt"

// EthTransaction is the Ethereum variant (spec.md section 3): adds
// nonce/gas_price/start_gas, with fee = gas_price * start_gas, and
// orders by gas_price rather than flat fee.
type EthTransaction struct {
	Nonce    uint64
	GasPrice float64
	StartGas float64
	To       string
	Sender   string
	Value    float64
}

// Fee is gas_price * start_gas, per spec.md section 3.
func (t EthTransaction) Fee() float64 {
	return t.GasPrice * t.StartGas
}

func (t EthTransaction) canonical() string {
	return fmt.Sprintf("<EthTransaction(nonce:%d gasprice:%v startgas:%v to:%s sender:%s value:%v)>",
		t.Nonce, t.GasPrice, t.StartGas, t.To, t.Sender, t.Value)
}

// Hash returns the Keccak-256 digest of the canonical string encoding.
func (t EthTransaction) Hash() Hash {
	return keccak256Hex(t.canonical())
}

// Equal reports whether two transactions share a hash.
func (t EthTransaction) Equal(other EthTransaction) bool {
	return t.Hash() == other.Hash()
}

// Less orders transactions by gas price, ascending, matching the
// Python source's __lt__ on gasprice.
func (t EthTransaction) Less(other EthTransaction) bool {
	return t.GasPrice < other.GasPrice
}

func (t EthTransaction) String() string {
	return t.canonical()
}
