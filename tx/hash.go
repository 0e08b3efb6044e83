// Package tx implements the transaction model (spec.md section 3):
// a base, signature-agnostic transaction plus the Ethereum variant that
// adds nonce/gas pricing, both hashed with Keccak-256 over their
// canonical string encoding, mirroring the Python source's
// `encode_hex(keccak_256(str(self).encode('utf-8')))` pattern.
package tx

import "github.com/blocksim/blocksim/hashutil"

// Hash is a stable 256-bit digest, hex-encoded.
type Hash = hashutil.Hash

func keccak256Hex(data string) Hash {
	return hashutil.Keccak256Hex(data)
}
