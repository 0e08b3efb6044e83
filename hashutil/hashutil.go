// Package hashutil provides the one hashing primitive the simulator
// needs (spec.md section 1 treats "a stable 256-bit digest of a
// canonical encoding" as the whole contract): Keccak-256 over a
// canonical string, hex-encoded.
package hashutil

import "golang.org/x/crypto/sha3"

// Hash is a hex-encoded 256-bit digest.
type Hash string

// Keccak256Hex hashes data with Keccak-256 and hex-encodes the digest.
func Keccak256Hex(data string) Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(data))
	return Hash(hexEncode(h.Sum(nil)))
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}

// ZeroHash32 is the encode_hex(b'\x00' * 32) placeholder the Python
// source uses as the genesis block's prevhash.
const ZeroHash32 Hash = "0000000000000000000000000000000000000000000000000000000000000000"

// ZeroAddress20 is the encode_hex(b'\x00' * 20) zero-address placeholder.
const ZeroAddress20 = "0000000000000000000000000000000000000000"

