// Package types defines the shared value types used across the client and
// host packages of the fault-proof program.
package types

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Hash and Address are the canonical 32-byte / 20-byte identifiers used
// throughout the trie, oracle and state-db layers. We reuse go-ethereum's
// own types rather than re-deriving them: every preimage key, account leaf
// and block hash in this program is ultimately an Ethereum value.
type Hash = common.Hash
type Address = common.Address

// ZeroHash is the hash value used for an empty trie slot.
var ZeroHash = common.Hash{}

// EmptyCodeHash is the keccak256 hash of the empty byte string, the
// sentinel stored in an account leaf for an account with no code.
var EmptyCodeHash = common.Hash{0xc5, 0xd2, 0x46, 0x01, 0x86, 0xf7, 0x23, 0x3c, 0x92, 0x7e, 0x7d, 0xb2, 0xdc, 0xc7, 0x03, 0xc0,
	0xe5, 0x00, 0xb6, 0x53, 0xca, 0x82, 0x27, 0x3b, 0x7b, 0xfa, 0xd8, 0x04, 0x5d, 0x85, 0xa4, 0x70}

// Uint64ToBytes encodes n as an 8-byte big-endian value, the wire format
// used for every integer stored in a local-key preimage (spec §6).
func Uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// BytesToUint64 decodes an 8-byte big-endian value. Shorter inputs are
// treated as left-padded with zero.
func BytesToUint64(b []byte) uint64 {
	if len(b) < 8 {
		padded := make([]byte, 8)
		copy(padded[8-len(b):], b)
		b = padded
	}
	return binary.BigEndian.Uint64(b[:8])
}

// BigIntToBytes encodes a big.Int using its minimal big-endian representation,
// the format used for RLP-encoded account balances and storage values.
func BigIntToBytes(n *big.Int) []byte {
	if n == nil || n.Sign() == 0 {
		return []byte{}
	}
	return n.Bytes()
}

// BytesToBigInt decodes a minimal big-endian integer. A nil/empty slice
// decodes to zero, matching the "missing slot returns zero" rule in §4.6.
func BytesToBigInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
