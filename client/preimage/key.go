// Package preimage implements the preimage oracle wire protocol: the typed
// preimage key (spec §3), the two pipes it travels over (spec §4.1) and the
// hint/get request protocol layered on top of them (spec §4.2).
package preimage

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// KeyType is the tag carried in the top byte of every 32-byte preimage key.
type KeyType byte

const (
	// LocalKeyType indexes a program input selected by a small integer; its
	// content is opaque and verified externally (by the boot record commitment).
	LocalKeyType KeyType = 1
	// Keccak256KeyType requires keccak256(content) == key[1:].
	Keccak256KeyType KeyType = 2
	// GlobalGenericKeyType is reserved; implementations may reject it.
	GlobalGenericKeyType KeyType = 3
	// Sha256KeyType requires sha256(content) == key[1:].
	Sha256KeyType KeyType = 4
	// BlobKeyType addresses a single EIP-4844 blob field element, verified
	// jointly with a companion Keccak256 entry via a KZG opening proof.
	BlobKeyType KeyType = 5
	// PrecompileKeyType addresses the output of a designated accelerated
	// precompile applied to inputs found under a companion Keccak256 entry.
	PrecompileKeyType KeyType = 6
)

// String implements fmt.Stringer for log-friendly key type names.
func (t KeyType) String() string {
	switch t {
	case LocalKeyType:
		return "local"
	case Keccak256KeyType:
		return "keccak256"
	case GlobalGenericKeyType:
		return "global-generic"
	case Sha256KeyType:
		return "sha256"
	case BlobKeyType:
		return "blob"
	case PrecompileKeyType:
		return "precompile"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Key is a 32-byte preimage key: a 1-byte type tag followed by a 31-byte
// type-specific commitment (spec §3, §6).
type Key [32]byte

// Type returns the key's type tag.
func (k Key) Type() KeyType {
	return KeyType(k[0])
}

// Commitment returns the 31 commitment bytes following the type tag.
func (k Key) Commitment() [31]byte {
	var c [31]byte
	copy(c[:], k[1:])
	return c
}

// Hash returns the key reinterpreted as a types.Hash, the representation
// used by the oracle's wire protocol and maps.
func (k Key) Hash() types.Hash {
	return types.Hash(k)
}

// LocalIndexKey builds a Local-type key for the given program-input index,
// matching the convention in spec §6 (indices 1-5 are the boot record).
func LocalIndexKey(index uint64) Key {
	var k Key
	k[0] = byte(LocalKeyType)
	// The index occupies the low 8 bytes of the 31-byte commitment.
	for i := 0; i < 8; i++ {
		k[31-i] = byte(index >> (8 * i))
	}
	return k
}

// Keccak256Key builds a Keccak256-type key from a 32-byte digest, taking the
// low 31 bytes of the digest as the commitment (the top byte is overwritten
// with the type tag, as in the real protocol).
func Keccak256Key(digest types.Hash) Key {
	var k Key
	copy(k[:], digest[:])
	k[0] = byte(Keccak256KeyType)
	return k
}

// Sha256Key builds a Sha256-type key from a 32-byte digest.
func Sha256Key(digest types.Hash) Key {
	var k Key
	copy(k[:], digest[:])
	k[0] = byte(Sha256KeyType)
	return k
}

// BlobKey builds a Blob-type key from the keccak256 hash of the companion
// (commitment, index) encoding, per spec §3.
func BlobKey(digest types.Hash) Key {
	var k Key
	copy(k[:], digest[:])
	k[0] = byte(BlobKeyType)
	return k
}

// PrecompileKey builds a Precompile-type key from the keccak256 hash of the
// companion (address, input) encoding, per spec §3.
func PrecompileKey(digest types.Hash) Key {
	var k Key
	copy(k[:], digest[:])
	k[0] = byte(PrecompileKeyType)
	return k
}
