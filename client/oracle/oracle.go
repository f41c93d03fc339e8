// Package oracle implements the two preimage oracle backends of spec §4.3
// and §4.4: a caching online fetcher used against a live host process, and
// a frozen in-memory store used inside the zk circuit where every preimage
// must already be resident and self-verifying.
package oracle

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// PreimageOracle is the key-indexed interface every client package above
// this layer depends on, deliberately smaller than preimage.OracleClient:
// callers never see the wire protocol, only Get/GetExact (spec §9).
type PreimageOracle interface {
	Get(key preimage.Key) ([]byte, error)
	GetExact(key preimage.Key, dest []byte) error
}

// Hinter is satisfied by both oracle backends; the in-memory oracle's Hint
// is a no-op since everything it might hint about is already resident.
type Hinter interface {
	Hint(hint string)
}

var (
	// ErrRejectedKeyType is returned by the in-memory oracle's Verify pass
	// for a GlobalGeneric key (spec §3) or a key with an unknown type tag.
	ErrRejectedKeyType = errors.New("oracle: rejected key type")
	// ErrVerificationFailed is returned by the in-memory oracle's whole-table
	// pass when a stored preimage does not satisfy its key's hash relation.
	ErrVerificationFailed = errors.New("oracle: preimage failed verification")
)

// NodeAdapter exposes a PreimageOracle as an mpt.Oracle, since trie node
// preimages are addressed by their Keccak256 commitment (spec §4.5, §4.6).
type NodeAdapter struct {
	Inner PreimageOracle
}

// Preimage implements mpt.Oracle.
func (a NodeAdapter) Preimage(commitment types.Hash) ([]byte, error) {
	data, err := a.Inner.Get(preimage.Keccak256Key(commitment))
	if err != nil {
		return nil, fmt.Errorf("resolve trie node %x: %w", commitment, err)
	}
	return data, nil
}
