package mpt

import "github.com/ethereum-optimism/optimism/op-program/client/types"

// Oracle resolves a node commitment to its RLP-encoded preimage. Both the
// caching and in-memory preimage oracles (spec §4.3, §4.4) satisfy this
// through a thin adapter, since the trie engine itself has no notion of key
// types, hints, or wire protocols (spec §9).
type Oracle interface {
	Preimage(commitment types.Hash) ([]byte, error)
}

// Hinter emits advisory hints ahead of a blocking oracle fetch. It is
// optional: a Trie with a nil hinter still works correctly, only without the
// caching oracle's prefetch opportunity.
type Hinter interface {
	Hint(hint string)
}
