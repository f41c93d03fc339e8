// Package statedb adapts the trie engine into the account/storage view an
// EVM executor expects (spec §4.6): the world state trie is keyed by
// keccak256(address) and stores an RLP account record, each account's
// storage is itself a trie keyed by keccak256(slot), and code is resolved
// separately by its hash through the preimage oracle.
package statedb

import (
	"math/big"

	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

var emptyRootHash = mpt.EmptyRootHash

// Account is the canonical Ethereum account record stored in the world
// trie. Field order matters: it is RLP-encoded positionally.
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot types.Hash
	CodeHash    types.Hash
}

// EmptyAccount returns the zero-value account a missing trie entry implies:
// nonce zero, no balance, empty storage trie, no code.
func EmptyAccount() *Account {
	return &Account{
		Nonce:       0,
		Balance:     new(big.Int),
		StorageRoot: emptyRootHash,
		CodeHash:    types.EmptyCodeHash,
	}
}

// IsEmpty reports whether the account is indistinguishable from one that
// was never created (EIP-161's definition of account emptiness).
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 && a.CodeHash == types.EmptyCodeHash
}

// AccountUpdate describes a pending mutation to a single account, collected
// client-side as a block's transactions execute and applied together by
// Commit (spec §4.6).
type AccountUpdate struct {
	Address types.Address
	Deleted bool

	NonceSet   bool
	Nonce      uint64
	BalanceSet bool
	Balance    *big.Int

	// Code, when non-nil, is newly deployed code; CodeHash is derived from
	// it by Commit rather than taken on trust from the caller.
	Code []byte

	// StorageUpdates maps slot to new value; a zero value deletes the slot.
	StorageUpdates map[types.Hash]types.Hash
}

// Changeset is the unit of mutation Commit applies to the trie, one account
// update at a time in order; an error stops Commit partway and leaves the
// earlier updates applied.
type Changeset struct {
	Accounts []AccountUpdate
}
