package statedb

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

func keccak256KeyFor(hash types.Hash) preimage.Key {
	return preimage.Keccak256Key(hash)
}

var ErrUnknownBlockHash = errors.New("statedb: block hash not available")

// TrieStateDB is the trie-backed execution database of spec §4.6: a world
// state trie whose leaves are RLP account records, each fanning out into
// its own per-account storage trie, with code resolved by hash through the
// preimage oracle rather than stored in either trie.
type TrieStateDB struct {
	world  *mpt.Trie
	oracle oracle.PreimageOracle

	storageTries map[types.Address]*mpt.Trie
	codeCache    map[types.Hash][]byte
	blockHashes  map[uint64]types.Hash
}

// New constructs a TrieStateDB rooted at stateRoot, lazily opening
// everything below it through o.
func New(stateRoot types.Hash, o oracle.PreimageOracle) *TrieStateDB {
	return &TrieStateDB{
		world:        mpt.Open(stateRoot, oracle.NodeAdapter{Inner: o}),
		oracle:       o,
		storageTries: make(map[types.Address]*mpt.Trie),
		codeCache:    make(map[types.Hash][]byte),
		blockHashes:  make(map[uint64]types.Hash),
	}
}

// SetBlockHash seeds the BLOCKHASH lookup table with a hash obtained and
// authenticated by the L1/L2 provider layer, outside the trie entirely.
func (s *TrieStateDB) SetBlockHash(number uint64, hash types.Hash) {
	s.blockHashes[number] = hash
}

func addressKey(addr types.Address) []byte {
	h := crypto.Keccak256(addr[:])
	return h
}

func slotKey(slot types.Hash) []byte {
	return crypto.Keccak256(slot[:])
}

// Basic returns the nonce/balance/code-hash/storage-root record for addr,
// or the empty account if it has never been touched. Per spec §4.6, an
// account's code is pre-populated into the code cache here rather than
// waited on until CodeByHash is actually called, so a missing preimage for
// it surfaces immediately as part of loading the account.
func (s *TrieStateDB) Basic(addr types.Address) (*Account, error) {
	data, err := s.world.Get(addressKey(addr))
	if errors.Is(err, mpt.ErrNotFound) {
		return EmptyAccount(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", addr, err)
	}
	var acc Account
	if err := rlp.DecodeBytes(data, &acc); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", addr, err)
	}
	if acc.Balance == nil {
		acc.Balance = new(big.Int)
	}
	if _, err := s.CodeByHash(acc.CodeHash); err != nil {
		return nil, fmt.Errorf("prefetch code for account %s: %w", addr, err)
	}
	return &acc, nil
}

// CodeByHash resolves code by its keccak256 hash through the oracle,
// caching the result for the lifetime of this state view. A miss here is
// fatal (spec §4.6, scenario 4 step iii): code for a known account must
// already be obtainable, never merely absent.
func (s *TrieStateDB) CodeByHash(hash types.Hash) ([]byte, error) {
	if hash == types.EmptyCodeHash {
		return nil, nil
	}
	if code, ok := s.codeCache[hash]; ok {
		return code, nil
	}
	code, err := s.oracle.Get(keccak256KeyFor(hash))
	if err != nil {
		return nil, fmt.Errorf("statedb: code %s unavailable: %w", hash, err)
	}
	if types.Hash(crypto.Keccak256Hash(code)) != hash {
		return nil, fmt.Errorf("statedb: code preimage does not hash to %s", hash)
	}
	s.codeCache[hash] = code
	return code, nil
}

// Storage returns the value stored at slot for addr, or the zero hash if unset.
func (s *TrieStateDB) Storage(addr types.Address, slot types.Hash) (types.Hash, error) {
	acc, err := s.Basic(addr)
	if err != nil {
		return types.Hash{}, err
	}
	trie, err := s.storageTrie(addr, acc.StorageRoot)
	if err != nil {
		return types.Hash{}, err
	}
	data, err := trie.Get(slotKey(slot))
	if errors.Is(err, mpt.ErrNotFound) {
		return types.Hash{}, nil
	}
	if err != nil {
		return types.Hash{}, fmt.Errorf("load storage %s/%s: %w", addr, slot, err)
	}
	// Storage leaves are RLP big integers (spec §4.6): minimal big-endian
	// bytes, not a fixed 32-byte string, matching a real secure trie.
	var raw []byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return types.Hash{}, fmt.Errorf("decode storage value %s/%s: %w", addr, slot, err)
	}
	return bigIntToHash(types.BytesToBigInt(raw)), nil
}

// bigIntToHash left-pads n's minimal big-endian bytes into a 32-byte hash,
// the inverse of treating a storage slot's value as a uint256.
func bigIntToHash(n *big.Int) types.Hash {
	var h types.Hash
	n.FillBytes(h[:])
	return h
}

// BlockHash returns a previously-seeded block hash for number.
func (s *TrieStateDB) BlockHash(number uint64) (types.Hash, error) {
	h, ok := s.blockHashes[number]
	if !ok {
		return types.Hash{}, fmt.Errorf("%w: block %d", ErrUnknownBlockHash, number)
	}
	return h, nil
}

// StateRoot returns the current world trie commitment.
func (s *TrieStateDB) StateRoot() types.Hash {
	return s.world.RootHash()
}

// Commit applies cs to the world and per-account storage tries, recomputing
// every touched storage root and account record (spec §4.6). Each touched
// account is loaded through Basic, so Commit reads trie nodes and existing
// code through the oracle; newly deployed code in an update is hashed
// locally and never fetched.
func (s *TrieStateDB) Commit(cs Changeset) error {
	for _, upd := range cs.Accounts {
		if upd.Deleted {
			if err := s.world.Delete(addressKey(upd.Address)); err != nil && !errors.Is(err, mpt.ErrNotFound) {
				return fmt.Errorf("delete account %s: %w", upd.Address, err)
			}
			delete(s.storageTries, upd.Address)
			continue
		}
		acc, err := s.Basic(upd.Address)
		if err != nil {
			return err
		}
		if upd.NonceSet {
			acc.Nonce = upd.Nonce
		}
		if upd.BalanceSet {
			acc.Balance = upd.Balance
		}
		if upd.Code != nil {
			acc.CodeHash = types.Hash(crypto.Keccak256Hash(upd.Code))
			s.codeCache[acc.CodeHash] = upd.Code
		}
		if len(upd.StorageUpdates) > 0 {
			trie, err := s.storageTrie(upd.Address, acc.StorageRoot)
			if err != nil {
				return err
			}
			for slot, value := range upd.StorageUpdates {
				if value == (types.Hash{}) {
					if err := trie.Delete(slotKey(slot)); err != nil && !errors.Is(err, mpt.ErrNotFound) {
						return fmt.Errorf("delete storage %s/%s: %w", upd.Address, slot, err)
					}
					continue
				}
				raw := types.BigIntToBytes(new(big.Int).SetBytes(value[:]))
				enc, err := rlp.EncodeToBytes(raw)
				if err != nil {
					return fmt.Errorf("encode storage value %s/%s: %w", upd.Address, slot, err)
				}
				if err := trie.Insert(slotKey(slot), enc); err != nil {
					return fmt.Errorf("insert storage %s/%s: %w", upd.Address, slot, err)
				}
			}
			acc.StorageRoot = trie.RootHash()
		}
		enc, err := rlp.EncodeToBytes(acc)
		if err != nil {
			return fmt.Errorf("encode account %s: %w", upd.Address, err)
		}
		if err := s.world.Insert(addressKey(upd.Address), enc); err != nil {
			return fmt.Errorf("insert account %s: %w", upd.Address, err)
		}
	}
	return nil
}

func (s *TrieStateDB) storageTrie(addr types.Address, root types.Hash) (*mpt.Trie, error) {
	if trie, ok := s.storageTries[addr]; ok {
		return trie, nil
	}
	trie := mpt.Open(root, oracle.NodeAdapter{Inner: s.oracle})
	s.storageTries[addr] = trie
	return trie, nil
}
