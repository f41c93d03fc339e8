package statedb

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

func TestAccountLifecycle(t *testing.T) {
	code := []byte{0x60, 0x00, 0x60, 0x00, 0xf3}
	codeHash := types.Hash(crypto.Keccak256Hash(code))
	backing := oracle.NewInMemoryOracle(map[preimage.Key][]byte{
		preimage.Keccak256Key(codeHash): code,
	})

	addr := types.Address{0x01, 0x02, 0x03}
	sdb := New(mpt.EmptyRootHash, backing)

	before, err := sdb.Basic(addr)
	if err != nil {
		t.Fatalf("basic before create: %v", err)
	}
	if !before.IsEmpty() {
		t.Fatalf("expected untouched account to be empty")
	}

	slot := types.Hash{0x01}
	value := types.Hash{0x02, 0x03}
	err = sdb.Commit(Changeset{Accounts: []AccountUpdate{{
		Address:    addr,
		NonceSet:   true,
		Nonce:      7,
		BalanceSet: true,
		Balance:    big.NewInt(1_000_000),
		Code:       code,
		StorageUpdates: map[types.Hash]types.Hash{
			slot: value,
		},
	}}})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	acc, err := sdb.Basic(addr)
	if err != nil {
		t.Fatalf("basic after create: %v", err)
	}
	if acc.Nonce != 7 {
		t.Fatalf("unexpected nonce: %d", acc.Nonce)
	}
	if acc.Balance.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("unexpected balance: %s", acc.Balance)
	}
	if acc.CodeHash != codeHash {
		t.Fatalf("unexpected code hash: %s", acc.CodeHash)
	}

	gotCode, err := sdb.CodeByHash(acc.CodeHash)
	if err != nil {
		t.Fatalf("code by hash: %v", err)
	}
	if string(gotCode) != string(code) {
		t.Fatalf("unexpected code: %x", gotCode)
	}

	gotValue, err := sdb.Storage(addr, slot)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	if gotValue != value {
		t.Fatalf("unexpected storage value: %s", gotValue)
	}

	if sdb.StateRoot() == mpt.EmptyRootHash {
		t.Fatalf("state root should change after a commit")
	}
}

func TestDeleteAccount(t *testing.T) {
	sdb := New(mpt.EmptyRootHash, oracle.NewInMemoryOracle(nil))
	addr := types.Address{0xaa}
	if err := sdb.Commit(Changeset{Accounts: []AccountUpdate{{
		Address: addr, NonceSet: true, Nonce: 1, BalanceSet: true, Balance: big.NewInt(1),
	}}}); err != nil {
		t.Fatalf("commit create: %v", err)
	}
	if err := sdb.Commit(Changeset{Accounts: []AccountUpdate{{Address: addr, Deleted: true}}}); err != nil {
		t.Fatalf("commit delete: %v", err)
	}
	acc, err := sdb.Basic(addr)
	if err != nil {
		t.Fatalf("basic: %v", err)
	}
	if !acc.IsEmpty() {
		t.Fatalf("expected deleted account to read back empty")
	}
	if sdb.StateRoot() != mpt.EmptyRootHash {
		t.Fatalf("expected trie with sole account deleted to be empty")
	}
}

func TestUnknownBlockHash(t *testing.T) {
	sdb := New(mpt.EmptyRootHash, oracle.NewInMemoryOracle(nil))
	if _, err := sdb.BlockHash(100); err == nil {
		t.Fatalf("expected error for unseeded block hash")
	}
	sdb.SetBlockHash(100, types.Hash{0x42})
	got, err := sdb.BlockHash(100)
	if err != nil {
		t.Fatalf("block hash: %v", err)
	}
	if got != (types.Hash{0x42}) {
		t.Fatalf("unexpected block hash: %s", got)
	}
}
