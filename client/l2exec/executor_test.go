package l2exec

import (
	"math/big"
	"testing"

	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/statedb"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

func newFundedState(t *testing.T, addr types.Address, balance int64) *statedb.TrieStateDB {
	t.Helper()
	sdb := statedb.New(mpt.EmptyRootHash, oracle.NewInMemoryOracle(nil))
	err := sdb.Commit(statedb.Changeset{Accounts: []statedb.AccountUpdate{{
		Address: addr, BalanceSet: true, Balance: big.NewInt(balance),
	}}})
	if err != nil {
		t.Fatalf("fund account: %v", err)
	}
	return sdb
}

func TestExecuteBlockTransfersValue(t *testing.T) {
	alice := types.Address{0x01}
	bob := types.Address{0x02}
	sdb := newFundedState(t, alice, 1_000_000)

	exec := New(sdb)
	err := exec.ExecuteBlock(&Block{Transactions: []Transaction{{
		From: alice, To: bob, Value: big.NewInt(100), Nonce: 0,
		GasLimit: 21000, GasPrice: big.NewInt(1),
	}}})
	if err != nil {
		t.Fatalf("execute block: %v", err)
	}

	aliceAcc, err := sdb.Basic(alice)
	if err != nil {
		t.Fatalf("load alice: %v", err)
	}
	if aliceAcc.Nonce != 1 {
		t.Fatalf("unexpected alice nonce: %d", aliceAcc.Nonce)
	}
	if aliceAcc.Balance.Cmp(big.NewInt(1_000_000 - 100 - 21000)) != 0 {
		t.Fatalf("unexpected alice balance: %s", aliceAcc.Balance)
	}
	bobAcc, err := sdb.Basic(bob)
	if err != nil {
		t.Fatalf("load bob: %v", err)
	}
	if bobAcc.Balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected bob balance: %s", bobAcc.Balance)
	}
}

func TestExecuteBlockRejectsNonceMismatch(t *testing.T) {
	alice := types.Address{0x01}
	bob := types.Address{0x02}
	sdb := newFundedState(t, alice, 1_000_000)
	exec := New(sdb)
	err := exec.ExecuteBlock(&Block{Transactions: []Transaction{{
		From: alice, To: bob, Value: big.NewInt(1), Nonce: 5,
		GasLimit: 21000, GasPrice: big.NewInt(1),
	}}})
	if err == nil {
		t.Fatalf("expected nonce mismatch error")
	}
}

func TestExecuteBlockRejectsInsufficientBalance(t *testing.T) {
	alice := types.Address{0x01}
	bob := types.Address{0x02}
	sdb := newFundedState(t, alice, 100)
	exec := New(sdb)
	err := exec.ExecuteBlock(&Block{Transactions: []Transaction{{
		From: alice, To: bob, Value: big.NewInt(1000), Nonce: 0,
		GasLimit: 21000, GasPrice: big.NewInt(1),
	}}})
	if err == nil {
		t.Fatalf("expected insufficient balance error")
	}
}
