// Package l2exec adapts the trie-backed account/storage view into the
// shape a stateless L2 block executor needs (spec §4.8 step 5). Full EVM
// opcode semantics are an explicit Non-goal; this package implements the
// account-level bookkeeping around a transaction (nonce check, balance
// transfer, fee deduction) that any executor backend performs regardless
// of what its opcode interpreter looks like, and is the integration point
// a real interpreter would be slotted into.
package l2exec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum-optimism/optimism/op-program/client/statedb"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

var (
	ErrNonceMismatch       = errors.New("l2exec: transaction nonce does not match account nonce")
	ErrInsufficientBalance = errors.New("l2exec: sender balance insufficient for value and fee")
)

// Transaction is the minimal transaction shape this executor needs; a real
// integration would carry calldata through to an interpreter instead of
// ignoring it as this stand-in does.
type Transaction struct {
	From     types.Address
	To       types.Address
	Value    *big.Int
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	Data     []byte
}

// Block is the minimal sequence of transactions this executor applies in order.
type Block struct {
	Transactions []Transaction
}

// Executor applies a block's transactions to a TrieStateDB, producing the
// account-level side effects that follow from any EVM execution regardless
// of opcode semantics: nonce increment, fee and value transfer.
type Executor struct {
	state *statedb.TrieStateDB
}

// New wraps a TrieStateDB as an Executor.
func New(state *statedb.TrieStateDB) *Executor {
	return &Executor{state: state}
}

// ExecuteBlock applies every transaction in block in order, committing each
// one's effects before moving to the next so that a later transaction in
// the same block observes the earlier one's state.
func (e *Executor) ExecuteBlock(block *Block) error {
	for i, tx := range block.Transactions {
		if err := e.executeTransaction(tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

func (e *Executor) executeTransaction(tx Transaction) error {
	sender, err := e.state.Basic(tx.From)
	if err != nil {
		return fmt.Errorf("load sender %s: %w", tx.From, err)
	}
	if sender.Nonce != tx.Nonce {
		return fmt.Errorf("%w: account nonce %d, tx nonce %d", ErrNonceMismatch, sender.Nonce, tx.Nonce)
	}
	fee := new(big.Int).Mul(tx.GasPrice, new(big.Int).SetUint64(tx.GasLimit))
	cost := new(big.Int).Add(tx.Value, fee)
	if sender.Balance.Cmp(cost) < 0 {
		return fmt.Errorf("%w: balance %s, cost %s", ErrInsufficientBalance, sender.Balance, cost)
	}
	recipient, err := e.state.Basic(tx.To)
	if err != nil {
		return fmt.Errorf("load recipient %s: %w", tx.To, err)
	}
	newSenderBalance := new(big.Int).Sub(sender.Balance, cost)
	newRecipientBalance := new(big.Int).Add(recipient.Balance, tx.Value)

	return e.state.Commit(statedb.Changeset{Accounts: []statedb.AccountUpdate{
		{
			Address:    tx.From,
			NonceSet:   true,
			Nonce:      tx.Nonce + 1,
			BalanceSet: true,
			Balance:    newSenderBalance,
		},
		{
			Address:    tx.To,
			BalanceSet: true,
			Balance:    newRecipientBalance,
		},
	}})
}
