// Package program implements the driver that ties every other client
// package together into one program run (spec §4.8): load the boot
// record, build oracle-backed L1/L2 providers, hand them to a derivation
// pipeline to obtain the blocks to execute, run those blocks against a
// trie-backed state view, compute the resulting output root, and check it
// against the claim. Running the derivation pipeline itself is an explicit
// Non-goal, so Deriver is the seam a real implementation plugs into.
package program

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/optimism/op-program/client/boot"
	"github.com/ethereum-optimism/optimism/op-program/client/l1"
	"github.com/ethereum-optimism/optimism/op-program/client/l2"
	"github.com/ethereum-optimism/optimism/op-program/client/l2exec"
	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/statedb"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// Exit codes returned by Run, distinguishing "ran to completion but the
// claim was wrong" from "could not even finish" (spec §4.8 step 7).
const (
	ExitSuccess       = 0
	ExitClaimMismatch = 1
	ExitInternalError = 2
)

// Deriver turns the boot record and L1 data into the L2 blocks to execute,
// the withdrawals root the resulting output should carry, and the number
// of the produced block (checked against the claim alongside the output
// root). Validating those blocks against L1 batch/derivation rules is
// outside this core (spec Non-goals); Deriver is supplied by whatever
// layer does that.
type Deriver interface {
	DeriveBlocks(l1Oracle *l1.Oracle, l2Oracle *l2.Oracle, info *boot.BootInfo) (blocks []l2exec.Block, finalBlockHash, withdrawalsRoot types.Hash, producedBlockNumber uint64, err error)
}

// Run executes one program instance end to end and returns the process
// exit code it should terminate with.
func Run(po oracle.PreimageOracle, hinter oracle.Hinter, deriver Deriver) int {
	logger := log.New("module", "program")

	info, err := boot.Load(po)
	if err != nil {
		logger.Error("failed to load boot info", "err", err)
		return ExitInternalError
	}
	logger.Info("loaded boot info", "l1Head", info.L1Head, "l2ChainID", info.L2ChainID)

	l1Oracle := l1.NewOracle(po, hinter)
	l2Oracle := l2.NewOracle(po, hinter)

	agreed, err := l2Oracle.FetchOutput(info.AgreedL2OutputRoot)
	if err != nil {
		logger.Error("failed to fetch agreed output", "err", err)
		return ExitInternalError
	}

	blocks, finalBlockHash, withdrawalsRoot, producedBlockNumber, err := deriver.DeriveBlocks(l1Oracle, l2Oracle, info)
	if err != nil {
		logger.Error("derivation failed", "err", err)
		return ExitInternalError
	}
	if producedBlockNumber != info.ClaimedL2BlockNumber {
		logger.Error("claim mismatch", "producedBlockNumber", producedBlockNumber, "claimedBlockNumber", info.ClaimedL2BlockNumber)
		return ExitClaimMismatch
	}

	sdb := statedb.New(agreed.StateRoot, po)
	exec := l2exec.New(sdb)
	for i := range blocks {
		if err := exec.ExecuteBlock(&blocks[i]); err != nil {
			logger.Error("block execution failed", "index", i, "err", err)
			return ExitInternalError
		}
	}

	computed := l2.ComputeOutputRoot(sdb.StateRoot(), withdrawalsRoot, finalBlockHash)
	logger.Info("computed output root", "root", computed, "claim", info.ClaimedL2OutputRoot)

	if computed != info.ClaimedL2OutputRoot {
		logger.Error("claim mismatch", "computed", computed, "claimed", info.ClaimedL2OutputRoot)
		return ExitClaimMismatch
	}
	return ExitSuccess
}

// ErrNoDeriver is returned by NopDeriver when asked to derive blocks,
// standing in for the pipeline this core does not implement.
var ErrNoDeriver = errors.New("program: no derivation pipeline configured")

// NopDeriver always fails; it exists so a caller that genuinely has no
// derivation pipeline wired up gets a clear internal error instead of a nil
// pointer panic.
type NopDeriver struct{}

func (NopDeriver) DeriveBlocks(*l1.Oracle, *l2.Oracle, *boot.BootInfo) ([]l2exec.Block, types.Hash, types.Hash, uint64, error) {
	return nil, types.Hash{}, types.Hash{}, 0, fmt.Errorf("%w", ErrNoDeriver)
}
