// Package boot materializes a program run's inputs from the oracle's
// local-keyed indices (spec §4.7): the L1 head to derive from, the agreed
// and claimed L2 output roots, the claimed L2 block number, and the L2
// chain id, from which a rollup configuration is looked up.
package boot

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// ErrUnknownChainID is returned when the L2 chain id local input does not
// match any registered rollup configuration.
var ErrUnknownChainID = fmt.Errorf("boot: unknown L2 chain id")

// RollupConfig holds the small amount of chain configuration the program
// needs to interpret the derivation pipeline's output, looked up by chain
// id rather than trusted as a raw program input (spec §4.7's Non-goal on
// accepting an unauthenticated config wholesale).
type RollupConfig struct {
	L2ChainID     uint64
	L1ChainID     uint64
	GenesisTime   uint64
	BlockTimeSecs uint64
}

// registry is the set of chains this build knows how to derive for. A real
// deployment would compile in every supported chain's config; the set here
// is intentionally small.
var registry = map[uint64]RollupConfig{
	10: {L2ChainID: 10, L1ChainID: 1, GenesisTime: 1686068903, BlockTimeSecs: 2},
	// chainID used by local/dev environments throughout this repo's tests.
	901: {L2ChainID: 901, L1ChainID: 900, GenesisTime: 0, BlockTimeSecs: 2},
}

// Lookup returns the rollup configuration registered for chainID.
func Lookup(chainID uint64) (RollupConfig, error) {
	cfg, ok := registry[chainID]
	if !ok {
		return RollupConfig{}, fmt.Errorf("%w: %d", ErrUnknownChainID, chainID)
	}
	return cfg, nil
}

// BootInfo is the immutable record derived from the program's local inputs,
// from which the rest of the program run is driven (spec §4.8 step 2).
type BootInfo struct {
	L1Head               types.Hash
	AgreedL2OutputRoot    types.Hash
	ClaimedL2OutputRoot   types.Hash
	ClaimedL2BlockNumber  uint64
	L2ChainID             uint64
	RollupConfig          RollupConfig
}

// Load reads local indices 1 through 5 from o and derives the rollup
// configuration for the L2 chain id found there.
func Load(o oracle.PreimageOracle) (*BootInfo, error) {
	var l1Head types.Hash
	if err := o.GetExact(preimage.LocalIndexKey(preimage.LocalIndexL1Head), l1Head[:]); err != nil {
		return nil, fmt.Errorf("read l1 head: %w", err)
	}
	var agreed types.Hash
	if err := o.GetExact(preimage.LocalIndexKey(preimage.LocalIndexAgreedL2OutputRoot), agreed[:]); err != nil {
		return nil, fmt.Errorf("read agreed l2 output root: %w", err)
	}
	var claimed types.Hash
	if err := o.GetExact(preimage.LocalIndexKey(preimage.LocalIndexClaimedL2OutputRoot), claimed[:]); err != nil {
		return nil, fmt.Errorf("read claimed l2 output root: %w", err)
	}
	var blockNumBuf [8]byte
	if err := o.GetExact(preimage.LocalIndexKey(preimage.LocalIndexClaimedL2BlockNumber), blockNumBuf[:]); err != nil {
		return nil, fmt.Errorf("read claimed l2 block number: %w", err)
	}
	var chainIDBuf [8]byte
	if err := o.GetExact(preimage.LocalIndexKey(preimage.LocalIndexL2ChainID), chainIDBuf[:]); err != nil {
		return nil, fmt.Errorf("read l2 chain id: %w", err)
	}
	chainID := binary.BigEndian.Uint64(chainIDBuf[:])
	cfg, err := Lookup(chainID)
	if err != nil {
		return nil, err
	}
	return &BootInfo{
		L1Head:               l1Head,
		AgreedL2OutputRoot:   agreed,
		ClaimedL2OutputRoot:  claimed,
		ClaimedL2BlockNumber: binary.BigEndian.Uint64(blockNumBuf[:]),
		L2ChainID:            chainID,
		RollupConfig:         cfg,
	}, nil
}
