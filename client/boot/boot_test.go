package boot

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

func localData(chainID uint64, blockNumber uint64, l1Head, agreed, claimed types.Hash) map[preimage.Key][]byte {
	var blockNumBuf, chainIDBuf [8]byte
	binary.BigEndian.PutUint64(blockNumBuf[:], blockNumber)
	binary.BigEndian.PutUint64(chainIDBuf[:], chainID)
	return map[preimage.Key][]byte{
		preimage.LocalIndexKey(preimage.LocalIndexL1Head):               l1Head[:],
		preimage.LocalIndexKey(preimage.LocalIndexAgreedL2OutputRoot):   agreed[:],
		preimage.LocalIndexKey(preimage.LocalIndexClaimedL2OutputRoot):  claimed[:],
		preimage.LocalIndexKey(preimage.LocalIndexClaimedL2BlockNumber): blockNumBuf[:],
		preimage.LocalIndexKey(preimage.LocalIndexL2ChainID):            chainIDBuf[:],
	}
}

func TestLoadHappyPath(t *testing.T) {
	l1Head := types.Hash{0x01}
	agreed := types.Hash{0x02}
	claimed := types.Hash{0x03}
	o := oracle.NewInMemoryOracle(localData(901, 12345, l1Head, agreed, claimed))

	info, err := Load(o)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if info.L1Head != l1Head {
		t.Fatalf("unexpected l1 head: %s", info.L1Head)
	}
	if info.AgreedL2OutputRoot != agreed {
		t.Fatalf("unexpected agreed output root: %s", info.AgreedL2OutputRoot)
	}
	if info.ClaimedL2OutputRoot != claimed {
		t.Fatalf("unexpected claimed output root: %s", info.ClaimedL2OutputRoot)
	}
	if info.ClaimedL2BlockNumber != 12345 {
		t.Fatalf("unexpected claimed block number: %d", info.ClaimedL2BlockNumber)
	}
	if info.L2ChainID != 901 {
		t.Fatalf("unexpected chain id: %d", info.L2ChainID)
	}
	if info.RollupConfig.L1ChainID != 900 {
		t.Fatalf("unexpected derived l1 chain id: %d", info.RollupConfig.L1ChainID)
	}
}

func TestLoadUnknownChainID(t *testing.T) {
	o := oracle.NewInMemoryOracle(localData(999999, 1, types.Hash{}, types.Hash{}, types.Hash{}))
	if _, err := Load(o); err == nil {
		t.Fatalf("expected error for unknown chain id")
	}
}
