// Package l2 provides oracle-backed, hash-authenticated access to L2 chain
// data (spec §4.8 step 3) and the output-root computation the program
// checks its claim against (spec §4.8 step 6).
package l2

import (
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// outputRootVersion0 is the sole output root encoding version this program
// produces; future versions would live in the derivation pipeline, which
// lies outside this core's scope.
var outputRootVersion0 = types.Hash{}

// Oracle is the L2 data source the stateless executor and output-root
// computation read from.
type Oracle struct {
	po     oracle.PreimageOracle
	hinter oracle.Hinter
}

// NewOracle wraps a preimage oracle (and its hint sink) as an L2 data source.
func NewOracle(po oracle.PreimageOracle, hinter oracle.Hinter) *Oracle {
	return &Oracle{po: po, hinter: hinter}
}

// HeaderByHash fetches and authenticates an L2 block header.
func (o *Oracle) HeaderByHash(hash types.Hash) (*gethtypes.Header, error) {
	o.hinter.Hint(fmt.Sprintf("%s %s", preimage.HintL2BlockHeader, hash.Hex()))
	data, err := o.po.Get(preimage.Keccak256Key(hash))
	if err != nil {
		return nil, fmt.Errorf("fetch l2 header %s: %w", hash, err)
	}
	var header gethtypes.Header
	if err := rlp.DecodeBytes(data, &header); err != nil {
		return nil, fmt.Errorf("decode l2 header %s: %w", hash, err)
	}
	if types.Hash(header.Hash()) != hash {
		return nil, fmt.Errorf("l2 header hash mismatch: got %s want %s", header.Hash(), hash)
	}
	return &header, nil
}

// TransactionsTrie opens the per-block transactions trie rooted at txRoot.
func (o *Oracle) TransactionsTrie(txRoot types.Hash) *mpt.Trie {
	o.hinter.Hint(fmt.Sprintf("%s %s", preimage.HintL2Transactions, txRoot.Hex()))
	return mpt.Open(txRoot, oracle.NodeAdapter{Inner: o.po})
}

// Transaction returns the RLP-encoded transaction at index within the trie
// rooted at txRoot.
func (o *Oracle) Transaction(txRoot types.Hash, index uint64) ([]byte, error) {
	key, err := rlp.EncodeToBytes(index)
	if err != nil {
		return nil, err
	}
	data, err := o.TransactionsTrie(txRoot).Get(key)
	if err != nil {
		return nil, fmt.Errorf("fetch l2 tx %d at root %s: %w", index, txRoot, err)
	}
	return data, nil
}

// Code fetches contract code by its keccak256 hash, hinting the host first.
func (o *Oracle) Code(codeHash types.Hash) ([]byte, error) {
	o.hinter.Hint(fmt.Sprintf("%s %s", preimage.HintL2Code, codeHash.Hex()))
	data, err := o.po.Get(preimage.Keccak256Key(codeHash))
	if err != nil {
		return nil, fmt.Errorf("fetch l2 code %s: %w", codeHash, err)
	}
	if types.Hash(crypto.Keccak256Hash(data)) != codeHash {
		return nil, fmt.Errorf("l2 code hash mismatch for %s", codeHash)
	}
	return data, nil
}

// Output is the decomposed form of an output root commitment (spec §5):
// version, L2 state root, L2 withdrawal-message trie root, and L2 block hash.
type Output struct {
	Version          types.Hash
	StateRoot        types.Hash
	WithdrawalsRoot  types.Hash
	BlockHash        types.Hash
}

// FetchOutput resolves an output root commitment to its four constituent
// fields, hinting the host first and checking the commitment holds before
// returning anything to the caller.
func (o *Oracle) FetchOutput(root types.Hash) (*Output, error) {
	o.hinter.Hint(fmt.Sprintf("%s %s", preimage.HintL2Output, root.Hex()))
	data, err := o.po.Get(preimage.Keccak256Key(root))
	if err != nil {
		return nil, fmt.Errorf("fetch output root %s: %w", root, err)
	}
	if len(data) != 128 {
		return nil, fmt.Errorf("unexpected output preimage length %d for %s", len(data), root)
	}
	if types.Hash(crypto.Keccak256Hash(data)) != root {
		return nil, fmt.Errorf("output preimage does not hash to %s", root)
	}
	out := &Output{}
	copy(out.Version[:], data[0:32])
	copy(out.StateRoot[:], data[32:64])
	copy(out.WithdrawalsRoot[:], data[64:96])
	copy(out.BlockHash[:], data[96:128])
	return out, nil
}

// ComputeOutputRoot computes keccak256(version || state_root ||
// withdrawals_root || block_hash), the commitment an L2 executor's result
// is checked against (spec §5).
func ComputeOutputRoot(stateRoot, withdrawalsRoot, blockHash types.Hash) types.Hash {
	buf := make([]byte, 0, 128)
	buf = append(buf, outputRootVersion0[:]...)
	buf = append(buf, stateRoot[:]...)
	buf = append(buf, withdrawalsRoot[:]...)
	buf = append(buf, blockHash[:]...)
	return types.Hash(crypto.Keccak256Hash(buf))
}
