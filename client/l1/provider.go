// Package l1 provides oracle-backed access to L1 chain data (spec §4.8
// step 3). Headers, transactions and receipts are checked against the
// hash that was used to fetch them before they are returned. Blob field
// elements are the exception: BlobFieldElement returns the oracle's bytes
// without checking them itself.
package l1

import (
	"encoding/binary"
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ethereum-optimism/optimism/op-program/client/mpt"
	"github.com/ethereum-optimism/optimism/op-program/client/oracle"
	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// Oracle is the L1 data source the derivation pipeline reads from.
type Oracle struct {
	po     oracle.PreimageOracle
	hinter oracle.Hinter
}

// NewOracle wraps a preimage oracle (and its hint sink) as an L1 data source.
func NewOracle(po oracle.PreimageOracle, hinter oracle.Hinter) *Oracle {
	return &Oracle{po: po, hinter: hinter}
}

// HeaderByHash fetches and authenticates an L1 block header.
func (o *Oracle) HeaderByHash(hash types.Hash) (*gethtypes.Header, error) {
	o.hinter.Hint(fmt.Sprintf("%s %s", preimage.HintL1BlockHeader, hash.Hex()))
	data, err := o.po.Get(preimage.Keccak256Key(hash))
	if err != nil {
		return nil, fmt.Errorf("fetch l1 header %s: %w", hash, err)
	}
	var header gethtypes.Header
	if err := rlp.DecodeBytes(data, &header); err != nil {
		return nil, fmt.Errorf("decode l1 header %s: %w", hash, err)
	}
	if types.Hash(header.Hash()) != hash {
		return nil, fmt.Errorf("l1 header hash mismatch: got %s want %s", header.Hash(), hash)
	}
	return &header, nil
}

// TransactionsTrie opens the per-block transactions trie rooted at txRoot
// (a header's TxHash), keyed by rlp(index) per the standard Ethereum
// convention, so individual transactions can be pulled without fetching
// the whole block body.
func (o *Oracle) TransactionsTrie(txRoot types.Hash) *mpt.Trie {
	o.hinter.Hint(fmt.Sprintf("%s %s", preimage.HintL1Transactions, txRoot.Hex()))
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
		return nil, fmt.Errorf("fetch l1 tx %d at root %s: %w", index, txRoot, err)
	}
	return data, nil
}

// ReceiptsTrie opens the per-block receipts trie rooted at receiptsRoot.
func (o *Oracle) ReceiptsTrie(receiptsRoot types.Hash) *mpt.Trie {
	o.hinter.Hint(fmt.Sprintf("%s %s", preimage.HintL1Receipts, receiptsRoot.Hex()))
	return mpt.Open(receiptsRoot, oracle.NodeAdapter{Inner: o.po})
}

// Receipt returns the RLP-encoded receipt at index within the trie rooted
// at receiptsRoot.
func (o *Oracle) Receipt(receiptsRoot types.Hash, index uint64) ([]byte, error) {
	key, err := rlp.EncodeToBytes(index)
	if err != nil {
		return nil, err
	}
	data, err := o.ReceiptsTrie(receiptsRoot).Get(key)
	if err != nil {
		return nil, fmt.Errorf("fetch l1 receipt %d at root %s: %w", index, receiptsRoot, err)
	}
	return data, nil
}

// BlobFieldElement fetches field element index of the blob committed to by
// commitment. The returned bytes are exactly the field element preimage;
// any KZG proof carried alongside it is an implementation detail of the
// backing oracle (verified eagerly by the in-memory oracle, trusted from
// the live host by the caching oracle) and is not this caller's concern.
func (o *Oracle) BlobFieldElement(commitment [48]byte, index uint32) ([]byte, error) {
	o.hinter.Hint(fmt.Sprintf("%s %x", preimage.HintL1Blob, commitment))
	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], index)
	digest := crypto.Keccak256Hash(commitment[:], idxBuf[:])
	data, err := o.po.Get(preimage.BlobKey(types.Hash(digest)))
	if err != nil {
		return nil, fmt.Errorf("fetch blob field element %d of %x: %w", index, commitment, err)
	}
	return data, nil
}
