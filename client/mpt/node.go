// Package mpt implements the sparse Merkle-Patricia Trie engine described in
// spec §4.5: a sum-type node whose unopened subtrees are represented only by
// their 32-byte commitment, opened lazily through a preimage oracle.
package mpt

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// NodeType distinguishes the five node variants of spec §3.
type NodeType uint8

const (
	EmptyNodeType NodeType = iota
	BlindedNodeType
	LeafNodeType
	ExtensionNodeType
	BranchNodeType
)

// branchWidth is 16 child slots plus one value slot, matching the 17-item
// branch list of spec §3.
const branchWidth = 17

// Node is the tagged union at the heart of the trie engine. Only the fields
// relevant to Type are meaningful; a deep-dispatch switch on Type appears in
// every operation rather than a shared virtual-dispatch interface, since the
// variants do not share a uniform child shape (spec §9).
type Node struct {
	Type NodeType

	// Leaf, Extension: path nibbles remaining below this node.
	Path []byte
	// Leaf: the stored value.
	Value []byte
	// Extension: the single child.
	Child *Node
	// Branch: up to 16 indexed children plus an optional value in Value.
	Children [16]*Node

	// Blinded: the commitment standing in for an unopened subtree.
	Commitment types.Hash

	// cached hash/commitment computed by Blind; invalidated by any mutation.
	cache *types.Hash
}

// EmptyNode returns the canonical empty node (spec I2).
func EmptyNode() *Node { return &Node{Type: EmptyNodeType} }

// BlindedNode returns a node standing in for an unopened subtree committed
// to by commitment.
func BlindedNode(commitment types.Hash) *Node {
	return &Node{Type: BlindedNodeType, Commitment: commitment}
}

// LeafNode returns a terminal entry node.
func LeafNode(path, value []byte) *Node {
	return &Node{Type: LeafNodeType, Path: append([]byte(nil), path...), Value: append([]byte(nil), value...)}
}

// ExtensionNode returns a single-child pointer node.
func ExtensionNode(path []byte, child *Node) *Node {
	return &Node{Type: ExtensionNodeType, Path: append([]byte(nil), path...), Child: child}
}

// BranchNode returns an empty branch with no children and no value.
func BranchNode() *Node {
	return &Node{Type: BranchNodeType}
}

// invalidate drops the cached commitment, forcing recomputation on the next Blind.
func (n *Node) invalidate() {
	n.cache = nil
}

// Errors returned by the trie engine (spec §7).
var (
	ErrNotFound           = errors.New("mpt: key not found")
	ErrInvalidNode        = errors.New("mpt: invalid node type")
	ErrDecode             = errors.New("mpt: rlp decode error")
	ErrBlindedNodeNeeded  = errors.New("mpt: blinded node requires opening")
	ErrCommitmentMismatch = errors.New("mpt: opened node does not match commitment")
)

// EmptyRootHash is the hash of the canonical empty trie: keccak256(rlp("")).
var EmptyRootHash = types.Hash(crypto.Keccak256Hash(rlpEmptyString))

var rlpEmptyString = []byte{0x80}

// Hash returns the node's commitment, computing and caching it if
// necessary; Blind is a thin wrapper around it. For a Blinded node this is simply its stored commitment.
func (n *Node) Hash() types.Hash {
	if n == nil || n.Type == EmptyNodeType {
		return EmptyRootHash
	}
	if n.Type == BlindedNodeType {
		return n.Commitment
	}
	if n.cache != nil {
		return *n.cache
	}
	h := types.Hash(crypto.Keccak256Hash(n.encode()))
	n.cache = &h
	return h
}

// Blind recomputes the node's commitment by RLP-encoding it with every
// over-31-byte child replaced by its own commitment (spec §4.5). Blinding is
// idempotent: calling it again on an already-blinded subtree is a no-op,
// since child commitments are cached hashes, not re-derived each time.
func (n *Node) Blind() types.Hash {
	return n.Hash()
}

// childRef returns the RLP value used to reference child from its parent:
// the child's own encoding if it is short enough to embed (<32 bytes),
// otherwise its 32-byte commitment (spec I1).
func childRef(child *Node) []byte {
	if child == nil || child.Type == EmptyNodeType {
		return rlpEmptyString
	}
	if child.Type == BlindedNodeType {
		return encodeHashString(child.Commitment)
	}
	enc := child.encode()
	if len(enc) < 32 {
		// Embed verbatim: enc is already valid RLP for this child.
		return enc
	}
	h := child.Hash()
	return encodeHashString(h)
}

func encodeHashString(h types.Hash) []byte {
	b, err := rlp.EncodeToBytes(h[:])
	if err != nil {
		panic(fmt.Sprintf("mpt: unreachable rlp encode error: %v", err))
	}
	return b
}

// encode returns the canonical RLP encoding of n (spec §4.5 decode/encode).
func (n *Node) encode() []byte {
	switch n.Type {
	case EmptyNodeType:
		return rlpEmptyString
	case BlindedNodeType:
		return encodeHashString(n.Commitment)
	case LeafNodeType:
		b, err := rlp.EncodeToBytes([][]byte{hexToCompact(n.Path, true), n.Value})
		if err != nil {
			panic(fmt.Sprintf("mpt: unreachable rlp encode error: %v", err))
		}
		return b
	case ExtensionNodeType:
		items := []interface{}{
			hexToCompact(n.Path, false),
			rlp.RawValue(childRef(n.Child)),
		}
		b, err := rlp.EncodeToBytes(items)
		if err != nil {
			panic(fmt.Sprintf("mpt: unreachable rlp encode error: %v", err))
		}
		return b
	case BranchNodeType:
		items := make([]interface{}, branchWidth)
		for i := 0; i < 16; i++ {
			items[i] = rlp.RawValue(childRef(n.Children[i]))
		}
		if n.Value != nil {
			items[16] = n.Value
		} else {
			items[16] = []byte{}
		}
		b, err := rlp.EncodeToBytes(items)
		if err != nil {
			panic(fmt.Sprintf("mpt: unreachable rlp encode error: %v", err))
		}
		return b
	default:
		panic("mpt: encode of invalid node type")
	}
}

// Encode is the exported form of encode, used by the oracle-backed layers
// that need to store a node's own preimage.
func (n *Node) Encode() []byte {
	return n.encode()
}

// Decode parses the canonical RLP encoding of a single node (spec §4.5):
// the single empty-string byte decodes to Empty, a 33-byte RLP string of 32
// bytes to Blinded, a 17-item list to Branch, and a 2-item list to Leaf or
// Extension depending on the high nibble of the compact-encoded path.
func Decode(data []byte) (*Node, error) {
	kind, content, rest, err := rlp.Split(data)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch kind {
	case rlp.String:
		if len(content) == 0 {
			return EmptyNode(), nil
		}
		if len(content) == 32 {
			return BlindedNode(types.Hash(content)), nil
		}
		return nil, fmt.Errorf("%w: unexpected string length %d", ErrDecode, len(content))
	case rlp.List:
		items, err := splitList(content)
		if err != nil {
			return nil, err
		}
		switch len(items) {
		case branchWidth:
			branch := BranchNode()
			for i := 0; i < 16; i++ {
				child, err := decodeChildRef(items[i])
				if err != nil {
					return nil, err
				}
				branch.Children[i] = child
			}
			_, valContent, _, err := rlp.Split(items[16])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecode, err)
			}
			if len(valContent) > 0 {
				branch.Value = append([]byte(nil), valContent...)
			}
			return branch, nil
		case 2:
			path, isLeaf, err := compactToHex(items[0])
			if err != nil {
				return nil, err
			}
			if isLeaf {
				_, val, _, err := rlp.Split(items[1])
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrDecode, err)
				}
				return LeafNode(path, val), nil
			}
			child, err := decodeChildRef(items[1])
			if err != nil {
				return nil, err
			}
			return ExtensionNode(path, child), nil
		default:
			return nil, fmt.Errorf("%w: unexpected list length %d", ErrDecode, len(items))
		}
	default:
		return nil, ErrDecode
	}
}

// decodeChildRef decodes a child reference embedded in a parent's RLP: a
// 32-byte string is a Blinded node, the empty string is Empty, anything else
// is a fully embedded sub-node.
func decodeChildRef(raw []byte) (*Node, error) {
	kind, content, rest, err := rlp.Split(raw)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if kind == rlp.String {
		if len(content) == 0 {
			// No child in this slot; the in-memory convention is a nil
			// pointer here, not an explicit Empty node (spec I3's branch
			// compaction logic counts live children by nil-ness).
			return nil, nil
		}
		if len(content) == 32 {
			return BlindedNode(types.Hash(content)), nil
		}
		return nil, fmt.Errorf("%w: unexpected embedded string length %d", ErrDecode, len(content))
	}
	return Decode(raw)
}

// splitList splits the content of an RLP list into its top-level item encodings.
func splitList(content []byte) ([][]byte, error) {
	var items [][]byte
	for len(content) > 0 {
		_, _, rest, err := rlp.Split(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		itemLen := len(content) - len(rest)
		items = append(items, content[:itemLen])
		content = rest
	}
	return items, nil
}
