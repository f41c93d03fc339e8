package mpt

import (
	"bytes"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// hintL2StateNode is the hint vocabulary entry used to advise a host to
// prefetch a single trie node by its commitment. Kept local to this
// package so mpt has no dependency on client/preimage.
const hintL2StateNode = "l2-state-node"

// Trie is a sparse view over a Merkle-Patricia trie: any subtree not yet
// touched by Get/Insert/Delete may be represented only by a Blinded node,
// and is opened through oracle on first access (spec §4.5). A Trie is not
// safe for concurrent use; the program model is single-threaded
// cooperative suspension at every oracle call (spec §9).
type Trie struct {
	root   *Node
	oracle Oracle
	hinter Hinter
}

// New constructs a Trie rooted at root, resolving unopened subtrees through
// oracle. Passing nil for root starts from the canonical empty trie.
func New(root *Node, oracle Oracle) *Trie {
	if root == nil {
		root = EmptyNode()
	}
	return &Trie{root: root, oracle: oracle}
}

// Open constructs a Trie whose root is initially blinded behind the given
// commitment, the usual entry point when all you have is a claimed state
// root (spec §4.6 callers use this directly).
func Open(rootCommitment types.Hash, oracle Oracle) *Trie {
	if rootCommitment == EmptyRootHash {
		return New(EmptyNode(), oracle)
	}
	return New(BlindedNode(rootCommitment), oracle)
}

// SetHinter attaches a Hinter used to advise the host before blocking opens,
// most importantly before a branch-collapse must inspect an unopened child
// (spec §4.5's single-child collapse case).
func (t *Trie) SetHinter(h Hinter) {
	t.hinter = h
}

// Root returns the current root node (which may itself be Blinded if
// nothing has been accessed yet).
func (t *Trie) Root() *Node {
	return t.root
}

// RootHash returns the trie's commitment, blinding the root if necessary.
func (t *Trie) RootHash() types.Hash {
	return t.root.Blind()
}

// open resolves n to a non-Blinded node, fetching and verifying its
// preimage against the oracle if necessary. The returned node may be the
// same pointer as n (mutated in place so that the parent's reference stays
// valid without a second lookup) or n itself if already open.
func (t *Trie) open(n *Node) (*Node, error) {
	if n == nil {
		return EmptyNode(), nil
	}
	if n.Type != BlindedNodeType {
		return n, nil
	}
	commitment := n.Commitment
	data, err := t.oracle.Preimage(commitment)
	if err != nil {
		return nil, err
	}
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if decoded.Hash() != commitment {
		return nil, ErrCommitmentMismatch
	}
	*n = *decoded
	h := commitment
	n.cache = &h
	return n, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.get(t.root, keyToNibbles(key))
}

func (t *Trie) get(n *Node, path []byte) ([]byte, error) {
	n, err := t.open(n)
	if err != nil {
		return nil, err
	}
	switch n.Type {
	case EmptyNodeType:
		return nil, ErrNotFound
	case LeafNodeType:
		if bytes.Equal(n.Path, path) {
			return n.Value, nil
		}
		return nil, ErrNotFound
	case ExtensionNodeType:
		if len(path) < len(n.Path) || !bytes.Equal(path[:len(n.Path)], n.Path) {
			return nil, ErrNotFound
		}
		return t.get(n.Child, path[len(n.Path):])
	case BranchNodeType:
		if len(path) == 0 {
			if n.Value == nil {
				return nil, ErrNotFound
			}
			return n.Value, nil
		}
		return t.get(n.Children[path[0]], path[1:])
	default:
		return nil, ErrInvalidNode
	}
}

// Insert writes value under key, creating or splitting nodes as needed.
func (t *Trie) Insert(key, value []byte) error {
	newRoot, err := t.insert(t.root, keyToNibbles(key), append([]byte(nil), value...))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) insert(n *Node, path, value []byte) (*Node, error) {
	n, err := t.open(n)
	if err != nil {
		return nil, err
	}
	switch n.Type {
	case EmptyNodeType:
		return LeafNode(path, value), nil
	case LeafNodeType:
		return t.insertIntoLeaf(n, path, value)
	case ExtensionNodeType:
		return t.insertIntoExtension(n, path, value)
	case BranchNodeType:
		return t.insertIntoBranch(n, path, value)
	default:
		return nil, ErrInvalidNode
	}
}

func (t *Trie) insertIntoLeaf(n *Node, path, value []byte) (*Node, error) {
	cp := commonPrefixLength(n.Path, path)
	if cp == len(n.Path) && cp == len(path) {
		return LeafNode(path, value), nil
	}
	branch := BranchNode()
	if cp == len(n.Path) {
		branch.Value = n.Value
	} else {
		branch.Children[n.Path[cp]] = LeafNode(n.Path[cp+1:], n.Value)
	}
	if cp == len(path) {
		branch.Value = value
	} else {
		branch.Children[path[cp]] = LeafNode(path[cp+1:], value)
	}
	if cp == 0 {
		return branch, nil
	}
	return ExtensionNode(path[:cp], branch), nil
}

func (t *Trie) insertIntoExtension(n *Node, path, value []byte) (*Node, error) {
	cp := commonPrefixLength(n.Path, path)
	if cp == len(n.Path) {
		newChild, err := t.insert(n.Child, path[cp:], value)
		if err != nil {
			return nil, err
		}
		return ExtensionNode(n.Path, newChild), nil
	}
	branch := BranchNode()
	if cp == len(n.Path)-1 {
		branch.Children[n.Path[cp]] = n.Child
	} else {
		branch.Children[n.Path[cp]] = ExtensionNode(n.Path[cp+1:], n.Child)
	}
	if cp == len(path) {
		branch.Value = value
	} else {
		branch.Children[path[cp]] = LeafNode(path[cp+1:], value)
	}
	if cp == 0 {
		return branch, nil
	}
	return ExtensionNode(path[:cp], branch), nil
}

func (t *Trie) insertIntoBranch(n *Node, path, value []byte) (*Node, error) {
	newBranch := *n
	newBranch.cache = nil
	if len(path) == 0 {
		newBranch.Value = value
		return &newBranch, nil
	}
	idx := path[0]
	newChild, err := t.insert(n.Children[idx], path[1:], value)
	if err != nil {
		return nil, err
	}
	newBranch.Children[idx] = newChild
	return &newBranch, nil
}

// Delete removes key from the trie, collapsing branches and extensions left
// with a single remaining child per the compaction policy of spec §4.5.
func (t *Trie) Delete(key []byte) error {
	newRoot, err := t.delete(t.root, keyToNibbles(key))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) delete(n *Node, path []byte) (*Node, error) {
	n, err := t.open(n)
	if err != nil {
		return nil, err
	}
	switch n.Type {
	case EmptyNodeType:
		return nil, ErrNotFound
	case LeafNodeType:
		if !bytes.Equal(n.Path, path) {
			return nil, ErrNotFound
		}
		return EmptyNode(), nil
	case ExtensionNodeType:
		if len(path) < len(n.Path) || !bytes.Equal(path[:len(n.Path)], n.Path) {
			return nil, ErrNotFound
		}
		newChild, err := t.delete(n.Child, path[len(n.Path):])
		if err != nil {
			return nil, err
		}
		return t.joinExtension(n.Path, newChild)
	case BranchNodeType:
		return t.deleteFromBranch(n, path)
	default:
		return nil, ErrInvalidNode
	}
}

// joinExtension merges prefix with child, the node left behind after a
// delete collapses whatever used to sit below an extension.
func (t *Trie) joinExtension(prefix []byte, child *Node) (*Node, error) {
	child, err := t.open(child)
	if err != nil {
		return nil, err
	}
	switch child.Type {
	case EmptyNodeType:
		return EmptyNode(), nil
	case LeafNodeType:
		return LeafNode(concatPath(prefix, child.Path), child.Value), nil
	case ExtensionNodeType:
		return ExtensionNode(concatPath(prefix, child.Path), child.Child), nil
	case BranchNodeType:
		if len(prefix) == 0 {
			return child, nil
		}
		return ExtensionNode(prefix, child), nil
	default:
		return nil, ErrInvalidNode
	}
}

func (t *Trie) deleteFromBranch(n *Node, path []byte) (*Node, error) {
	newBranch := *n
	newBranch.cache = nil
	if len(path) == 0 {
		if n.Value == nil {
			return nil, ErrNotFound
		}
		newBranch.Value = nil
	} else {
		idx := path[0]
		if n.Children[idx] == nil {
			return nil, ErrNotFound
		}
		newChild, err := t.delete(n.Children[idx], path[1:])
		if err != nil {
			return nil, err
		}
		if newChild.Type == EmptyNodeType {
			newBranch.Children[idx] = nil
		} else {
			newBranch.Children[idx] = newChild
		}
	}
	return t.compactBranch(&newBranch)
}

// compactBranch collapses a branch left with zero or one live entries after
// a delete, matching the invariant that no branch may be redundant (spec
// I3). A lone remaining child that is still blinded must be opened to learn
// its shape before it can be merged into a Leaf or Extension; a hint is
// issued first so a caching oracle can prefetch it.
func (t *Trie) compactBranch(n *Node) (*Node, error) {
	idx := -1
	count := 0
	for i, c := range n.Children {
		if c != nil {
			count++
			idx = i
		}
	}
	hasValue := n.Value != nil
	switch {
	case count == 0 && !hasValue:
		return EmptyNode(), nil
	case count == 0 && hasValue:
		return LeafNode(nil, n.Value), nil
	case count == 1 && !hasValue:
		child := n.Children[idx]
		if child.Type == BlindedNodeType && t.hinter != nil {
			t.hinter.Hint(fmt.Sprintf("%s %s", hintL2StateNode, child.Commitment.Hex()))
		}
		child, err := t.open(child)
		if err != nil {
			return nil, err
		}
		switch child.Type {
		case LeafNodeType:
			return LeafNode(concatPath([]byte{byte(idx)}, child.Path), child.Value), nil
		case ExtensionNodeType:
			return ExtensionNode(concatPath([]byte{byte(idx)}, child.Path), child.Child), nil
		case BranchNodeType:
			return ExtensionNode([]byte{byte(idx)}, child), nil
		default:
			return nil, ErrInvalidNode
		}
	default:
		return n, nil
	}
}

func concatPath(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
