package mpt

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"strings"
	"testing"

	gethtrie "github.com/ethereum/go-ethereum/trie"

	"github.com/ethereum-optimism/optimism/op-program/client/types"
)

// mapOracle is an in-memory Oracle backed by a plain map, standing in for
// the real preimage oracles in these unit tests.
type mapOracle map[types.Hash][]byte

func (m mapOracle) Preimage(commitment types.Hash) ([]byte, error) {
	data, ok := m[commitment]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// recordingHinter captures every hint issued during a test.
type recordingHinter struct {
	hints []string
}

func (r *recordingHinter) Hint(h string) {
	r.hints = append(r.hints, h)
}

// populateStore walks a fully materialized (unblinded) tree and records
// every node's own encoding under its hash, modelling what a real preimage
// source would hold after the whole trie has been written out.
func populateStore(n *Node, store mapOracle) {
	if n == nil || n.Type == EmptyNodeType {
		return
	}
	store[n.Hash()] = n.Encode()
	switch n.Type {
	case ExtensionNodeType:
		populateStore(n.Child, store)
	case BranchNodeType:
		for _, c := range n.Children {
			populateStore(c, store)
		}
	}
}

func TestEmptyTrieRootHash(t *testing.T) {
	tr := New(nil, mapOracle{})
	if tr.RootHash() != EmptyRootHash {
		t.Fatalf("empty trie root mismatch: got %x want %x", tr.RootHash(), EmptyRootHash)
	}
}

func TestInsertGetOverwriteDelete(t *testing.T) {
	tr := New(nil, mapOracle{})
	entries := map[string]string{
		"do":    "verb",
		"dog":   "puppy",
		"doge":  "coin",
		"horse": "stallion",
	}
	for k, v := range entries {
		if err := tr.Insert([]byte(k), []byte(v)); err != nil {
			t.Fatalf("insert %q: %v", k, err)
		}
	}
	for k, v := range entries {
		got, err := tr.Get([]byte(k))
		if err != nil {
			t.Fatalf("get %q: %v", k, err)
		}
		if string(got) != v {
			t.Fatalf("get %q: got %q want %q", k, got, v)
		}
	}
	if err := tr.Insert([]byte("dog"), []byte("hound")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := tr.Get([]byte("dog"))
	if err != nil || string(got) != "hound" {
		t.Fatalf("overwrite readback: got %q, %v", got, err)
	}
	if err := tr.Delete([]byte("dog")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tr.Get([]byte("dog")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := tr.Get([]byte("doge")); err != nil {
		t.Fatalf("sibling key disturbed by delete: %v", err)
	}
}

func TestDeleteAllCollapsesToEmpty(t *testing.T) {
	tr := New(nil, mapOracle{})
	keys := []string{"aa", "ab", "ac"}
	for _, k := range keys {
		if err := tr.Insert([]byte(k), []byte(k)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	for _, k := range keys {
		if err := tr.Delete([]byte(k)); err != nil {
			t.Fatalf("delete %q: %v", k, err)
		}
	}
	if tr.RootHash() != EmptyRootHash {
		t.Fatalf("trie with all keys removed should be empty, got root %x", tr.RootHash())
	}
}

func TestDeleteMissingKey(t *testing.T) {
	tr := New(nil, mapOracle{})
	if err := tr.Insert([]byte("present"), []byte("v")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tr.Delete([]byte("absent")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tr := New(nil, mapOracle{})
	for _, k := range []string{"alpha", "beta", "gamma", "delta"} {
		if err := tr.Insert([]byte(k), []byte(k+"-value")); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	root := tr.Root()
	encoded := root.Encode()
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Hash() != root.Hash() {
		t.Fatalf("decode(encode(root)) hash mismatch: got %x want %x", decoded.Hash(), root.Hash())
	}
}

func TestBlindIsIdempotent(t *testing.T) {
	tr := New(nil, mapOracle{})
	if err := tr.Insert([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	h1 := tr.Root().Blind()
	h2 := tr.Root().Blind()
	if h1 != h2 {
		t.Fatalf("blind not idempotent: %x != %x", h1, h2)
	}
}

// TestDifferentialAgainstStackTrie inserts the same sorted key/value set
// into this package's Trie and into go-ethereum's canonical StackTrie
// hash-builder, and checks the resulting state roots agree.
func TestDifferentialAgainstStackTrie(t *testing.T) {
	type kv struct{ k, v []byte }
	var pairs []kv
	for i := 0; i < 200; i++ {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(i))
		k := sha256.Sum256(buf[:])
		v := sha256.Sum256(append(buf[:], 0xff))
		pairs = append(pairs, kv{k: k[:], v: v[:]})
	}
	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i].k, pairs[j].k) < 0 })

	ours := New(nil, mapOracle{})
	ref := gethtrie.NewStackTrie(nil)
	for _, p := range pairs {
		if err := ours.Insert(p.k, p.v); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := ref.Update(p.k, p.v); err != nil {
			t.Fatalf("reference update: %v", err)
		}
	}
	ourRoot := ours.RootHash()
	refRoot := ref.Hash()
	if ourRoot != types.Hash(refRoot) {
		t.Fatalf("state root mismatch: ours %x reference %x", ourRoot, refRoot)
	}
}

// TestDifferentialDeleteSubset builds a trie, removes half the keys, and
// checks the surviving root matches a StackTrie built directly from the
// surviving subset (spec §8 scenario 3).
func TestDifferentialDeleteSubset(t *testing.T) {
	type kv struct{ k, v []byte }
	var all []kv
	for i := 0; i < 100; i++ {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(i))
		k := sha256.Sum256(buf[:])
		v := sha256.Sum256(append(buf[:], 0x01))
		all = append(all, kv{k: k[:], v: v[:]})
	}

	ours := New(nil, mapOracle{})
	for _, p := range all {
		if err := ours.Insert(p.k, p.v); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	var survivors []kv
	for i, p := range all {
		if i%2 == 0 {
			if err := ours.Delete(p.k); err != nil {
				t.Fatalf("delete: %v", err)
			}
			continue
		}
		survivors = append(survivors, p)
	}
	sort.Slice(survivors, func(i, j int) bool { return bytes.Compare(survivors[i].k, survivors[j].k) < 0 })

	ref := gethtrie.NewStackTrie(nil)
	for _, p := range survivors {
		if err := ref.Update(p.k, p.v); err != nil {
			t.Fatalf("reference update: %v", err)
		}
	}
	if ours.RootHash() != types.Hash(ref.Hash()) {
		t.Fatalf("post-delete root mismatch: ours %x reference %x", ours.RootHash(), ref.Hash())
	}
}

// TestLazyOpenFromBlindedRoot exercises the oracle-backed open path: a trie
// is built fully in memory, its nodes scattered into an oracle store, and a
// second Trie sees only the root commitment until it walks down to resolve
// a Get.
func TestLazyOpenFromBlindedRoot(t *testing.T) {
	built := New(nil, mapOracle{})
	for _, k := range []string{"apple", "apricot", "banana", "cherry"} {
		if err := built.Insert([]byte(k), []byte(k)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	store := mapOracle{}
	populateStore(built.Root(), store)

	lazy := Open(built.RootHash(), store)
	got, err := lazy.Get([]byte("apricot"))
	if err != nil {
		t.Fatalf("get through blinded root: %v", err)
	}
	if string(got) != "apricot" {
		t.Fatalf("unexpected value: %q", got)
	}
	if lazy.RootHash() != built.RootHash() {
		t.Fatalf("root hash diverged after partial opening: %x != %x", lazy.RootHash(), built.RootHash())
	}
}

// TestCollapseOpensBlindedSibling builds a branch with two leaves, forces
// both children to be blinded commitments backed by an oracle, then deletes
// one leaf so the branch collapses onto the other. The collapse must open
// the surviving blinded child (emitting a hint first) to learn its shape.
func TestCollapseOpensBlindedSibling(t *testing.T) {
	built := New(nil, mapOracle{})
	if err := built.Insert([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), []byte("long-value-one")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := built.Insert([]byte("abbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), []byte("long-value-two")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	store := mapOracle{}
	populateStore(built.Root(), store)

	lazy := Open(built.RootHash(), store)
	hinter := &recordingHinter{}
	lazy.SetHinter(hinter)

	if err := lazy.Delete([]byte("abbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(hinter.hints) != 1 || !strings.HasPrefix(hinter.hints[0], hintL2StateNode+" ") {
		t.Fatalf("expected one %s hint before opening the blinded sibling, got %v", hintL2StateNode, hinter.hints)
	}
	got, err := lazy.Get([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	if err != nil {
		t.Fatalf("get after collapse: %v", err)
	}
	if string(got) != "long-value-one" {
		t.Fatalf("unexpected survivor value: %q", got)
	}

	direct := New(nil, mapOracle{})
	if err := direct.Insert([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), []byte("long-value-one")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if lazy.RootHash() != direct.RootHash() {
		t.Fatalf("collapsed root mismatch: got %x want %x", lazy.RootHash(), direct.RootHash())
	}
}
