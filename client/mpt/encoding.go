package mpt

import "fmt"

// hexToCompact packs a nibble path into the standard hex-prefix encoding
// used by Leaf and Extension nodes (spec §4.5): the high nibble of the first
// byte is 0 for an extension or 2 for a leaf, plus 1 if there are an odd
// number of nibbles, so the terminator/oddness bits and the possible stray
// nibble share the first byte.
func hexToCompact(path []byte, isLeaf bool) []byte {
	terminator := byte(0)
	if isLeaf {
		terminator = 2
	}
	oddLen := len(path) % 2
	buf := make([]byte, len(path)/2+1)
	buf[0] = (terminator + byte(oddLen)) << 4
	if oddLen == 1 {
		buf[0] |= path[0]
		path = path[1:]
	}
	for i := 0; i < len(path); i += 2 {
		buf[i/2+1] = path[i]<<4 | path[i+1]
	}
	return buf
}

// compactToHex is the inverse of hexToCompact, also reporting whether the
// high nibble marked the node as a Leaf (spec §4.5: 0/1 = extension, 2/3 =
// leaf; 0/2 = even length, 1/3 = odd length).
func compactToHex(compact []byte) (path []byte, isLeaf bool, err error) {
	if len(compact) == 0 {
		return nil, false, fmt.Errorf("%w: empty compact path", ErrDecode)
	}
	flag := compact[0] >> 4
	switch flag {
	case 0, 1:
		isLeaf = false
	case 2, 3:
		isLeaf = true
	default:
		return nil, false, fmt.Errorf("%w: invalid compact path prefix nibble %d", ErrDecode, flag)
	}
	odd := flag&1 == 1
	nibbles := make([]byte, 0, 2*len(compact))
	if odd {
		nibbles = append(nibbles, compact[0]&0x0f)
	}
	for _, b := range compact[1:] {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles, isLeaf, nil
}

// keyToNibbles expands a byte key into its nibble representation, the unit
// every trie path operation works in.
func keyToNibbles(key []byte) []byte {
	nibbles := make([]byte, 2*len(key))
	for i, b := range key {
		nibbles[2*i] = b >> 4
		nibbles[2*i+1] = b & 0x0f
	}
	return nibbles
}

// commonPrefixLength returns the length of the longest shared prefix of a and b.
func commonPrefixLength(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
