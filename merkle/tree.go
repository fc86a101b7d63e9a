// Package merkle keeps the authenticated tree over every IBC path the
// ledger currently holds and produces ICS-23 proofs against it.
package merkle

import (
	"crypto/sha256"
	"math/bits"

	errorsmod "cosmossdk.io/errors"
	dbm "github.com/cosmos/cosmos-db"

	"github.com/cardano-ibc/gateway/internal/encoding"
	"github.com/cardano-ibc/gateway/types"
)

var (
	leafPrefix  = []byte{0x00}
	innerPrefix = []byte{0x01}
)

// Entry is one IBC path and the bytes committed under it.
type Entry struct {
	Path  string
	Value []byte
}

type node struct {
	hash        []byte
	left, right *node
	// leaf only
	key, value []byte
}

func (n *node) isLeaf() bool { return n.left == nil && n.right == nil }

// Tree is an immutable Merkle tree over entries sorted by path. Leaves and
// inner nodes hash as in the ICS-23 tendermint spec, splitting n leaves at
// the largest power of two below n.
type Tree struct {
	root   *node
	leaves []*node
	index  map[string]int
}

// NewTree builds a tree from entries. Paths must be unique and non-empty.
func NewTree(entries []Entry) (*Tree, error) {
	db := dbm.NewMemDB()
	defer db.Close()

	for _, e := range entries {
		key := []byte(e.Path)
		if len(key) == 0 {
			return nil, errorsmod.Wrap(types.ErrInvalidArgument, "empty merkle path")
		}
		has, err := db.Has(key)
		if err != nil {
			return nil, err
		}
		if has {
			return nil, errorsmod.Wrapf(types.ErrInvalidArgument, "duplicate merkle path %s", e.Path)
		}
		value := e.Value
		if value == nil {
			value = []byte{}
		}
		if err := db.Set(key, value); err != nil {
			return nil, err
		}
	}

	it, err := db.Iterator(nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	t := &Tree{index: make(map[string]int, len(entries))}
	for ; it.Valid(); it.Next() {
		key := append([]byte(nil), it.Key()...)
		value := append([]byte(nil), it.Value()...)
		t.index[string(key)] = len(t.leaves)
		t.leaves = append(t.leaves, &node{key: key, value: value, hash: leafHash(key, value)})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	t.root = build(t.leaves)
	return t, nil
}

func build(leaves []*node) *node {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	}
	k := splitPoint(len(leaves))
	left, right := build(leaves[:k]), build(leaves[k:])
	return &node{hash: innerHash(left.hash, right.hash), left: left, right: right}
}

// splitPoint returns the largest power of two strictly less than n.
func splitPoint(n int) int {
	k := 1 << (bits.Len(uint(n)) - 1)
	if k == n {
		k >>= 1
	}
	return k
}

// Root is the tree hash; the empty tree hashes to sha256 of nothing.
func (t *Tree) Root() []byte {
	if t == nil || t.root == nil {
		sum := sha256.Sum256(nil)
		return sum[:]
	}
	return t.root.hash
}

func (t *Tree) Size() int {
	if t == nil {
		return 0
	}
	return len(t.leaves)
}

func (t *Tree) Get(path string) ([]byte, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[path]
	if !ok {
		return nil, false
	}
	return t.leaves[i].value, true
}

// Entries returns the leaves in path order.
func (t *Tree) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.leaves))
	for _, l := range t.leaves {
		out = append(out, Entry{Path: string(l.key), Value: l.value})
	}
	return out
}

// leafHash is sha256(0x00 || len(key) || key || len(h) || h) with
// h = sha256(value) and uvarint lengths.
func leafHash(key, value []byte) []byte {
	valueHash := sha256.Sum256(value)
	sum := sha256.Sum256(encoding.Concat(leafPrefix, key, valueHash[:]))
	return sum[:]
}

func innerHash(left, right []byte) []byte {
	h := sha256.New()
	h.Write(innerPrefix)
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// Update returns a new tree with the remove paths dropped and upsert
// applied on top. Removing an absent path is a no-op.
func (t *Tree) Update(remove []string, upsert []Entry) (*Tree, error) {
	values := make(map[string][]byte, t.Size()+len(upsert))
	for _, e := range t.Entries() {
		values[e.Path] = e.Value
	}
	for _, p := range remove {
		delete(values, p)
	}
	for _, e := range upsert {
		values[e.Path] = e.Value
	}
	entries := make([]Entry, 0, len(values))
	for p, v := range values {
		entries = append(entries, Entry{Path: p, Value: v})
	}
	return NewTree(entries)
}
