package merkle

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/gogoproto/proto"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	ics23 "github.com/cosmos/ics23/go"

	"github.com/cardano-ibc/gateway/types"
)

// Spec is the proof spec every proof produced here verifies under.
var Spec = ics23.TendermintSpec

// ExistenceProof walks from the leaf at path up to the root.
func (t *Tree) ExistenceProof(path string) (*ics23.ExistenceProof, error) {
	if t == nil || t.root == nil {
		return nil, errorsmod.Wrapf(types.ErrProofGeneration, "cannot prove %s: tree is empty", path)
	}
	i, ok := t.index[path]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrProofGeneration, "path %s is not in the tree", path)
	}
	return t.existenceProof(i), nil
}

func (t *Tree) existenceProof(i int) *ics23.ExistenceProof {
	leaf := t.leaves[i]
	return &ics23.ExistenceProof{
		Key:   leaf.key,
		Value: leaf.value,
		Leaf:  convertLeafOp(),
		Path:  convertInnerOps(t.root, len(t.leaves), i),
	}
}

// NonExistenceProof proves path is absent by proving its neighbours.
func (t *Tree) NonExistenceProof(path string) (*ics23.NonExistenceProof, error) {
	if _, ok := t.Get(path); ok {
		return nil, errorsmod.Wrapf(types.ErrProofGeneration, "cannot prove absence of %s: path is in the tree", path)
	}
	if t == nil || t.root == nil {
		return nil, errorsmod.Wrapf(types.ErrProofGeneration, "cannot prove absence of %s: tree is empty", path)
	}
	// idx is the first leaf right of path
	idx := sort.Search(len(t.leaves), func(i int) bool { return string(t.leaves[i].key) > path })
	nonexist := &ics23.NonExistenceProof{Key: []byte(path)}
	if idx > 0 {
		nonexist.Left = t.existenceProof(idx - 1)
	}
	if idx < len(t.leaves) {
		nonexist.Right = t.existenceProof(idx)
	}
	return nonexist, nil
}

func convertLeafOp() *ics23.LeafOp {
	return &ics23.LeafOp{
		Hash:         ics23.HashOp_SHA256,
		PrehashKey:   ics23.HashOp_NO_HASH,
		PrehashValue: ics23.HashOp_SHA256,
		Length:       ics23.LengthOp_VAR_PROTO,
		Prefix:       append([]byte(nil), leafPrefix...),
	}
}

// convertInnerOps collects the sibling hashes for leaf i of a subtree of n
// leaves, ordered from the leaf up to the root.
func convertInnerOps(n *node, size, i int) []*ics23.InnerOp {
	if size <= 1 {
		return nil
	}
	k := splitPoint(size)
	var op *ics23.InnerOp
	var steps []*ics23.InnerOp
	if i < k {
		steps = convertInnerOps(n.left, k, i)
		op = &ics23.InnerOp{
			Hash:   ics23.HashOp_SHA256,
			Prefix: append([]byte(nil), innerPrefix...),
			Suffix: n.right.hash,
		}
	} else {
		steps = convertInnerOps(n.right, size-k, i-k)
		prefix := append([]byte(nil), innerPrefix...)
		op = &ics23.InnerOp{
			Hash:   ics23.HashOp_SHA256,
			Prefix: append(prefix, n.left.hash...),
		}
	}
	return append(steps, op)
}

// SerializeExistenceProof wraps p into the MerkleProof container a Cosmos
// light client decodes. Every inner step declares SHA-256.
func SerializeExistenceProof(p *ics23.ExistenceProof) ([]byte, error) {
	if p == nil {
		return nil, errorsmod.Wrap(types.ErrProofGeneration, "nil existence proof")
	}
	for _, op := range p.Path {
		op.Hash = ics23.HashOp_SHA256
	}
	return marshalProof(&ics23.CommitmentProof{Proof: &ics23.CommitmentProof_Exist{Exist: p}})
}

// SerializeNonExistenceProof is the nonexist arm of the same container.
func SerializeNonExistenceProof(p *ics23.NonExistenceProof) ([]byte, error) {
	if p == nil {
		return nil, errorsmod.Wrap(types.ErrProofGeneration, "nil non-existence proof")
	}
	for _, side := range []*ics23.ExistenceProof{p.Left, p.Right} {
		if side == nil {
			continue
		}
		for _, op := range side.Path {
			op.Hash = ics23.HashOp_SHA256
		}
	}
	return marshalProof(&ics23.CommitmentProof{Proof: &ics23.CommitmentProof_Nonexist{Nonexist: p}})
}

func marshalProof(cp *ics23.CommitmentProof) ([]byte, error) {
	mp := commitmenttypes.MerkleProof{Proofs: []*ics23.CommitmentProof{cp}}
	bz, err := proto.Marshal(&mp)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrProofGeneration, err.Error())
	}
	return bz, nil
}

// DecodeProof parses a serialized MerkleProof.
func DecodeProof(bz []byte) (*commitmenttypes.MerkleProof, error) {
	var mp commitmenttypes.MerkleProof
	if err := proto.Unmarshal(bz, &mp); err != nil {
		return nil, errorsmod.Wrap(types.ErrDecode, err.Error())
	}
	return &mp, nil
}
