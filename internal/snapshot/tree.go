// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"sort"

	"github.com/boundarynet/core/internal/fieldhash"
)

// Tree is a binary Merkle tree over a deterministically sorted, zero-padded
// leaf set, stored level-by-level so proof generation is O(log N), per
// spec §4.8.
type Tree struct {
	// BoundaryIDs is leaf order after sorting (ascending, deterministic),
	// excluding the zero-padding leaves.
	BoundaryIDs []string
	// Levels[0] is the leaf layer (after padding); Levels[len-1] has one
	// element, the root.
	Levels [][]fieldhash.Element
}

// Root returns the tree's Merkle root.
func (t Tree) Root() fieldhash.Element {
	top := t.Levels[len(t.Levels)-1]
	return top[0]
}

// BuildTree sorts refs by ID ascending, encodes each as a leaf, pads with
// zero leaves to the next power of two, and builds the tree bottom-up
// with hash_pair, per spec §4.8.
func BuildTree(refs []BoundaryRef) (Tree, error) {
	sorted := append([]BoundaryRef(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	leaves := make([]fieldhash.Element, len(sorted))
	ids := make([]string, len(sorted))
	for i, ref := range sorted {
		leaf, err := EncodeLeaf(ref)
		if err != nil {
			return Tree{}, err
		}
		leaves[i] = leaf
		ids[i] = ref.ID
	}

	size := nextPowerOfTwo(len(leaves))
	if size == 0 {
		size = 1
	}
	padded := make([]fieldhash.Element, size)
	copy(padded, leaves)

	levels := [][]fieldhash.Element{padded}
	cur := padded
	for len(cur) > 1 {
		next := make([]fieldhash.Element, len(cur)/2)
		for i := range next {
			next[i] = fieldhash.HashPair(cur[2*i], cur[2*i+1])
		}
		levels = append(levels, next)
		cur = next
	}

	return Tree{BoundaryIDs: ids, Levels: levels}, nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// ProofStep is one sibling/direction pair on a path to the root.
// IsRight reports whether the sibling sits to the right of the current
// node (i.e. the current node is the left child).
type ProofStep struct {
	Sibling fieldhash.Element
	IsRight bool
}

// Proof is the ordered list of siblings and path indices for one leaf,
// per spec §4.8.
type Proof struct {
	LeafIndex int
	Steps     []ProofStep
	Root      fieldhash.Element
}

// ProofFor builds the inclusion proof for the leaf at position
// leafIndex in the padded leaf layer.
func (t Tree) ProofFor(leafIndex int) Proof {
	steps := make([]ProofStep, 0, len(t.Levels)-1)
	idx := leafIndex
	for level := 0; level < len(t.Levels)-1; level++ {
		layer := t.Levels[level]
		var sibling fieldhash.Element
		isRight := idx%2 == 0
		if isRight {
			sibling = layer[idx+1]
		} else {
			sibling = layer[idx-1]
		}
		steps = append(steps, ProofStep{Sibling: sibling, IsRight: isRight})
		idx /= 2
	}
	return Proof{LeafIndex: leafIndex, Steps: steps, Root: t.Root()}
}

// Verify recomputes the root from leaf along proof's path and reports
// whether it matches proof.Root.
func Verify(leaf fieldhash.Element, proof Proof) bool {
	cur := leaf
	for _, step := range proof.Steps {
		if step.IsRight {
			cur = fieldhash.HashPair(cur, step.Sibling)
		} else {
			cur = fieldhash.HashPair(step.Sibling, cur)
		}
	}
	return cur == proof.Root
}
