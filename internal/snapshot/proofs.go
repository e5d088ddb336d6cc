// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"time"

	"github.com/boundarynet/core/internal/fieldhash"
)

// ProofTemplate is one district's persisted inclusion proof: the sibling
// hashes and left/right path indices needed to recompute the Merkle root
// from its leaf, per spec §4.8.
type ProofTemplate struct {
	Siblings    []string `json:"siblings"`
	PathIndices []int    `json:"pathIndices"`
	LeafHash    string   `json:"leafHash"`
}

// ProofTemplateDocument is the full per-snapshot artifact persisted as
// proofs-<snapshot-uuid>.json, covering every district committed in the
// snapshot's tree.
type ProofTemplateDocument struct {
	MerkleRoot    string                   `json:"merkleRoot"`
	TreeDepth     int                      `json:"treeDepth"`
	TemplateCount int                      `json:"templateCount"`
	GeneratedAt   time.Time                `json:"generatedAt"`
	Templates     map[string]ProofTemplate `json:"templates"`
}

// BuildProofTemplates derives a ProofTemplate for every district leaf in
// tree (the padding leaves carry no district ID and are excluded), so a
// verifier can recompute the commitment for any district without holding
// the full tree.
func BuildProofTemplates(tree Tree, generatedAt time.Time) ProofTemplateDocument {
	templates := make(map[string]ProofTemplate, len(tree.BoundaryIDs))
	for i, id := range tree.BoundaryIDs {
		proof := tree.ProofFor(i)
		templates[id] = ProofTemplate{
			Siblings:    siblingHexes(proof.Steps),
			PathIndices: pathIndices(proof.Steps),
			LeafHash:    hexEncode(fieldhash.ToBytes(tree.Levels[0][i])[:]),
		}
	}
	return ProofTemplateDocument{
		MerkleRoot:    hexEncode(fieldhash.ToBytes(tree.Root())[:]),
		TreeDepth:     len(tree.Levels) - 1,
		TemplateCount: len(templates),
		GeneratedAt:   generatedAt,
		Templates:     templates,
	}
}

func siblingHexes(steps []ProofStep) []string {
	out := make([]string, len(steps))
	for i, step := range steps {
		b := fieldhash.ToBytes(step.Sibling)
		out[i] = hexEncode(b[:])
	}
	return out
}

// pathIndices translates each step's IsRight (the current node is the
// left child, sibling to its right) into the 0/1 path-index convention
// spec §4.8's proof template uses: 0 for a left branch, 1 for a right one.
func pathIndices(steps []ProofStep) []int {
	out := make([]int, len(steps))
	for i, step := range steps {
		if !step.IsRight {
			out[i] = 1
		}
	}
	return out
}
