// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapshot implements the Merkle/Snapshot Manager: canonical
// leaf encoding, deterministic tree construction, versioned snapshots
// with proof templates, and diff between versions, per spec §4.8.
package snapshot

import (
	"github.com/boundarynet/core/internal/fieldhash"
)

// actionDomainConstant is the fixed domain-separation tag mixed into
// every leaf, per spec §4.8's "action_domain_constant" field. A single
// module-wide constant is sufficient since the spec does not vary it per
// boundary; it exists purely to separate this leaf shape from any other
// Poseidon-committed structure sharing the same field.
var actionDomainConstant = mustPoseidon("boundary-network/snapshot/leaf/v1")

func mustPoseidon(s string) fieldhash.Element {
	e, err := fieldhash.HashString(s)
	if err != nil {
		panic("snapshot: action domain constant must fit in one field element: " + err.Error())
	}
	return e
}

// BoundaryRef is the minimal identity a snapshot leaf commits to: the
// district's identity and authority tier, deliberately excluding
// geometry or any user-specific data from the committed leaf (spec §4.8).
type BoundaryRef struct {
	ID            string
	AuthorityLevel string
	Layer         string
	State         string
}

// EncodeLeaf computes leaf = hash_four(poseidon(district_id),
// poseidon(authority_level), poseidon(action_domain_constant), 0), per
// spec §4.8.
func EncodeLeaf(ref BoundaryRef) (fieldhash.Element, error) {
	idHash, err := fieldhash.HashString(ref.ID)
	if err != nil {
		return fieldhash.Element{}, err
	}
	authHash, err := fieldhash.HashString(ref.AuthorityLevel)
	if err != nil {
		return fieldhash.Element{}, err
	}
	return fieldhash.HashFour(idHash, authHash, actionDomainConstant, fieldhash.Element{}), nil
}
