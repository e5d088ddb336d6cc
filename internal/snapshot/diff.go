// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"fmt"
	"sort"
)

// LayerDelta is a layer whose feature count changed between versions.
type LayerDelta struct {
	Layer     string
	FromCount int
	ToCount   int
	Delta     int
}

// Diff is the result of comparing two snapshot versions, per spec §4.8.
type Diff struct {
	FromVersion            int
	ToVersion               int
	AddedLayers             []string
	RemovedLayers           []string
	ModifiedLayers          []LayerDelta
	AddedStates             []string
	RemovedStates           []string
	MerkleRootChanged       bool
	TotalBoundaryCountDelta int
}

// Diff computes added/removed/modified layers, added/removed states, the
// Merkle root change flag, and total boundary count delta between two
// versions, per spec §4.8.
func (m *Manager) Diff(fromVersion, toVersion int) (Diff, error) {
	from, ok := m.Get(fromVersion)
	if !ok {
		return Diff{}, fmt.Errorf("snapshot: version %d not found", fromVersion)
	}
	to, ok := m.Get(toVersion)
	if !ok {
		return Diff{}, fmt.Errorf("snapshot: version %d not found", toVersion)
	}

	d := Diff{
		FromVersion:             fromVersion,
		ToVersion:               toVersion,
		MerkleRootChanged:       from.MerkleRoot != to.MerkleRoot,
		TotalBoundaryCountDelta: to.TotalBoundaries - from.TotalBoundaries,
	}

	d.AddedLayers, d.RemovedLayers, d.ModifiedLayers = diffLayerCounts(from.LayerCounts, to.LayerCounts)
	d.AddedStates, d.RemovedStates = diffStringSets(from.States, to.States)
	return d, nil
}

func diffLayerCounts(from, to map[string]int) (added, removed []string, modified []LayerDelta) {
	for layer, toCount := range to {
		fromCount, existed := from[layer]
		if !existed {
			added = append(added, layer)
			continue
		}
		if fromCount != toCount {
			modified = append(modified, LayerDelta{Layer: layer, FromCount: fromCount, ToCount: toCount, Delta: toCount - fromCount})
		}
	}
	for layer := range from {
		if _, stillPresent := to[layer]; !stillPresent {
			removed = append(removed, layer)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Slice(modified, func(i, j int) bool { return modified[i].Layer < modified[j].Layer })
	return added, removed, modified
}

func diffStringSets(from, to []string) (added, removed []string) {
	fromSet := make(map[string]bool, len(from))
	for _, s := range from {
		fromSet[s] = true
	}
	toSet := make(map[string]bool, len(to))
	for _, s := range to {
		toSet[s] = true
	}
	for _, s := range to {
		if !fromSet[s] {
			added = append(added, s)
		}
	}
	for _, s := range from {
		if !toSet[s] {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
