// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/boundarynet/core/internal/fieldhash"
)

// snapshotMetadata is the nested object spec §4.8's wire format groups
// everything but the identity/commitment fields under.
type snapshotMetadata struct {
	Vintage         string            `json:"vintage"`
	States          []string          `json:"states"`
	Layers          []string          `json:"layers"`
	SourceChecksums map[string]string `json:"sourceChecksums,omitempty"`
	JobID           string            `json:"jobId"`
	TotalBoundaries int               `json:"totalBoundaries"`
}

// snapshotWire is the on-disk JSON shape for a Snapshot:
// {id, version, merkleRoot (hex, 0x-prefixed), timestamp, ipfsCid?,
// layerCounts, metadata}, per spec §4.8.
type snapshotWire struct {
	ID                string           `json:"id"`
	Version           int              `json:"version"`
	MerkleRoot        string           `json:"merkleRoot"`
	Timestamp         time.Time        `json:"timestamp"`
	ContentIdentifier string           `json:"ipfsCid,omitempty"`
	LayerCounts       map[string]int   `json:"layerCounts"`
	Metadata          snapshotMetadata `json:"metadata"`
}

// MarshalJSON renders the snapshot in spec §4.8's wire shape rather than
// Go's default field-by-field encoding.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotWire{
		ID:                s.ID,
		Version:           s.Version,
		MerkleRoot:        hexEncode(s.MerkleRoot[:]),
		Timestamp:         s.CreatedAt,
		ContentIdentifier: s.ContentIdentifier,
		LayerCounts:       s.LayerCounts,
		Metadata: snapshotMetadata{
			Vintage:         s.Vintage,
			States:          s.States,
			Layers:          s.Layers,
			SourceChecksums: s.SourceChecksums,
			JobID:           s.JobID,
			TotalBoundaries: s.TotalBoundaries,
		},
	})
}

// UnmarshalJSON parses the wire shape MarshalJSON produces back into a
// Snapshot.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var w snapshotWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	root, err := hexDecodeFieldBytes(w.MerkleRoot)
	if err != nil {
		return fmt.Errorf("snapshot: merkleRoot: %w", err)
	}
	*s = Snapshot{
		ID:                w.ID,
		Version:           w.Version,
		MerkleRoot:        root,
		LayerCounts:       w.LayerCounts,
		Vintage:           w.Metadata.Vintage,
		States:            w.Metadata.States,
		Layers:            w.Metadata.Layers,
		SourceChecksums:   w.Metadata.SourceChecksums,
		JobID:             w.Metadata.JobID,
		ContentIdentifier: w.ContentIdentifier,
		TotalBoundaries:   w.Metadata.TotalBoundaries,
		CreatedAt:         w.Timestamp,
	}
	return nil
}

func hexEncode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func hexDecodeFieldBytes(s string) ([fieldhash.FieldBytes]byte, error) {
	var out [fieldhash.FieldBytes]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, fmt.Errorf("decoding hex: %w", err)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("want %d bytes, got %d", len(out), len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}
