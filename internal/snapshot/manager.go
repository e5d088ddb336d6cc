// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boundarynet/core/internal/fieldhash"
)

// ErrContentIdentifierMismatch is returned by SetContentIdentifier when a
// different CID was already recorded for the snapshot.
var ErrContentIdentifierMismatch = errors.New("snapshot: content identifier already set to a different value")

// Meta carries the caller-supplied fields for a new snapshot that are not
// derived from the boundary set itself.
type Meta struct {
	Vintage         string
	SourceChecksums map[string]string
	JobID           string
}

// Snapshot is one versioned, persisted commitment, per spec §4.8.
type Snapshot struct {
	ID                string
	Version           int
	MerkleRoot        [fieldhash.FieldBytes]byte
	LayerCounts       map[string]int
	Vintage           string
	States            []string
	Layers            []string
	SourceChecksums   map[string]string
	JobID             string
	ContentIdentifier string
	TotalBoundaries   int
	CreatedAt         time.Time
}

// Manager manages the sequence of versioned snapshots rooted at a
// directory, persisting each atomically (write temp, rename) per spec
// §4.8's failure-semantics requirement: "persistence failure during
// create_snapshot aborts and the temporary file is removed; no partial
// state is visible."
type Manager struct {
	dir string
	mu  sync.Mutex

	snapshots map[int]Snapshot
	latest    int // 0 means no snapshot yet
}

// OpenManager loads (or initializes) the snapshot sequence at dir.
func OpenManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Join(dir, "versions"), 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: creating store dir: %w", err)
	}
	m := &Manager{dir: dir, snapshots: map[int]Snapshot{}}

	entries, err := os.ReadDir(filepath.Join(dir, "versions"))
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading versions: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, "versions", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("snapshot: reading %s: %w", e.Name(), err)
		}
		var s Snapshot
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("snapshot: parsing %s: %w", e.Name(), err)
		}
		m.snapshots[s.Version] = s
		if s.Version > m.latest {
			m.latest = s.Version
		}
	}
	return m, nil
}

// snapshotPath names the on-disk file per spec §4.8's
// "snapshot-v<version>-<uuid>.json" convention.
func (m *Manager) snapshotPath(s Snapshot) string {
	return filepath.Join(m.dir, "versions", fmt.Sprintf("snapshot-v%d-%s.json", s.Version, s.ID))
}

// Latest returns the most recent snapshot, if any.
func (m *Manager) Latest() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == 0 {
		return Snapshot{}, false
	}
	return m.snapshots[m.latest], true
}

// Get returns the snapshot at a specific version.
func (m *Manager) Get(version int) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[version]
	return s, ok
}

// CreateSnapshot builds a tree over refs, assigns the next version and a
// fresh UUID, and persists the result atomically. Returns the built Tree
// alongside the persisted Snapshot so the caller can immediately derive
// proof templates without re-building the tree.
func (m *Manager) CreateSnapshot(refs []BoundaryRef, meta Meta) (Snapshot, Tree, error) {
	tree, err := BuildTree(refs)
	if err != nil {
		return Snapshot{}, Tree{}, fmt.Errorf("snapshot: building tree: %w", err)
	}

	layerCounts := map[string]int{}
	stateSet := map[string]bool{}
	layerSet := map[string]bool{}
	for _, ref := range refs {
		layerCounts[ref.Layer]++
		stateSet[ref.State] = true
		layerSet[ref.Layer] = true
	}
	states := sortedKeys(stateSet)
	layers := sortedKeys(layerSet)

	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		ID:              uuid.NewString(),
		Version:         m.latest + 1,
		MerkleRoot:      fieldhash.ToBytes(tree.Root()),
		LayerCounts:     layerCounts,
		Vintage:         meta.Vintage,
		States:          states,
		Layers:          layers,
		SourceChecksums: meta.SourceChecksums,
		JobID:           meta.JobID,
		TotalBoundaries: len(refs),
		CreatedAt:       time.Now().UTC(),
	}

	if err := m.persistLocked(s); err != nil {
		return Snapshot{}, Tree{}, err
	}
	templates := BuildProofTemplates(tree, s.CreatedAt)
	if err := m.persistProofTemplatesLocked(s.ID, templates); err != nil {
		os.Remove(m.snapshotPath(s))
		return Snapshot{}, Tree{}, err
	}
	m.snapshots[s.Version] = s
	m.latest = s.Version
	return s, tree, nil
}

func (m *Manager) persistLocked(s Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("snapshot: marshaling: %w", err)
	}
	return writeAtomic(filepath.Join(m.dir, "versions"), ".tmp-snapshot-*", m.snapshotPath(s), b)
}

func (m *Manager) persistProofTemplatesLocked(snapshotID string, doc ProofTemplateDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("snapshot: marshaling proof templates: %w", err)
	}
	return writeAtomic(filepath.Join(m.dir, "versions"), ".tmp-proofs-*", m.proofTemplatesPath(snapshotID), b)
}

// writeAtomic persists b to target by writing a sibling temp file in dir,
// fsyncing, and renaming into place — per spec §4.8's failure-semantics
// requirement that a persistence failure leaves no partial state visible.
func writeAtomic(dir, tmpPattern, target string, b []byte) error {
	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("snapshot: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("snapshot: renaming into place: %w", err)
	}
	return nil
}

// proofTemplatesPath names the per-snapshot proof-template artifact per
// spec §4.8's "proofs-<snapshot-uuid>.json" convention.
func (m *Manager) proofTemplatesPath(snapshotID string) string {
	return filepath.Join(m.dir, "versions", fmt.Sprintf("proofs-%s.json", snapshotID))
}

// ProofTemplates loads the persisted proof-template artifact for a
// snapshot version, built once at CreateSnapshot time and covering every
// district committed in that snapshot's tree.
func (m *Manager) ProofTemplates(version int) (ProofTemplateDocument, error) {
	m.mu.Lock()
	s, ok := m.snapshots[version]
	m.mu.Unlock()
	if !ok {
		return ProofTemplateDocument{}, fmt.Errorf("snapshot: version %d not found", version)
	}
	b, err := os.ReadFile(m.proofTemplatesPath(s.ID))
	if err != nil {
		return ProofTemplateDocument{}, fmt.Errorf("snapshot: reading proof templates: %w", err)
	}
	var doc ProofTemplateDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return ProofTemplateDocument{}, fmt.Errorf("snapshot: parsing proof templates: %w", err)
	}
	return doc, nil
}

// SetContentIdentifier records the CID a snapshot was distributed under.
// Idempotent on the same value; errors if a different one is already set,
// per spec §4.8.
func (m *Manager) SetContentIdentifier(version int, cid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.snapshots[version]
	if !ok {
		return fmt.Errorf("snapshot: version %d not found", version)
	}
	if s.ContentIdentifier == cid {
		return nil
	}
	if s.ContentIdentifier != "" {
		return fmt.Errorf("%w: version %d has %q, got %q", ErrContentIdentifierMismatch, version, s.ContentIdentifier, cid)
	}
	s.ContentIdentifier = cid
	if err := m.persistLocked(s); err != nil {
		return err
	}
	m.snapshots[version] = s
	return nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
