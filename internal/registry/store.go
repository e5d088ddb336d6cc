// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// schemaVersion is the `_schema` value stamped into every NDJSON header
// this store writes, per spec §6.
const schemaVersion = "boundary-network/registry/v1"

// recordType enumerates the `_type` tag used in each table's header line.
type recordType string

const (
	typeExpectedCount recordType = "expected_count"
	typeQuarantine    recordType = "quarantine"
	typeAtLarge       recordType = "at_large"
)

// Store manages the three registry tables (expected-count, quarantine,
// at-large) as append-only NDJSON files, all guarded by one shared mutex
// so concurrent ingestion workers don't interleave writes. Every rewrite is
// atomic: write to a temp file in the same directory, fsync, then rename
// over the original, the idiom the teacher's config builder uses for its
// own on-disk state (see DESIGN.md).
type Store struct {
	dir string

	mu            sync.Mutex
	expectedCount map[string]ExpectedCountEntry
	quarantine    map[string]QuarantineEntry
	atLarge       map[string]AtLargeEntry
}

// Open loads (or initializes) the three registry tables rooted at dir.
func Open(dir string) (*Store, error) {
	s := &Store{
		dir:           dir,
		expectedCount: map[string]ExpectedCountEntry{},
		quarantine:    map[string]QuarantineEntry{},
		atLarge:       map[string]AtLargeEntry{},
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: creating store dir: %w", err)
	}
	if err := loadTable(s.path(typeExpectedCount), typeExpectedCount, func(raw json.RawMessage) error {
		var e ExpectedCountEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		if err := e.validate(); err != nil {
			return err
		}
		s.expectedCount[e.FIPS] = e
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadTable(s.path(typeQuarantine), typeQuarantine, func(raw json.RawMessage) error {
		var e QuarantineEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		if err := e.validate(); err != nil {
			return err
		}
		s.quarantine[e.FIPS] = e
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadTable(s.path(typeAtLarge), typeAtLarge, func(raw json.RawMessage) error {
		var e AtLargeEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		if err := e.validate(); err != nil {
			return err
		}
		s.atLarge[e.FIPS] = e
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) path(t recordType) string {
	return filepath.Join(s.dir, string(t)+".ndjson")
}

// loadTable reads an NDJSON file's header line (validated against
// schemaVersion and wantType) then hands each subsequent record to decode.
// A missing file is not an error: a freshly initialized store starts empty.
func loadTable(path string, wantType recordType, decode func(json.RawMessage) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("registry: opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if lineNo == 1 {
			var h header
			if err := json.Unmarshal(line, &h); err != nil {
				return fmt.Errorf("registry: %s: malformed header: %w", path, err)
			}
			if h.Schema != schemaVersion {
				return fmt.Errorf("registry: %s: unsupported schema %q", path, h.Schema)
			}
			if recordType(h.Type) != wantType {
				return fmt.Errorf("%w: %s: header _type %q, want %q", ErrUnknownType, path, h.Type, wantType)
			}
			continue
		}
		if err := decode(json.RawMessage(line)); err != nil {
			return fmt.Errorf("registry: %s: line %d: %w", path, lineNo, err)
		}
	}
	return scanner.Err()
}

// writeTable performs the atomic temp+rename rewrite of a table: a header
// line followed by one JSON object per row, FIPS-ascending for a
// deterministic byte-for-byte rewrite every time (spec §6).
func writeTable(path string, t recordType, description string, rows []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-registry-*")
	if err != nil {
		return fmt.Errorf("registry: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	w := bufio.NewWriter(tmp)
	h := header{
		Schema:      schemaVersion,
		Type:        string(t),
		Count:       len(rows),
		Extracted:   time.Now().UTC(),
		Description: description,
	}
	hb, err := json.Marshal(h)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := w.Write(hb); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		tmp.Close()
		return err
	}
	for _, row := range rows {
		if _, err := w.Write(row); err != nil {
			tmp.Close()
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// PutExpectedCount inserts or replaces an expected-count row, then
// atomically rewrites the table.
func (s *Store) PutExpectedCount(e ExpectedCountEntry) error {
	if err := e.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedCount[e.FIPS] = e
	return s.flushExpectedCountLocked()
}

// ExpectedCount looks up a row by FIPS code.
func (s *Store) ExpectedCount(fips string) (ExpectedCountEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expectedCount[fips]
	return e, ok
}

func (s *Store) flushExpectedCountLocked() error {
	fipsList := make([]string, 0, len(s.expectedCount))
	for k := range s.expectedCount {
		fipsList = append(fipsList, k)
	}
	sort.Strings(fipsList)
	rows := make([]json.RawMessage, 0, len(fipsList))
	for _, k := range fipsList {
		b, err := json.Marshal(s.expectedCount[k])
		if err != nil {
			return err
		}
		rows = append(rows, b)
	}
	return writeTable(s.path(typeExpectedCount), typeExpectedCount,
		"Municipal councils with a known, independently verified district count.", rows)
}

// PutQuarantine moves a FIPS code into quarantine, per spec §3's
// "registry-gated" state machine.
func (s *Store) PutQuarantine(e QuarantineEntry) error {
	if err := e.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantine[e.FIPS] = e
	return s.flushQuarantineLocked()
}

// Quarantined reports whether fips currently sits in quarantine.
func (s *Store) Quarantined(fips string) (QuarantineEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.quarantine[fips]
	return e, ok
}

// RemoveQuarantine lifts a FIPS code out of quarantine (a "restore").
func (s *Store) RemoveQuarantine(fips string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quarantine[fips]; !ok {
		return nil
	}
	delete(s.quarantine, fips)
	return s.flushQuarantineLocked()
}

func (s *Store) flushQuarantineLocked() error {
	fipsList := make([]string, 0, len(s.quarantine))
	for k := range s.quarantine {
		fipsList = append(fipsList, k)
	}
	sort.Strings(fipsList)
	rows := make([]json.RawMessage, 0, len(fipsList))
	for _, k := range fipsList {
		b, err := json.Marshal(s.quarantine[k])
		if err != nil {
			return err
		}
		rows = append(rows, b)
	}
	return writeTable(s.path(typeQuarantine), typeQuarantine,
		"Sources excluded from ingestion pending manual review.", rows)
}

// PutAtLarge records a terminal at-large classification for fips.
func (s *Store) PutAtLarge(e AtLargeEntry) error {
	if err := e.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atLarge[e.FIPS] = e
	return s.flushAtLargeLocked()
}

// AtLarge looks up a row by FIPS code.
func (s *Store) AtLarge(fips string) (AtLargeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.atLarge[fips]
	return e, ok
}

func (s *Store) flushAtLargeLocked() error {
	fipsList := make([]string, 0, len(s.atLarge))
	for k := range s.atLarge {
		fipsList = append(fipsList, k)
	}
	sort.Strings(fipsList)
	rows := make([]json.RawMessage, 0, len(fipsList))
	for _, k := range fipsList {
		b, err := json.Marshal(s.atLarge[k])
		if err != nil {
			return err
		}
		rows = append(rows, b)
	}
	return writeTable(s.path(typeAtLarge), typeAtLarge,
		"Councils elected at-large; district tessellation does not apply.", rows)
}

// Len returns the row counts of the three tables, mainly for status
// reporting (cmd/boundaryctl status).
func (s *Store) Len() (expectedCount, quarantine, atLarge int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expectedCount), len(s.quarantine), len(s.atLarge)
}
