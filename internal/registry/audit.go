// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const auditSchemaVersion = "boundary-network/audit/v1"

// AuditLog is an append-only record of every registry mutation, per spec
// §3 and §6. Unlike the three registry tables, the log is never
// rewritten: new entries are appended directly, and a single malformed
// trailing line (e.g. from a crash mid-write) is tolerated on read rather
// than failing the whole log, since the log's job is to preserve history
// even through partial failures.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// OpenAuditLog opens (creating if necessary) the audit log file at
// dir/audit.ndjson, writing its header line if the file is new.
func OpenAuditLog(dir string) (*AuditLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: creating audit dir: %w", err)
	}
	path := filepath.Join(dir, "audit.ndjson")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		h := header{
			Schema:      auditSchemaVersion,
			Type:        "audit_log",
			Count:       0,
			Extracted:   time.Now().UTC(),
			Description: "Append-only record of every registry mutation.",
		}
		hb, err := json.Marshal(h)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, append(hb, '\n'), 0o644); err != nil {
			return nil, fmt.Errorf("registry: initializing audit log: %w", err)
		}
	}
	return &AuditLog{path: path}, nil
}

// Append writes a new audit entry, assigning it a fresh UUID and
// timestamp if unset. The write is a single os.File append with its own
// fsync; unlike the registry tables this is not a temp+rename rewrite,
// because the log only ever grows and a partial final line is tolerable
// (and detected) on the next read.
func (l *AuditLog) Append(e AuditEntry) (AuditEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := e.validate(); err != nil {
		return AuditEntry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return AuditEntry{}, fmt.Errorf("registry: opening audit log: %w", err)
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return AuditEntry{}, err
	}
	b = append(b, '\n')
	if _, err := f.Write(b); err != nil {
		return AuditEntry{}, fmt.Errorf("registry: appending audit entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return AuditEntry{}, fmt.Errorf("registry: syncing audit log: %w", err)
	}
	return e, nil
}

// All reads every well-formed entry in the audit log, in append order.
// A malformed or truncated trailing line is silently dropped rather than
// returned as an error, on the assumption it reflects a write that was
// interrupted mid-append; any malformed line that is NOT the last line in
// the file is still a hard error, since that indicates corruption rather
// than an in-flight write.
func (l *AuditLog) All() ([]AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked(func(AuditEntry) bool { return true })
}

// AuditTrail returns every audit entry recorded against a specific
// registry identifier (a FIPS code), in append order. This helper is not
// named in spec §6 directly; it supplements the log with the query shape
// an operator investigating one municipality's history actually needs.
func (l *AuditLog) AuditTrail(fips string) ([]AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked(func(e AuditEntry) bool { return e.FIPS == fips })
}

// AuditSince returns every audit entry recorded at or after t.
func (l *AuditLog) AuditSince(t time.Time) ([]AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked(func(e AuditEntry) bool { return !e.Timestamp.Before(t) })
}

func (l *AuditLog) readLocked(keep func(AuditEntry) bool) ([]AuditEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("registry: opening audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var lines [][]byte
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	var h header
	if err := json.Unmarshal(lines[0], &h); err != nil {
		return nil, fmt.Errorf("registry: audit log: malformed header: %w", err)
	}
	if h.Schema != auditSchemaVersion {
		return nil, fmt.Errorf("registry: audit log: unsupported schema %q", h.Schema)
	}

	var out []AuditEntry
	for i := 1; i < len(lines); i++ {
		var e AuditEntry
		if err := json.Unmarshal(lines[i], &e); err != nil {
			if i == len(lines)-1 {
				// Tolerate a truncated final line: likely an interrupted append.
				break
			}
			return nil, fmt.Errorf("registry: audit log: line %d: %w", i+1, err)
		}
		if err := e.validate(); err != nil {
			if i == len(lines)-1 {
				break
			}
			return nil, fmt.Errorf("registry: audit log: line %d: %w", i+1, err)
		}
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
