// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_PutAndReopen_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	entry := ExpectedCountEntry{
		FIPS:              "0644000",
		CityName:          "Los Angeles",
		State:             "CA",
		ExpectedDistricts: 15,
		Governance:        GovernanceDistrictBased,
		SourceURL:         "https://clerk.lacity.org/districts",
		LastVerified:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.PutExpectedCount(entry))

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, ok := reopened.ExpectedCount("0644000")
	require.True(t, ok)
	require.Equal(t, entry.CityName, got.CityName)
	require.Equal(t, entry.ExpectedDistricts, got.ExpectedDistricts)
}

func TestStore_RejectsUnknownGovernanceType(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	err = s.PutExpectedCount(ExpectedCountEntry{
		FIPS:       "0102030",
		Governance: GovernanceType("district-by-fiat"),
	})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestStore_QuarantineLifecycle(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	q := QuarantineEntry{
		FIPS:      "1234567",
		CityName:  "Example City",
		State:     "TX",
		Pattern:   FailureContainmentFailure,
		Reason:    "district 4 extends outside city limits",
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, s.PutQuarantine(q))

	_, ok := s.Quarantined("1234567")
	require.True(t, ok)

	require.NoError(t, s.RemoveQuarantine("1234567"))
	_, ok = s.Quarantined("1234567")
	require.False(t, ok)

	// Restoring a table that never held the FIPS code is a no-op, not an error.
	require.NoError(t, s.RemoveQuarantine("9999999"))
}

func TestStore_DeterministicRewriteOrder(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	for _, fips := range []string{"0900300", "0100100", "0500200"} {
		require.NoError(t, s.PutAtLarge(AtLargeEntry{
			FIPS:           fips,
			Name:           "City " + fips,
			State:          "ZZ",
			CouncilSize:    7,
			ElectionMethod: ElectionAtLarge,
			Source:         "https://example.gov/charter",
		}))
	}

	b1, err := readFileBytes(s.path(typeAtLarge))
	require.NoError(t, err)

	// Touch nothing and rewrite once more: the output must be byte-identical.
	s.mu.Lock()
	err = s.flushAtLargeLocked()
	s.mu.Unlock()
	require.NoError(t, err)

	b2, err := readFileBytes(s.path(typeAtLarge))
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestStore_Len(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.PutExpectedCount(ExpectedCountEntry{FIPS: "1", Governance: GovernanceAtLarge}))
	require.NoError(t, s.PutQuarantine(QuarantineEntry{FIPS: "2", Pattern: FailureOther}))
	require.NoError(t, s.PutAtLarge(AtLargeEntry{FIPS: "3", ElectionMethod: ElectionProportional}))

	ec, qr, al := s.Len()
	require.Equal(t, 1, ec)
	require.Equal(t, 1, qr)
	require.Equal(t, 1, al)
}

func TestAuditLog_AppendAndQuery(t *testing.T) {
	dir := t.TempDir()
	log, err := OpenAuditLog(dir)
	require.NoError(t, err)

	e1, err := log.Append(AuditEntry{
		Action:   ActionQuarantine,
		Registry: "quarantine",
		FIPS:     "0644000",
		Actor:    "ingest-worker",
		Reason:   "containment_failure",
	})
	require.NoError(t, err)
	require.NotEmpty(t, e1.ID)
	require.False(t, e1.Timestamp.IsZero())

	_, err = log.Append(AuditEntry{
		Action:   ActionRestore,
		Registry: "quarantine",
		FIPS:     "0900300",
		Actor:    "operator@example.com",
		Reason:   "source republished with corrected geometry",
	})
	require.NoError(t, err)

	all, err := log.All()
	require.NoError(t, err)
	require.Len(t, all, 2)

	trail, err := log.AuditTrail("0644000")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	require.Equal(t, ActionQuarantine, trail[0].Action)
}

func TestAuditLog_RejectsUnknownAction(t *testing.T) {
	dir := t.TempDir()
	log, err := OpenAuditLog(dir)
	require.NoError(t, err)

	_, err = log.Append(AuditEntry{Action: AuditAction("nullify"), Registry: "quarantine", FIPS: "1"})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestAuditLog_AuditSince(t *testing.T) {
	dir := t.TempDir()
	log, err := OpenAuditLog(dir)
	require.NoError(t, err)

	cutoff := time.Now().UTC()
	time.Sleep(2 * time.Millisecond)

	_, err = log.Append(AuditEntry{Action: ActionAdd, Registry: "expected_count", FIPS: "5", Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	recent, err := log.AuditSince(cutoff)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	future, err := log.AuditSince(time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, future)
}

func readFileBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}
