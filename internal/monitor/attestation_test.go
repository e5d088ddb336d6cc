// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package monitor

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignSnapshot_VerifiesWithMatchingKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	metrics := GlobalMetrics{OverallAvailability: 0.995, P50: 0, P95: 0, P99: 0, TotalSamples: 42}
	att, err := SignSnapshot(priv, metrics)
	require.NoError(t, err)
	require.Equal(t, ed25519.PublicKey(pub), att.PublicKey)

	ok, err := VerifyAttestation(att)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyAttestation_RejectsTamperedMetrics(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	att, err := SignSnapshot(priv, GlobalMetrics{OverallAvailability: 1.0, TotalSamples: 10})
	require.NoError(t, err)

	att.Metrics.OverallAvailability = 0.1
	ok, err := VerifyAttestation(att)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyAttestation_RejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	att, err := SignSnapshot(priv, GlobalMetrics{OverallAvailability: 1.0, TotalSamples: 10})
	require.NoError(t, err)
	att.PublicKey = otherPub

	ok, err := VerifyAttestation(att)
	require.NoError(t, err)
	require.False(t, ok)
}
