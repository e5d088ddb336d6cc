// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package monitor

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
)

// Attestation is a gateway operator's signed availability snapshot, so a
// third party can verify a published GlobalMetrics report came from the
// operator's key rather than trusting an unauthenticated HTTP response.
// This supplements spec §4.10, which only specifies unsigned local
// metrics; off by default, nothing in the core probe/breaker path
// depends on it.
type Attestation struct {
	Metrics   GlobalMetrics
	PublicKey ed25519.PublicKey
	Signature []byte
}

// SignSnapshot signs metrics' canonical JSON encoding with priv.
func SignSnapshot(priv ed25519.PrivateKey, metrics GlobalMetrics) (Attestation, error) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return Attestation{}, fmt.Errorf("monitor: encoding snapshot for signing: %w", err)
	}
	sig := ed25519.Sign(priv, payload)
	return Attestation{
		Metrics:   metrics,
		PublicKey: priv.Public().(ed25519.PublicKey),
		Signature: sig,
	}, nil
}

// VerifyAttestation reports whether a's signature over its own Metrics
// verifies against its embedded PublicKey.
func VerifyAttestation(a Attestation) (bool, error) {
	payload, err := json.Marshal(a.Metrics)
	if err != nil {
		return false, fmt.Errorf("monitor: encoding snapshot for verification: %w", err)
	}
	return ed25519.Verify(a.PublicKey, payload, a.Signature), nil
}
