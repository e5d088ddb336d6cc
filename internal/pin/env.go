// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package pin

import (
	"fmt"
	"os"
)

// envBackendSpec names the environment variable a backend's credential
// is read from, per spec §6's environment contract for pinning services:
// "the Regional Service constructs backends from the presence of
// credentials in environment variables; missing credentials produce a
// graceful-degradation warning. No credentials are persisted."
type envBackendSpec struct {
	backend Backend
	tokenEnvVar string
}

var defaultBackendSpecs = []envBackendSpec{
	{BackendStoracha, "STORACHA_API_TOKEN"},
	{BackendPinata, "PINATA_JWT"},
	{BackendFleek, "FLEEK_API_TOKEN"},
	{BackendWeb3Storage, "WEB3STORAGE_API_TOKEN"},
}

// BuildRegionalServiceFromEnv constructs a RegionalService for region
// from whichever of the four named backends have a credential present
// in the environment. Backends missing a credential are skipped and
// reported as a warning string rather than an error.
func BuildRegionalServiceFromEnv(region string) (*RegionalService, []string) {
	var entries []Entry
	var warnings []string
	for _, spec := range defaultBackendSpecs {
		token := os.Getenv(spec.tokenEnvVar)
		if token == "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s not set, backend unavailable in region %s", spec.backend, spec.tokenEnvVar, region))
			continue
		}
		entries = append(entries, Entry{Service: NewHTTPService(backendEndpoints(spec.backend, token))})
	}
	return &RegionalService{Region: region, Entries: entries}, warnings
}

// backendEndpoints returns the templated REST endpoints for one backend.
// These name real providers' public API shapes at the level of detail
// spec §1 asks for (wire-protocol fidelity is explicitly out of scope).
func backendEndpoints(backend Backend, token string) HTTPServiceConfig {
	switch backend {
	case BackendStoracha:
		return HTTPServiceConfig{
			Backend:       backend,
			PinURL:        "https://up.storacha.network/bridge",
			VerifyURLFmt:  "https://up.storacha.network/bridge/status/%s",
			UnpinURLFmt:   "https://up.storacha.network/bridge/blob/%s",
			HealthURL:     "https://up.storacha.network/bridge/health",
			GatewayURLFmt: "https://%s.ipfs.storacha.link",
			AuthToken:     token,
		}
	case BackendPinata:
		return HTTPServiceConfig{
			Backend:       backend,
			PinURL:        "https://api.pinata.cloud/pinning/pinFileToIPFS",
			VerifyURLFmt:  "https://api.pinata.cloud/data/pinList?hashContains=%s",
			UnpinURLFmt:   "https://api.pinata.cloud/pinning/unpin/%s",
			HealthURL:     "https://api.pinata.cloud/data/testAuthentication",
			GatewayURLFmt: "https://gateway.pinata.cloud/ipfs/%s",
			AuthToken:     token,
		}
	case BackendFleek:
		return HTTPServiceConfig{
			Backend:       backend,
			PinURL:        "https://api.fleek.xyz/storage/upload",
			VerifyURLFmt:  "https://api.fleek.xyz/storage/status/%s",
			UnpinURLFmt:   "https://api.fleek.xyz/storage/%s",
			HealthURL:     "https://api.fleek.xyz/health",
			GatewayURLFmt: "https://ipfs.fleek.co/ipfs/%s",
			AuthToken:     token,
		}
	case BackendWeb3Storage:
		return HTTPServiceConfig{
			Backend:       backend,
			PinURL:        "https://api.web3.storage/uploads",
			VerifyURLFmt:  "https://api.web3.storage/uploads/%s",
			UnpinURLFmt:   "https://api.web3.storage/uploads/%s",
			HealthURL:     "https://api.web3.storage/health",
			GatewayURLFmt: "https://%s.ipfs.w3s.link",
			AuthToken:     token,
		}
	default:
		return HTTPServiceConfig{Backend: backend, AuthToken: token}
	}
}
