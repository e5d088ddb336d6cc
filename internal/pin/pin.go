// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pin implements the Pinning-Service Abstraction and Regional
// Service: a common pin/verify/unpin contract over heterogeneous
// content-addressed storage backends, and multi-service fan-out with a
// CID equality invariant, per spec §4.9.
package pin

import (
	"context"
	"time"
)

// Backend names one of the four supported pinning services, per spec §4.9.
type Backend string

const (
	BackendStoracha    Backend = "storacha"
	BackendPinata      Backend = "pinata"
	BackendFleek       Backend = "fleek"
	BackendWeb3Storage Backend = "web3storage"
)

// Options carries per-pin metadata.
type Options struct {
	Name     string
	Metadata map[string]string
}

// Result is what a single pin attempt returns.
type Result struct {
	Success  bool
	CID      string
	Size     int64
	Duration time.Duration
	Error    error
}

// Service is the abstract pin/verify/unpin contract spec §4.9 requires
// every backend to expose.
type Service interface {
	Backend() Backend
	Pin(ctx context.Context, blob []byte, opts Options) (Result, error)
	Verify(ctx context.Context, cid string) (bool, error)
	Unpin(ctx context.Context, cid string) error
	HealthCheck(ctx context.Context) bool
	GatewayURL(cid string) string
}
