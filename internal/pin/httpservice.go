// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package pin

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPService is a generic REST-backed Service implementation. Each of
// the four backends named in spec §4.9 wires up its own endpoint
// templates and auth header; this package never hardcodes a specific
// provider's wire protocol (out of scope per spec §1), only the shared
// shape every candidate backend's upload API exposes: POST blob, GET
// verify-by-cid, DELETE/POST unpin-by-cid, GET health, and a public
// gateway URL templated on the CID.
type HTTPService struct {
	backend Backend
	client  *http.Client

	pinURL          string
	verifyURLFmt    string // one "%s" for cid
	unpinURLFmt     string // one "%s" for cid
	healthURL       string
	gatewayURLFmt   string // one "%s" for cid

	authHeader string
	authToken  string
}

// HTTPServiceConfig configures one backend endpoint.
type HTTPServiceConfig struct {
	Backend       Backend
	PinURL        string
	VerifyURLFmt  string
	UnpinURLFmt   string
	HealthURL     string
	GatewayURLFmt string
	AuthHeader    string // default "Authorization"
	AuthToken     string
	Timeout       time.Duration
}

// NewHTTPService builds a Service for one backend from a templated
// endpoint configuration.
func NewHTTPService(cfg HTTPServiceConfig) *HTTPService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	authHeader := cfg.AuthHeader
	if authHeader == "" {
		authHeader = "Authorization"
	}
	return &HTTPService{
		backend:       cfg.Backend,
		client:        &http.Client{Timeout: timeout},
		pinURL:        cfg.PinURL,
		verifyURLFmt:  cfg.VerifyURLFmt,
		unpinURLFmt:   cfg.UnpinURLFmt,
		healthURL:     cfg.HealthURL,
		gatewayURLFmt: cfg.GatewayURLFmt,
		authHeader:    authHeader,
		authToken:     cfg.AuthToken,
	}
}

func (s *HTTPService) Backend() Backend { return s.backend }

func (s *HTTPService) authenticate(req *http.Request) {
	if s.authToken != "" {
		req.Header.Set(s.authHeader, "Bearer "+s.authToken)
	}
}

type pinResponse struct {
	CID string `json:"cid"`
}

// Pin uploads blob. On a transport or non-2xx failure the returned
// Result has Success=false and the error populated in both the return
// value and Result.Error, so a caller fanning out across a Regional
// Service can inspect either.
func (s *HTTPService) Pin(ctx context.Context, blob []byte, opts Options) (Result, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pinURL, bytes.NewReader(blob))
	if err != nil {
		return Result{Success: false, Error: err}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if opts.Name != "" {
		req.Header.Set("X-Pin-Name", opts.Name)
	}
	s.authenticate(req)

	resp, err := s.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return Result{Success: false, Duration: duration, Error: err}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("pin: %s returned status %d", s.backend, resp.StatusCode)
		return Result{Success: false, Duration: duration, Error: err}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Success: false, Duration: duration, Error: err}, err
	}
	var pr pinResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return Result{Success: false, Duration: duration, Error: err}, err
	}
	if pr.CID == "" {
		pr.CID = contentHash(blob)
	}
	return Result{Success: true, CID: pr.CID, Size: int64(len(blob)), Duration: duration}, nil
}

func (s *HTTPService) Verify(ctx context.Context, cid string) (bool, error) {
	url := fmt.Sprintf(s.verifyURLFmt, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	s.authenticate(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (s *HTTPService) Unpin(ctx context.Context, cid string) error {
	url := fmt.Sprintf(s.unpinURLFmt, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	s.authenticate(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unpin: %s returned status %d", s.backend, resp.StatusCode)
	}
	return nil
}

func (s *HTTPService) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.healthURL, nil)
	if err != nil {
		return false
	}
	s.authenticate(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *HTTPService) GatewayURL(cid string) string {
	return fmt.Sprintf(s.gatewayURLFmt, cid)
}

// contentHash provides a fallback content identifier for backends (or
// test doubles) that omit the CID from their pin response body.
func contentHash(blob []byte) string {
	sum := sha256.Sum256(blob)
	return "sha256-" + hex.EncodeToString(sum[:])
}
