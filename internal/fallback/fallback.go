// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fallback implements the client-side Fallback Resolver: gateway
// selection with a primary-plus-chain fallback strategy, response and
// failure caches, exponential backoff between attempts, and an
// HTTP-status-driven error taxonomy, per spec §4.11.
package fallback

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrorKind classifies a failed fetch attempt for retry/propagation
// decisions, per spec §4.11 and spec §4 (error taxonomy table).
type ErrorKind string

const (
	ErrInvalidCID         ErrorKind = "invalid_cid"         // HTTP 404, non-retryable
	ErrQuotaExceeded      ErrorKind = "quota_exceeded"       // HTTP 429, retryable
	ErrNetworkTimeout     ErrorKind = "network_timeout"      // transport timeout, retryable
	ErrGatewayUnavailable ErrorKind = "gateway_unavailable"  // other failure, retryable
)

func (k ErrorKind) retryable() bool { return k != ErrInvalidCID }

// classify maps an HTTP status code (0 if the request never completed)
// and a transport error into the taxonomy above.
func classify(statusCode int, err error) ErrorKind {
	switch statusCode {
	case 404:
		return ErrInvalidCID
	case 429:
		return ErrQuotaExceeded
	}
	if err != nil {
		if ctxErr, ok := err.(interface{ Timeout() bool }); ok && ctxErr.Timeout() {
			return ErrNetworkTimeout
		}
		if err == context.DeadlineExceeded {
			return ErrNetworkTimeout
		}
	}
	return ErrGatewayUnavailable
}

// Fetcher retrieves the content addressed by url. Status 0 indicates the
// request never reached a server (pure transport failure).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, statusCode int, err error)
}

// Gateway is one candidate endpoint for a region, or a public fallback
// gateway (Region is ignored for public entries).
type Gateway struct {
	ID     string
	Region string
	URLFmt string // one "%s" for the CID
	Public bool
}

func (g Gateway) url(cid string) string { return fmt.Sprintf(g.URLFmt, cid) }

// Health is the subset of Availability Monitor state the Fallback
// Resolver needs to rank gateways, injected as a narrow read-only
// capability (spec §4's cyclic-reference note) rather than a direct
// dependency on internal/monitor.
type Health struct {
	Available   bool
	Latency     time.Duration
	SuccessRate float64
}

// HealthSource supplies per-gateway health, typically backed by an
// internal/monitor.Monitor.
type HealthSource interface {
	GatewayHealth(gatewayID string) (Health, bool)
}

// Criteria narrows gateway selection to a user's region and quality floor.
type Criteria struct {
	UserRegion     string
	MaxLatency     time.Duration
	MinSuccessRate float64
}

// AttemptError records one failed attempt in a resolve chain.
type AttemptError struct {
	Gateway string
	Kind    ErrorKind
	Err     error
}

// Result is the outcome of Resolve.
type Result struct {
	Success  bool
	Gateway  string
	Region   string
	Attempts int
	Errors   []AttemptError
	Duration time.Duration
	Cached   bool
}

// Config tunes cache sizes/TTLs and retry backoff.
type Config struct {
	ResponseCacheTTL  time.Duration // default 1h
	ResponseCacheSize int           // default 1000
	FailureCacheTTL   time.Duration // default 5m
	FailureCacheSize  int           // default 1000
	RetryBaseDelay    time.Duration // default 200ms
}

func (c Config) withDefaults() Config {
	if c.ResponseCacheTTL <= 0 {
		c.ResponseCacheTTL = time.Hour
	}
	if c.ResponseCacheSize <= 0 {
		c.ResponseCacheSize = 1000
	}
	if c.FailureCacheTTL <= 0 {
		c.FailureCacheTTL = 5 * time.Minute
	}
	if c.FailureCacheSize <= 0 {
		c.FailureCacheSize = 1000
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 200 * time.Millisecond
	}
	return c
}

type responseEntry struct {
	result     Result
	insertedAt time.Time
}

type failureKey struct {
	gateway string
	cid     string
}

type failureEntry struct {
	kind       ErrorKind
	insertedAt time.Time
}

// Resolver implements resolve(cid, criteria), per spec §4.11.
type Resolver struct {
	cfg      Config
	gateways []Gateway
	health   HealthSource
	fetcher  Fetcher

	responseCache *lru.Cache[string, responseEntry]
	failureCache  *lru.Cache[failureKey, failureEntry]
}

// New builds a Resolver over a static gateway roster.
func New(cfg Config, gateways []Gateway, health HealthSource, fetcher Fetcher) (*Resolver, error) {
	cfg = cfg.withDefaults()
	responseCache, err := lru.New[string, responseEntry](cfg.ResponseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("fallback: response cache: %w", err)
	}
	failureCache, err := lru.New[failureKey, failureEntry](cfg.FailureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("fallback: failure cache: %w", err)
	}
	return &Resolver{
		cfg:           cfg,
		gateways:      gateways,
		health:        health,
		fetcher:       fetcher,
		responseCache: responseCache,
		failureCache:  failureCache,
	}, nil
}

// Resolve fetches cid, trying the primary gateway then an ordered
// fallback chain, skipping any gateway/CID pair recorded in the failure
// cache and backing off exponentially between attempts.
func (r *Resolver) Resolve(ctx context.Context, cid string, criteria Criteria) (Result, error) {
	start := time.Now()

	if cached, ok := r.lookupResponse(cid); ok {
		cached.Cached = true
		return cached, nil
	}

	chain := r.selectChain(criteria)
	if len(chain) == 0 {
		return Result{}, fmt.Errorf("fallback: no gateway available for region %q", criteria.UserRegion)
	}

	var errs []AttemptError
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.RetryBaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	for _, gw := range chain {
		key := failureKey{gateway: gw.ID, cid: cid}
		if r.inFailureCache(key) {
			continue
		}

		if attempts > 0 {
			delay := bo.NextBackOff()
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		attempts++

		body, status, err := r.fetcher.Fetch(ctx, gw.url(cid))
		if err == nil && status >= 200 && status < 300 {
			result := Result{
				Success:  true,
				Gateway:  gw.ID,
				Region:   gw.Region,
				Attempts: attempts,
				Errors:   errs,
				Duration: time.Since(start),
			}
			r.storeResponse(cid, result)
			_ = body
			return result, nil
		}

		kind := classify(status, err)
		r.recordFailure(key, kind)
		errs = append(errs, AttemptError{Gateway: gw.ID, Kind: kind, Err: err})
		if !kind.retryable() {
			break
		}
	}

	return Result{
		Success:  false,
		Attempts: attempts,
		Errors:   errs,
		Duration: time.Since(start),
	}, fmt.Errorf("fallback: all gateways exhausted for cid %q", cid)
}

func (r *Resolver) lookupResponse(cid string) (Result, bool) {
	e, ok := r.responseCache.Get(cid)
	if !ok {
		return Result{}, false
	}
	if time.Since(e.insertedAt) > r.cfg.ResponseCacheTTL {
		r.responseCache.Remove(cid)
		return Result{}, false
	}
	return e.result, true
}

func (r *Resolver) storeResponse(cid string, result Result) {
	r.responseCache.Add(cid, responseEntry{result: result, insertedAt: time.Now()})
}

func (r *Resolver) inFailureCache(key failureKey) bool {
	e, ok := r.failureCache.Get(key)
	if !ok {
		return false
	}
	if time.Since(e.insertedAt) > r.cfg.FailureCacheTTL {
		r.failureCache.Remove(key)
		return false
	}
	return true
}

func (r *Resolver) recordFailure(key failureKey, kind ErrorKind) {
	r.failureCache.Add(key, failureEntry{kind: kind, insertedAt: time.Now()})
}

// selectChain implements select_gateway: the lowest-latency healthy
// region gateway meeting criteria is primary; the rest of the region's
// gateways follow in latency order; a fixed public-gateway tail is
// appended, deduplicated against anything already in the chain.
func (r *Resolver) selectChain(criteria Criteria) []Gateway {
	var region []Gateway
	var public []Gateway
	for _, gw := range r.gateways {
		if gw.Public {
			public = append(public, gw)
			continue
		}
		if gw.Region == criteria.UserRegion {
			region = append(region, gw)
		}
	}

	sort.SliceStable(region, func(i, j int) bool {
		hi, iok := r.health.GatewayHealth(region[i].ID)
		hj, jok := r.health.GatewayHealth(region[j].ID)
		li, lj := time.Duration(1<<62), time.Duration(1<<62)
		if iok {
			li = hi.Latency
		}
		if jok {
			lj = hj.Latency
		}
		return li < lj
	})

	primaryIdx := -1
	for i, gw := range region {
		h, ok := r.health.GatewayHealth(gw.ID)
		if !ok || !h.Available {
			continue
		}
		if criteria.MaxLatency > 0 && h.Latency > criteria.MaxLatency {
			continue
		}
		if criteria.MinSuccessRate > 0 && h.SuccessRate < criteria.MinSuccessRate {
			continue
		}
		primaryIdx = i
		break
	}

	var chain []Gateway
	seen := map[string]bool{}
	if primaryIdx >= 0 {
		chain = append(chain, region[primaryIdx])
		seen[region[primaryIdx].ID] = true
	}
	for i, gw := range region {
		if i == primaryIdx || seen[gw.ID] {
			continue
		}
		chain = append(chain, gw)
		seen[gw.ID] = true
	}
	for _, gw := range public {
		if seen[gw.ID] {
			continue
		}
		chain = append(chain, gw)
		seen[gw.ID] = true
	}
	return chain
}
