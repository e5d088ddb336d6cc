// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package resolver implements the Boundary Resolver: geocoder
// composition, precision-ordered PIP resolution, temporal validity
// filtering, and an LRU cache, per spec §4.7.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/boundarynet/core/internal/geometry"
	"github.com/boundarynet/core/internal/pip"
)

// Error taxonomy from spec §4.7.
var (
	ErrGeocodeFailed     = errors.New("resolver: geocode failed")
	ErrLowConfidence     = errors.New("resolver: geocode confidence below threshold")
	ErrNoBoundaryMatch   = errors.New("resolver: no boundary matched the resolved point")
	ErrDataSourceUnavail = errors.New("resolver: boundary data source unavailable")
)

// GeocodeResult is what a Geocoder returns for an address.
type GeocodeResult struct {
	Lat        float64
	Lng        float64
	Confidence float64 // 0-100
	MatchType  string
}

// Geocoder turns a free-text address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}

// TemporalBoundary extends pip.Boundary with the validity interval spec
// §4.7's temporal filter checks: "discard any boundary whose validity
// interval does not contain the query time (validUntil exclusive)."
type TemporalBoundary struct {
	pip.Boundary
	ValidFrom  time.Time
	ValidUntil *time.Time // nil means "still valid"
}

func (b TemporalBoundary) validAt(t time.Time) bool {
	if t.Before(b.ValidFrom) {
		return false
	}
	if b.ValidUntil != nil && !t.Before(*b.ValidUntil) {
		return false
	}
	return true
}

// DataSource supplies the candidate boundaries for a point-in-time query.
type DataSource interface {
	Boundaries(ctx context.Context) ([]TemporalBoundary, error)
}

// Config tunes the resolver.
type Config struct {
	// MinGeocodeConfidence rejects geocodes below this score. Default 80.
	MinGeocodeConfidence float64
	// CacheSize bounds LRU entry count. Default 10_000.
	CacheSize int
	// CacheTTL bounds per-entry lifetime. Default 1 hour.
	CacheTTL time.Duration
	// CoordQuantization rounds (lat,lng) cache keys to this many decimal
	// places, so nearby queries share a cache entry. Default 5 (~1.1m).
	CoordQuantization int
}

func (c Config) withDefaults() Config {
	if c.MinGeocodeConfidence <= 0 {
		c.MinGeocodeConfidence = 80
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 10_000
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.CoordQuantization <= 0 {
		c.CoordQuantization = 5
	}
	return c
}

// Result is what Resolve returns for a query.
type Result struct {
	Boundaries []TemporalBoundary
	Finest     *TemporalBoundary
	Cached     bool
}

type cacheEntry struct {
	result    Result
	insertedAt time.Time
}

// Resolver composes a Geocoder, a DataSource, and an LRU response cache.
type Resolver struct {
	cfg      Config
	geocoder Geocoder
	source   DataSource
	cache    *lru.Cache[string, cacheEntry]
}

// New builds a Resolver.
func New(cfg Config, geocoder Geocoder, source DataSource) (*Resolver, error) {
	cfg = cfg.withDefaults()
	cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("resolver: building cache: %w", err)
	}
	return &Resolver{cfg: cfg, geocoder: geocoder, source: source, cache: cache}, nil
}

// ResolveAddress geocodes address, then resolves the containing
// boundaries at queryTime.
func (r *Resolver) ResolveAddress(ctx context.Context, address string, queryTime time.Time) (Result, error) {
	key := "addr:" + address
	if cached, ok := r.lookupCache(key); ok {
		return cached, nil
	}

	geo, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	if geo.Confidence < r.cfg.MinGeocodeConfidence {
		return Result{}, fmt.Errorf("%w: %.1f < %.1f", ErrLowConfidence, geo.Confidence, r.cfg.MinGeocodeConfidence)
	}

	res, err := r.resolvePoint(ctx, geometry.Point{X: geo.Lng, Y: geo.Lat}, queryTime)
	if err != nil {
		return Result{}, err
	}
	r.insertCache(key, res)
	return res, nil
}

// ResolveCoordinate resolves a raw (lat,lng) pair without geocoding.
func (r *Resolver) ResolveCoordinate(ctx context.Context, lat, lng float64, queryTime time.Time) (Result, error) {
	key := r.coordKey(lat, lng)
	if cached, ok := r.lookupCache(key); ok {
		return cached, nil
	}
	res, err := r.resolvePoint(ctx, geometry.Point{X: lng, Y: lat}, queryTime)
	if err != nil {
		return Result{}, err
	}
	r.insertCache(key, res)
	return res, nil
}

func (r *Resolver) resolvePoint(ctx context.Context, pt geometry.Point, queryTime time.Time) (Result, error) {
	all, err := r.source.Boundaries(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDataSourceUnavail, err)
	}

	var live []TemporalBoundary
	for _, b := range all {
		if b.validAt(queryTime) {
			live = append(live, b)
		}
	}

	plain := make([]pip.Boundary, len(live))
	for i, b := range live {
		plain[i] = b.Boundary
	}
	matchedPlain := pip.FindContainingBoundaries(pt, plain)
	if len(matchedPlain) == 0 {
		return Result{}, ErrNoBoundaryMatch
	}

	byID := make(map[string]TemporalBoundary, len(live))
	for _, b := range live {
		byID[b.ID] = b
	}
	matched := make([]TemporalBoundary, len(matchedPlain))
	for i, m := range matchedPlain {
		matched[i] = byID[m.ID]
	}

	finest := matched[0]
	return Result{Boundaries: matched, Finest: &finest}, nil
}

func (r *Resolver) coordKey(lat, lng float64) string {
	scale := math.Pow(10, float64(r.cfg.CoordQuantization))
	qlat := math.Round(lat*scale) / scale
	qlng := math.Round(lng*scale) / scale
	return fmt.Sprintf("coord:%.*f,%.*f", r.cfg.CoordQuantization, qlat, r.cfg.CoordQuantization, qlng)
}

func (r *Resolver) lookupCache(key string) (Result, bool) {
	entry, ok := r.cache.Get(key)
	if !ok {
		return Result{}, false
	}
	if time.Since(entry.insertedAt) > r.cfg.CacheTTL {
		r.cache.Remove(key)
		return Result{}, false
	}
	res := entry.result
	res.Cached = true
	return res, true
}

func (r *Resolver) insertCache(key string, res Result) {
	res.Cached = false
	r.cache.Add(key, cacheEntry{result: res, insertedAt: time.Now()})
}

// ClearCache empties the response cache.
func (r *Resolver) ClearCache() {
	r.cache.Purge()
}
