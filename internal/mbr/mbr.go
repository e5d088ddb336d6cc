// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mbr implements the Municipal Boundary Resolver: resolving a
// FIPS code to a single authoritative municipal polygon plus land and
// water area, per spec §4.3.
package mbr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/boundarynet/core/internal/geometry"
)

// Failure modes named in spec §4.3.
var (
	ErrNotFound        = errors.New("mbr: fips not found")
	ErrFetchFailed     = errors.New("mbr: fetch failed")
	ErrInvalidGeometry = errors.New("mbr: invalid geometry")
)

// Municipality is the resolved authoritative boundary for one FIPS code.
type Municipality struct {
	FIPS      string
	Name      string
	State     string
	Polygon   geometry.MultiPolygon
	LandArea  float64 // square meters
	WaterArea float64 // square meters; zero for inland jurisdictions
}

// Source looks up the raw authoritative feature for a FIPS code. Each
// government GIS portal this ships against (TIGER, ArcGIS REST, Socrata)
// gets its own Source implementation outside this package; discovery
// heuristics for which portal serves which FIPS are explicitly out of
// scope (spec §1).
type Source interface {
	Fetch(ctx context.Context, fips string) ([]byte, error)
}

// HTTPSource fetches a municipal boundary feature from a templated URL,
// one GET per FIPS code.
type HTTPSource struct {
	Client      *http.Client
	URLTemplate string // must contain exactly one "%s", substituted with the FIPS code
}

// NewHTTPSource builds an HTTPSource with sane client defaults.
func NewHTTPSource(urlTemplate string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		Client:      &http.Client{Timeout: timeout},
		URLTemplate: urlTemplate,
	}
}

func (h *HTTPSource) Fetch(ctx context.Context, fips string) ([]byte, error) {
	url := fmt.Sprintf(h.URLTemplate, fips)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return body, nil
}

// feature is the on-wire shape this package expects from a Source: a
// single-feature GeoJSON-adjacent document carrying one municipality's
// polygon or multipolygon plus its land/water area attributes. The exact
// upstream schema varies by portal; callers wanting a different wire
// shape provide their own Source and adapt it to this before calling
// resolveFeature, or implement Resolver directly.
type feature struct {
	Name      string          `json:"name"`
	State     string          `json:"state"`
	LandArea  float64         `json:"landArea"`
	WaterArea float64         `json:"waterArea"`
	Geometry  featureGeometry `json:"geometry"`
}

type featureGeometry struct {
	Type        string      `json:"type"` // "Polygon" or "MultiPolygon"
	Coordinates interface{} `json:"coordinates"`
}

// Resolver resolves FIPS codes to municipal boundaries.
type Resolver struct {
	source Source
	// retry governs the retry/backoff policy wrapped around every
	// fetch, per the spec's general network-I/O suspension-point rule
	// (§5): transient upstream failures are retried with exponential
	// backoff rather than surfaced as a hard fetch_failed on the first
	// hiccup.
	retry backoff.BackOff
}

// NewResolver builds a Resolver. If retry is nil, a default exponential
// backoff capped at 3 retries (4 attempts in all) is used.
func NewResolver(source Source, retry backoff.BackOff) *Resolver {
	if retry == nil {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = 10 * time.Second
		retry = backoff.WithMaxRetries(eb, 3)
	}
	return &Resolver{source: source, retry: retry}
}

// Resolve fetches and normalizes the authoritative polygon for fips.
func (r *Resolver) Resolve(ctx context.Context, fips string) (Municipality, error) {
	var raw []byte
	op := func() error {
		b, err := r.source.Fetch(ctx, fips)
		if errors.Is(err, ErrNotFound) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		raw = b
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(r.retry, ctx)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Municipality{}, err
		}
		return Municipality{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return resolveFeature(fips, raw)
}

func resolveFeature(fips string, raw []byte) (Municipality, error) {
	var f feature
	if err := json.Unmarshal(raw, &f); err != nil {
		return Municipality{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	mp, err := decodeGeometry(f.Geometry)
	if err != nil {
		return Municipality{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if len(mp) == 0 {
		return Municipality{}, fmt.Errorf("%w: empty geometry", ErrInvalidGeometry)
	}
	for _, poly := range mp {
		if err := geometry.ValidateRing(poly.Outer); err != nil {
			return Municipality{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
	}

	return Municipality{
		FIPS:      fips,
		Name:      f.Name,
		State:     f.State,
		Polygon:   mp,
		LandArea:  f.LandArea,
		WaterArea: f.WaterArea,
	}, nil
}

// decodeGeometry converts the feature's loosely-typed GeoJSON coordinate
// arrays into a geometry.MultiPolygon, rewinding every ring to the
// canonical CCW-outer/CW-hole orientation.
func decodeGeometry(g featureGeometry) (geometry.MultiPolygon, error) {
	switch g.Type {
	case "Polygon":
		rings, err := decodeRings(g.Coordinates)
		if err != nil {
			return nil, err
		}
		poly := ringsToPolygon(rings)
		return geometry.MultiPolygon{geometry.Rewind(poly)}, nil
	case "MultiPolygon":
		raw, ok := g.Coordinates.([]interface{})
		if !ok {
			return nil, fmt.Errorf("multipolygon coordinates malformed")
		}
		mp := make(geometry.MultiPolygon, 0, len(raw))
		for _, polyRaw := range raw {
			rings, err := decodeRings(polyRaw)
			if err != nil {
				return nil, err
			}
			mp = append(mp, geometry.Rewind(ringsToPolygon(rings)))
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func ringsToPolygon(rings []geometry.Ring) geometry.Polygon {
	if len(rings) == 0 {
		return geometry.Polygon{}
	}
	return geometry.Polygon{Outer: rings[0], Holes: rings[1:]}
}

func decodeRings(coords interface{}) ([]geometry.Ring, error) {
	raw, ok := coords.([]interface{})
	if !ok {
		return nil, fmt.Errorf("polygon coordinates malformed")
	}
	rings := make([]geometry.Ring, 0, len(raw))
	for _, ringRaw := range raw {
		ringArr, ok := ringRaw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("ring malformed")
		}
		ring := make(geometry.Ring, 0, len(ringArr))
		for _, ptRaw := range ringArr {
			ptArr, ok := ptRaw.([]interface{})
			if !ok || len(ptArr) < 2 {
				return nil, fmt.Errorf("point malformed")
			}
			x, ok1 := ptArr[0].(float64)
			y, ok2 := ptArr[1].(float64)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("point coordinates not numeric")
			}
			ring = append(ring, geometry.Point{X: x, Y: y})
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// IsCoastal reports whether water area exceeds the ratio the spec uses
// to classify a jurisdiction coastal for Tessellation Prover MAX_COVERAGE
// purposes (spec §4.5).
func (m Municipality) IsCoastal(threshold float64) bool {
	total := m.LandArea + m.WaterArea
	if total <= 0 {
		return false
	}
	return m.WaterArea/total > threshold
}
