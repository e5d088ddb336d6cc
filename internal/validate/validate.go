// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validate implements the Ingestion Validator: a tiered pipeline
// gated by registry lookups, structural parsing, sanity checks, and the
// full tessellation proof, per spec §4.6.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boundarynet/core/internal/geometry"
	"github.com/boundarynet/core/internal/mbr"
	"github.com/boundarynet/core/internal/registry"
	"github.com/boundarynet/core/internal/sanity"
	"github.com/boundarynet/core/internal/tessellation"
)

// Tier names how far the pipeline should run.
type Tier int

const (
	TierStructure Tier = iota
	TierSanity
	TierFull
)

// Stage names which gate produced the (possibly successful) result.
type Stage string

const (
	StageRegistryQuarantine Stage = "registry_quarantine"
	StageRegistryAtLarge    Stage = "registry_at_large"
	StageStructure          Stage = "structure"
	StageSanity             Stage = "sanity"
	StageFull               Stage = "full"
)

// Candidate is one ingestion attempt: a FIPS code and the source URL for
// its district feature collection.
type Candidate struct {
	FIPS          string
	URL           string
	ExpectedCount *int // overrides the registry's expected count in the full tier, if set; the sanity tier still uses the registry's count
}

// Result is always returned, successful or not, with the stage reached,
// diagnostics from the last attempted check, and a remediation string.
type Result struct {
	Passed          bool
	Stage           Stage
	Warning         string
	SanityResult    *sanity.Result
	TessellationResult *tessellation.Result
	RemediationHint string
	Err             error
}

// maxFeatures is the spec §4.6 structural cap: more than 100 features in
// one candidate is "almost always wrong granularity."
const maxFeatures = 100

// FeatureFetcher retrieves the raw bytes of a candidate district feature
// collection. Discovery of which URL serves a given FIPS (TIGER, ArcGIS,
// Socrata) is explicitly out of scope (spec §1); this interface starts
// from an already-known URL.
type FeatureFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the default FeatureFetcher.
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPFetcher builds an HTTPFetcher with the spec's configurable timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{Client: &http.Client{}, Timeout: timeout}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

// Validator runs the tiered pipeline over a registry store, a municipal
// boundary resolver, and a feature fetcher.
type Validator struct {
	Registry       *registry.Store
	MBR            *mbr.Resolver
	Fetcher        FeatureFetcher
	SanityConfig   sanity.Config
	TessConfig     tessellation.Config
	Exceptions     map[string]tessellation.Exception
	// FIPSCorrections rewrites an incorrect county FIPS to a city FIPS
	// before any other check runs, per spec §4.6.
	FIPSCorrections map[string]string
}

// featureCollection mirrors the loosely-typed wire shape a candidate
// source returns: a GeoJSON-adjacent FeatureCollection of polygons or
// multipolygons, one per district.
type featureCollection struct {
	Type     string           `json:"type"`
	Features []collectionItem `json:"features"`
}

type collectionItem struct {
	Geometry *rawGeometry `json:"geometry"`
}

type rawGeometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// Validate runs the full pipeline (TierFull), stopping at the first
// failed gate.
func (v *Validator) Validate(ctx context.Context, c Candidate) (Result, error) {
	return v.validateTier(ctx, c, TierFull)
}

// ValidateTier runs the pipeline up to (and including) tier.
func (v *Validator) ValidateTier(ctx context.Context, c Candidate, tier Tier) (Result, error) {
	return v.validateTier(ctx, c, tier)
}

func (v *Validator) validateTier(ctx context.Context, c Candidate, tier Tier) (Result, error) {
	fips := c.FIPS
	if corrected, ok := v.FIPSCorrections[fips]; ok {
		fips = corrected
	}

	// 1. Registry gates: no network I/O before these resolve.
	if v.Registry != nil {
		if _, quarantined := v.Registry.Quarantined(fips); quarantined {
			return Result{
				Passed: false, Stage: StageRegistryQuarantine,
				RemediationHint: "fips is quarantined: resolve the underlying data issue and restore via the audit trail before re-ingesting",
			}, nil
		}
		if _, atLarge := v.Registry.AtLarge(fips); atLarge {
			return Result{
				Passed: false, Stage: StageRegistryAtLarge,
				RemediationHint: "fips is classified at-large: district tessellation does not apply to this council",
			}, nil
		}
	}

	// 2. Structure tier.
	raw, err := v.Fetcher.Fetch(ctx, c.URL)
	if err != nil {
		return Result{Passed: false, Stage: StageStructure, Err: err, RemediationHint: "source fetch failed: confirm the URL is reachable and the portal has not changed its endpoint"}, nil
	}
	districts, structErr := parseFeatureCollection(raw)
	if structErr != nil {
		return Result{Passed: false, Stage: StageStructure, Err: structErr, RemediationHint: structureHint(structErr)}, nil
	}
	if tier == TierStructure {
		return Result{Passed: true, Stage: StageStructure}, nil
	}

	// 3. Sanity tier.
	if v.MBR == nil {
		return Result{}, fmt.Errorf("validate: sanity tier requires an MBR resolver")
	}
	municipality, err := v.MBR.Resolve(ctx, fips)
	if err != nil {
		return Result{Passed: false, Stage: StageSanity, Err: err, RemediationHint: "municipal boundary could not be resolved; cannot run sanity checks"}, nil
	}
	expectedForSanity := len(districts)
	if entry, ok := v.Registry.ExpectedCount(fips); ok {
		expectedForSanity = entry.ExpectedDistricts
	}
	sres, err := sanity.Run(v.SanityConfig, municipality.Polygon, districts, expectedForSanity)
	if err != nil {
		return Result{}, fmt.Errorf("validate: sanity: %w", err)
	}
	if !sres.Valid {
		return Result{
			Passed: false, Stage: StageSanity, SanityResult: &sres,
			RemediationHint: sanityHint(sres),
		}, nil
	}
	if tier == TierSanity {
		return Result{Passed: true, Stage: StageSanity, SanityResult: &sres}, nil
	}

	// 4. Full tier.
	expectedCount := len(districts)
	warning := ""
	if c.ExpectedCount != nil {
		expectedCount = *c.ExpectedCount
	} else if entry, ok := v.Registry.ExpectedCount(fips); ok {
		expectedCount = entry.ExpectedDistricts
	} else {
		warning = fmt.Sprintf("no registered expected count for fips %s; using actual feature count (%d) as expected", fips, expectedCount)
	}

	var landArea, waterArea *float64
	if municipality.LandArea > 0 {
		la := municipality.LandArea
		landArea = &la
	}
	if municipality.WaterArea > 0 {
		wa := municipality.WaterArea
		waterArea = &wa
	}

	// AuthoritativeUnionArea is left nil: no portal this resolver talks to
	// publishes a real-world area for a computed union of district
	// polygons, only for the municipal boundary itself (landArea,
	// waterArea above). tessellation.Prove converts the union's raw
	// geometry.Area through the same square-meter scale factor it applies
	// to the municipal area, so the exhaustivity ratio never mixes units.
	tin := tessellation.Input{
		Districts:             districts,
		Municipal:             municipality.Polygon,
		ExpectedCount:         expectedCount,
		AuthoritativeLandArea: landArea,
		WaterArea:             waterArea,
		FIPS:                  fips,
	}
	tres, err := tessellation.Prove(v.TessConfig, tin, v.Exceptions)
	if err != nil {
		return Result{}, fmt.Errorf("validate: tessellation: %w", err)
	}
	if !tres.Valid {
		return Result{
			Passed: false, Stage: StageFull, TessellationResult: &tres,
			Warning: warning, RemediationHint: tres.RemediationHint,
		}, nil
	}
	return Result{Passed: true, Stage: StageFull, TessellationResult: &tres, Warning: warning}, nil
}

func structureHint(err error) string {
	return fmt.Sprintf("structural parse failed: %v — confirm the source serves a polygon/multipolygon feature collection", err)
}

func sanityHint(res sanity.Result) string {
	if res.FailedCheck == sanity.CheckCentroidProximity {
		return fmt.Sprintf("wrong jurisdiction: district union centroid is %.0fm from the municipal centroid", res.CentroidDistance)
	}
	return fmt.Sprintf("wrong granularity: feature count ratio %.2f is outside tolerance (%d actual vs %d expected)", res.FeatureCountRatio, res.ActualFeatures, res.ExpectedFeatures)
}

func parseFeatureCollection(raw []byte) ([]geometry.Polygon, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("malformed feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unexpected type %q, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("feature collection is empty")
	}
	if len(fc.Features) > maxFeatures {
		return nil, fmt.Errorf("feature collection has %d features, exceeding the %d-feature structural cap", len(fc.Features), maxFeatures)
	}

	polys := make([]geometry.Polygon, 0, len(fc.Features))
	for i, feat := range fc.Features {
		if feat.Geometry == nil {
			return nil, fmt.Errorf("feature %d missing geometry", i)
		}
		switch feat.Geometry.Type {
		case "Polygon":
			rings, err := decodeRings(feat.Geometry.Coordinates)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			polys = append(polys, geometry.Rewind(ringsToPolygon(rings)))
		case "MultiPolygon":
			raw, ok := feat.Geometry.Coordinates.([]interface{})
			if !ok {
				return nil, fmt.Errorf("feature %d: malformed multipolygon", i)
			}
			for _, polyRaw := range raw {
				rings, err := decodeRings(polyRaw)
				if err != nil {
					return nil, fmt.Errorf("feature %d: %w", i, err)
				}
				polys = append(polys, geometry.Rewind(ringsToPolygon(rings)))
			}
		default:
			return nil, fmt.Errorf("feature %d has unsupported geometry type %q", i, feat.Geometry.Type)
		}
	}
	return polys, nil
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
		return nil, fmt.Errorf("coordinates malformed")
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
