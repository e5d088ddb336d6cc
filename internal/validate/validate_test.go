// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package validate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/boundarynet/core/internal/mbr"
	"github.com/boundarynet/core/internal/registry"
	"github.com/boundarynet/core/internal/sanity"
	"github.com/boundarynet/core/internal/tessellation"
)

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) ([]byte, error) { return f.body, f.err }

type fakeMBRSource struct{ body []byte }

func (f *fakeMBRSource) Fetch(_ context.Context, _ string) ([]byte, error) { return f.body, nil }

const twoDistrictCollection = `{
	"type": "FeatureCollection",
	"features": [
		{"geometry": {"type": "Polygon", "coordinates": [[[0,0],[5,0],[5,10],[0,10],[0,0]]]}},
		{"geometry": {"type": "Polygon", "coordinates": [[[5,0],[10,0],[10,10],[5,10],[5,0]]]}}
	]
}`

// landArea is in square meters: about 1.2317e12 m² is the area of the
// 10°×10° polygon below at its mid-latitude of 5°.
const municipalFeature = `{
	"name": "Example City", "state": "CA", "landArea": 1231726000000, "waterArea": 0,
	"geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}
}`

func newTestValidator(t *testing.T, fetchBody []byte) *Validator {
	t.Helper()
	store, err := registry.Open(t.TempDir())
	require.NoError(t, err)
	mbrResolver := mbr.NewResolver(&fakeMBRSource{body: []byte(municipalFeature)}, nil)
	return &Validator{
		Registry:     store,
		MBR:          mbrResolver,
		Fetcher:      &fakeFetcher{body: fetchBody},
		SanityConfig: sanity.NewConfig(),
		TessConfig:   tessellation.DefaultConfig(),
	}
}

func TestValidate_QuarantineGateShortCircuits(t *testing.T) {
	v := newTestValidator(t, []byte(twoDistrictCollection))
	require.NoError(t, v.Registry.PutQuarantine(registry.QuarantineEntry{
		FIPS: "0622000", Pattern: registry.FailureContainmentFailure,
	}))
	v.Fetcher = &fakeFetcher{err: fmt.Errorf("should never be called")}

	res, err := v.Validate(context.Background(), Candidate{FIPS: "0622000", URL: "https://example.test"})
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Equal(t, StageRegistryQuarantine, res.Stage)
}

func TestValidate_AtLargeGateShortCircuits(t *testing.T) {
	v := newTestValidator(t, []byte(twoDistrictCollection))
	require.NoError(t, v.Registry.PutAtLarge(registry.AtLargeEntry{
		FIPS: "0622000", ElectionMethod: registry.ElectionAtLarge,
	}))

	res, err := v.ValidateTier(context.Background(), Candidate{FIPS: "0622000", URL: "https://example.test"}, TierStructure)
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Equal(t, StageRegistryAtLarge, res.Stage)
}

func TestValidate_FIPSCorrectionAppliesBeforeGates(t *testing.T) {
	v := newTestValidator(t, []byte(twoDistrictCollection))
	v.FIPSCorrections = map[string]string{"0600000": "0622000"} // county -> city
	require.NoError(t, v.Registry.PutQuarantine(registry.QuarantineEntry{
		FIPS: "0622000", Pattern: registry.FailureOther,
	}))

	res, err := v.ValidateTier(context.Background(), Candidate{FIPS: "0600000", URL: "https://example.test"}, TierStructure)
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Equal(t, StageRegistryQuarantine, res.Stage)
}

func TestValidate_StructureTierRejectsEmpty(t *testing.T) {
	v := newTestValidator(t, []byte(`{"type":"FeatureCollection","features":[]}`))
	res, err := v.ValidateTier(context.Background(), Candidate{FIPS: "1", URL: "x"}, TierStructure)
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Equal(t, StageStructure, res.Stage)
}

func TestValidate_StructureTierPasses(t *testing.T) {
	v := newTestValidator(t, []byte(twoDistrictCollection))
	res, err := v.ValidateTier(context.Background(), Candidate{FIPS: "0622000", URL: "x"}, TierStructure)
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.Equal(t, StageStructure, res.Stage)
}

func TestValidate_FullTierPasses(t *testing.T) {
	v := newTestValidator(t, []byte(twoDistrictCollection))
	require.NoError(t, v.Registry.PutExpectedCount(registry.ExpectedCountEntry{
		FIPS: "0622000", ExpectedDistricts: 2, Governance: registry.GovernanceDistrictBased,
	}))

	res, err := v.Validate(context.Background(), Candidate{FIPS: "0622000", URL: "x"})
	require.NoError(t, err)
	require.True(t, res.Passed, "hint: %s", res.RemediationHint)
	require.Equal(t, StageFull, res.Stage)
	require.Empty(t, res.Warning)
}

func TestValidate_FullTierMissingRegistryWarns(t *testing.T) {
	v := newTestValidator(t, []byte(twoDistrictCollection))
	res, err := v.Validate(context.Background(), Candidate{FIPS: "0622000", URL: "x"})
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.NotEmpty(t, res.Warning)
}

func TestValidateBatch_BoundedConcurrency(t *testing.T) {
	v := newTestValidator(t, []byte(twoDistrictCollection))
	require.NoError(t, v.Registry.PutExpectedCount(registry.ExpectedCountEntry{
		FIPS: "0622000", ExpectedDistricts: 2, Governance: registry.GovernanceDistrictBased,
	}))

	candidates := make([]Candidate, 10)
	for i := range candidates {
		candidates[i] = Candidate{FIPS: "0622000", URL: "x"}
	}
	results, err := v.ValidateBatch(context.Background(), candidates, TierFull, 3)
	require.NoError(t, err)
	require.Len(t, results, 10)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.True(t, r.Result.Passed)
	}
}
