// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package mbr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	responses map[string][]byte
	errs      map[string]error
	calls     int
}

func (f *fakeSource) Fetch(_ context.Context, fips string) ([]byte, error) {
	f.calls++
	if err, ok := f.errs[fips]; ok {
		return nil, err
	}
	return f.responses[fips], nil
}

const squareFeature = `{
	"name": "Example City",
	"state": "CA",
	"landArea": 1000000,
	"waterArea": 50000,
	"geometry": {
		"type": "Polygon",
		"coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]
	}
}`

func TestResolve_Success(t *testing.T) {
	src := &fakeSource{responses: map[string][]byte{"0622000": []byte(squareFeature)}}
	r := NewResolver(src, nil)

	m, err := r.Resolve(context.Background(), "0622000")
	require.NoError(t, err)
	require.Equal(t, "Example City", m.Name)
	require.Equal(t, "CA", m.State)
	require.Equal(t, 1000000.0, m.LandArea)
	require.Len(t, m.Polygon, 1)
	require.Len(t, m.Polygon[0].Outer, 5)
}

func TestResolve_NotFound(t *testing.T) {
	src := &fakeSource{errs: map[string]error{"9999999": ErrNotFound}}
	r := NewResolver(src, nil)

	_, err := r.Resolve(context.Background(), "9999999")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, src.calls, "not_found must be treated as permanent, no retries")
}

func TestResolve_InvalidGeometry(t *testing.T) {
	src := &fakeSource{responses: map[string][]byte{"1": []byte(`{"geometry":{"type":"Point"}}`)}}
	r := NewResolver(src, nil)

	_, err := r.Resolve(context.Background(), "1")
	require.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestResolve_FetchFailedRetriesThenFails(t *testing.T) {
	src := &fakeSource{errs: map[string]error{"1": errors.New("upstream 503")}}
	r := NewResolver(src, nil)

	_, err := r.Resolve(context.Background(), "1")
	require.ErrorIs(t, err, ErrFetchFailed)
	require.Greater(t, src.calls, 1, "transient failures must be retried")
}

func TestResolve_MultiPolygon(t *testing.T) {
	mpFeature := `{
		"name": "Archipelago City",
		"state": "WA",
		"landArea": 500000,
		"waterArea": 600000,
		"geometry": {
			"type": "MultiPolygon",
			"coordinates": [
				[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
				[[[5,5],[6,5],[6,6],[5,6],[5,5]]]
			]
		}
	}`
	src := &fakeSource{responses: map[string][]byte{"1": []byte(mpFeature)}}
	r := NewResolver(src, nil)

	m, err := r.Resolve(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, m.Polygon, 2)
	require.True(t, m.IsCoastal(0.15))
}

func TestIsCoastal_Thresholds(t *testing.T) {
	inland := Municipality{LandArea: 950000, WaterArea: 50000}
	require.False(t, inland.IsCoastal(0.15))

	coastal := Municipality{LandArea: 700000, WaterArea: 300000}
	require.True(t, coastal.IsCoastal(0.15))
}
