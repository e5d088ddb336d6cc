// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/boundarynet/core/internal/geometry"
	"github.com/boundarynet/core/internal/pip"
	"github.com/boundarynet/core/internal/resolver"
	"github.com/spf13/cobra"
)

// jsonBoundary is the on-disk shape accepted by --boundaries: a flat
// snapshot of the candidate set, since wiring a live geocoder and
// registry-backed data source is thin glue out of scope for this CLI.
type jsonBoundary struct {
	ID         string           `json:"id"`
	Precision  string           `json:"precision"`
	Geometry   jsonMultiPolygon `json:"geometry"`
	ValidFrom  time.Time        `json:"valid_from"`
	ValidUntil *time.Time       `json:"valid_until,omitempty"`
}

type jsonRing [][2]float64
type jsonPolygon struct {
	Outer jsonRing   `json:"outer"`
	Holes []jsonRing `json:"holes,omitempty"`
}
type jsonMultiPolygon []jsonPolygon

func toMultiPolygon(mp jsonMultiPolygon) geometry.MultiPolygon {
	out := make(geometry.MultiPolygon, len(mp))
	for i, p := range mp {
		out[i] = geometry.Polygon{
			Outer: toRing(p.Outer),
			Holes: toRings(p.Holes),
		}
	}
	return out
}

func toRing(r jsonRing) geometry.Ring {
	out := make(geometry.Ring, len(r))
	for i, pt := range r {
		out[i] = geometry.Point{X: pt[0], Y: pt[1]}
	}
	return out
}

func toRings(rs []jsonRing) []geometry.Ring {
	out := make([]geometry.Ring, len(rs))
	for i, r := range rs {
		out[i] = toRing(r)
	}
	return out
}

func resolveCmd() *cobra.Command {
	var (
		boundariesPath string
		lat, lng       float64
		address        string
		at             string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an address or coordinate to its containing legislative and municipal boundaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			boundaries, err := loadBoundaries(boundariesPath)
			if err != nil {
				return withExitCode(exitConfigError, err)
			}

			queryTime := time.Now().UTC()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return withExitCode(exitConfigError, fmt.Errorf("parse --at: %w", err))
				}
				queryTime = parsed
			}

			res, err := resolver.New(resolver.Config{}, noGeocoder{}, staticDataSource{boundaries: boundaries})
			if err != nil {
				return withExitCode(exitConfigError, err)
			}

			var result resolver.Result
			switch {
			case address != "":
				result, err = res.ResolveAddress(cmd.Context(), address, queryTime)
			default:
				result, err = res.ResolveCoordinate(cmd.Context(), lat, lng, queryTime)
			}
			if err != nil {
				return withExitCode(exitDataIntegrity, err)
			}

			return encodeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&boundariesPath, "boundaries", "", "path to a JSON array of candidate boundaries")
	cmd.Flags().Float64Var(&lat, "lat", 0, "query latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "query longitude")
	cmd.Flags().StringVar(&address, "address", "", "query address (requires a configured geocoder; unsupported by this CLI)")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 query time, defaults to now")
	cmd.MarkFlagRequired("boundaries")

	return cmd
}

func loadBoundaries(path string) ([]resolver.TemporalBoundary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries file: %w", err)
	}
	var entries []jsonBoundary
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse boundaries file: %w", err)
	}

	out := make([]resolver.TemporalBoundary, 0, len(entries))
	for _, e := range entries {
		mp := toMultiPolygon(e.Geometry)
		b := pip.NewBoundary(e.ID, pip.Precision(e.Precision), mp)
		out = append(out, resolver.TemporalBoundary{
			Boundary:   b,
			ValidFrom:  e.ValidFrom,
			ValidUntil: e.ValidUntil,
		})
	}
	return out, nil
}

// noGeocoder rejects every address lookup; this CLI only resolves
// coordinates unless a future release wires a real geocoding backend.
type noGeocoder struct{}

func (noGeocoder) Geocode(ctx context.Context, address string) (resolver.GeocodeResult, error) {
	return resolver.GeocodeResult{}, fmt.Errorf("%w: no geocoder configured for boundaryctl resolve --address", resolver.ErrGeocodeFailed)
}

// staticDataSource serves a fixed, preloaded candidate set, per
// --boundaries.
type staticDataSource struct {
	boundaries []resolver.TemporalBoundary
}

func (s staticDataSource) Boundaries(ctx context.Context) ([]resolver.TemporalBoundary, error) {
	return s.boundaries, nil
}
