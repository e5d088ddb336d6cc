// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"time"

	"github.com/boundarynet/core/internal/mbr"
	"github.com/boundarynet/core/internal/registry"
	"github.com/boundarynet/core/internal/sanity"
	"github.com/boundarynet/core/internal/tessellation"
	"github.com/boundarynet/core/internal/validate"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var (
		registryDir    string
		fips           string
		url            string
		tier           string
		expectedCount  int
		mbrURLTemplate string
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Validate one candidate district feature collection against the registry and tessellation axioms",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Open(registryDir)
			if err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("open registry: %w", err))
			}

			source := mbr.NewHTTPSource(mbrURLTemplate, timeout)
			resolver := mbr.NewResolver(source, nil)

			v := &validate.Validator{
				Registry:     reg,
				MBR:          resolver,
				Fetcher:      validate.NewHTTPFetcher(timeout),
				SanityConfig: sanity.NewConfig(),
				TessConfig:   tessellation.DefaultConfig(),
			}

			candidate := validate.Candidate{FIPS: fips, URL: url}
			if expectedCount > 0 {
				candidate.ExpectedCount = &expectedCount
			}

			t, err := parseTier(tier)
			if err != nil {
				return withExitCode(exitConfigError, err)
			}

			res, err := v.ValidateTier(cmd.Context(), candidate, t)
			if err != nil {
				return withExitCode(exitNetworkError, err)
			}

			if err := encodeJSON(cmd, res); err != nil {
				return err
			}

			if !res.Passed {
				return withExitCode(exitValidationError, fmt.Errorf("%s: %s", fips, res.RemediationHint))
			}
			if res.Warning != "" {
				return withExitCode(exitValidationWarn, fmt.Errorf("%s: %s", fips, res.Warning))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&registryDir, "registry-dir", "./registry", "directory holding the registry tables")
	cmd.Flags().StringVar(&fips, "fips", "", "7-digit FIPS code")
	cmd.Flags().StringVar(&url, "url", "", "source URL for the district feature collection")
	cmd.Flags().StringVar(&tier, "tier", "full", "validation tier: structure|sanity|full")
	cmd.Flags().IntVar(&expectedCount, "expected-count", 0, "override the registry's expected district count")
	cmd.Flags().StringVar(&mbrURLTemplate, "mbr-url-template", "https://boundaries.example/municipal/%s.geojson", "municipal boundary source URL template, one %s for the FIPS code")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	cmd.MarkFlagRequired("fips")
	cmd.MarkFlagRequired("url")

	return cmd
}

func parseTier(s string) (validate.Tier, error) {
	switch s {
	case "structure":
		return validate.TierStructure, nil
	case "sanity":
		return validate.TierSanity, nil
	case "full":
		return validate.TierFull, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}
