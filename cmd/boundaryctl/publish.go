// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/boundarynet/core/internal/coordinator"
	"github.com/boundarynet/core/internal/logging"
	"github.com/boundarynet/core/internal/pin"
	"github.com/spf13/cobra"
)

func publishCmd() *cobra.Command {
	var (
		regionsFlag       string
		rolloutPath       string
		inputPath         string
		requiredSuccesses int
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Execute a phased rollout of a snapshot blob across regional pinning services",
		RunE: func(cmd *cobra.Command, args []string) error {
			regionNames := strings.Split(regionsFlag, ",")
			regions := map[string]coordinator.RegionalPinner{}
			var warnings []string
			for _, name := range regionNames {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				rs, rWarnings := pin.BuildRegionalServiceFromEnv(name)
				if len(rs.Entries) == 0 {
					warnings = append(warnings, fmt.Sprintf("region %s: no backends configured, skipping", name))
					continue
				}
				regions[name] = rs
				warnings = append(warnings, rWarnings...)
			}
			if len(regions) == 0 {
				return withExitCode(exitConfigError, fmt.Errorf("no region has a configured pinning backend"))
			}

			rolloutRaw, err := os.ReadFile(rolloutPath)
			if err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("read rollout file: %w", err))
			}
			var rollout coordinator.Rollout
			if err := json.Unmarshal(rolloutRaw, &rollout); err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("parse rollout file: %w", err))
			}

			blob, err := os.ReadFile(inputPath)
			if err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("read input blob: %w", err))
			}

			log, err := logging.NewProduction()
			if err != nil {
				log = logging.NewNoOp()
			}
			coord := coordinator.New(regions, log)

			result, err := coord.Publish(cmd.Context(), rollout, blob, requiredSuccesses)
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if err != nil {
				return withExitCode(exitNetworkError, err)
			}

			return encodeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&regionsFlag, "regions", "", "comma-separated region names to publish to")
	cmd.Flags().StringVar(&rolloutPath, "rollout", "", "path to a JSON rollout plan (phases + rollback_on_failure)")
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the snapshot blob to publish")
	cmd.Flags().IntVar(&requiredSuccesses, "required-successes", 1, "number of backend pins required per region for that region to count as successful")
	cmd.MarkFlagRequired("regions")
	cmd.MarkFlagRequired("rollout")
	cmd.MarkFlagRequired("input")

	return cmd
}
