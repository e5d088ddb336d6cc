// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boundaryctl",
	Short: "Boundary Network operator CLI",
	Long: `boundaryctl ingests, snapshots, publishes, and resolves legislative and
municipal boundary data against the Boundary Network's registry,
Merkle-commitment snapshots, and content-addressed distribution layer.`,
}

func main() {
	rootCmd.AddCommand(
		ingestCmd(),
		snapshotCmd(),
		publishCmd(),
		resolveCmd(),
		statusCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeOf(err))
	}
}

func exitCodeOf(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
