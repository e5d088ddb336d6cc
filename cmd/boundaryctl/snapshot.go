// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/boundarynet/core/internal/snapshot"
	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create, inspect, and diff Merkle-committed boundary snapshots",
	}

	cmd.AddCommand(
		snapshotCreateCmd(),
		snapshotListCmd(),
		snapshotDiffCmd(),
		snapshotProofCmd(),
		snapshotProofTemplatesCmd(),
	)
	return cmd
}

func openSnapshotManager(dir string) (*snapshot.Manager, error) {
	m, err := snapshot.OpenManager(dir)
	if err != nil {
		return nil, withExitCode(exitConfigError, fmt.Errorf("open snapshot manager: %w", err))
	}
	return m, nil
}

func snapshotCreateCmd() *cobra.Command {
	var (
		snapshotDir string
		refsPath    string
		vintage     string
		jobID       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Build and persist a new snapshot from a list of boundary references",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openSnapshotManager(snapshotDir)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(refsPath)
			if err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("read refs file: %w", err))
			}
			var refs []snapshot.BoundaryRef
			if err := json.Unmarshal(raw, &refs); err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("parse refs file: %w", err))
			}

			s, _, err := m.CreateSnapshot(refs, snapshot.Meta{Vintage: vintage, JobID: jobID})
			if err != nil {
				return withExitCode(exitDataIntegrity, err)
			}

			return encodeJSON(cmd, s)
		},
	}

	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "./snapshots", "directory holding versioned snapshots")
	cmd.Flags().StringVar(&refsPath, "refs", "", "path to a JSON array of boundary references")
	cmd.Flags().StringVar(&vintage, "vintage", "", "vintage label for this snapshot (e.g. 2026)")
	cmd.Flags().StringVar(&jobID, "job-id", "", "orchestrator job ID this snapshot was produced from, if any")
	cmd.MarkFlagRequired("refs")

	return cmd
}

func snapshotListCmd() *cobra.Command {
	var snapshotDir string

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the most recently created snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openSnapshotManager(snapshotDir)
			if err != nil {
				return err
			}
			s, ok := m.Latest()
			if !ok {
				return withExitCode(exitDataIntegrity, fmt.Errorf("no snapshots exist in %s", snapshotDir))
			}
			return encodeJSON(cmd, s)
		},
	}

	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "./snapshots", "directory holding versioned snapshots")
	return cmd
}

func snapshotDiffCmd() *cobra.Command {
	var (
		snapshotDir string
		from, to    int
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff layer counts and membership between two snapshot versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openSnapshotManager(snapshotDir)
			if err != nil {
				return err
			}
			d, err := m.Diff(from, to)
			if err != nil {
				return withExitCode(exitDataIntegrity, err)
			}
			return encodeJSON(cmd, d)
		},
	}

	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "./snapshots", "directory holding versioned snapshots")
	cmd.Flags().IntVar(&from, "from", 0, "source version")
	cmd.Flags().IntVar(&to, "to", 0, "target version")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func snapshotProofCmd() *cobra.Command {
	var (
		refsPath  string
		leafIndex int
	)

	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Rebuild a Merkle tree from a refs file and print the self-verified inclusion proof for one leaf (ad hoc; use proof-templates to read the persisted per-snapshot artifact)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(refsPath)
			if err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("read refs file: %w", err))
			}
			var refs []snapshot.BoundaryRef
			if err := json.Unmarshal(raw, &refs); err != nil {
				return withExitCode(exitConfigError, fmt.Errorf("parse refs file: %w", err))
			}

			tree, err := snapshot.BuildTree(refs)
			if err != nil {
				return withExitCode(exitDataIntegrity, err)
			}
			if leafIndex < 0 || leafIndex >= len(refs) {
				return withExitCode(exitConfigError, fmt.Errorf("leaf index %d out of range [0,%d)", leafIndex, len(refs)))
			}

			proof := tree.ProofFor(leafIndex)
			leaf, err := snapshot.EncodeLeaf(refs[leafIndex])
			if err != nil {
				return withExitCode(exitDataIntegrity, err)
			}
			if !snapshot.Verify(leaf, proof) {
				return withExitCode(exitDataIntegrity, fmt.Errorf("generated proof failed self-verification"))
			}

			return encodeJSON(cmd, proof)
		},
	}

	cmd.Flags().StringVar(&refsPath, "refs", "", "path to a JSON array of boundary references")
	cmd.Flags().IntVar(&leafIndex, "leaf-index", 0, "index of the leaf to prove")
	cmd.MarkFlagRequired("refs")
	return cmd
}

func snapshotProofTemplatesCmd() *cobra.Command {
	var (
		snapshotDir string
		version     int
	)

	cmd := &cobra.Command{
		Use:   "proof-templates",
		Short: "Print the persisted per-district inclusion proof templates for a snapshot version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openSnapshotManager(snapshotDir)
			if err != nil {
				return err
			}
			doc, err := m.ProofTemplates(version)
			if err != nil {
				return withExitCode(exitDataIntegrity, err)
			}
			return encodeJSON(cmd, doc)
		},
	}

	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "./snapshots", "directory holding versioned snapshots")
	cmd.Flags().IntVar(&version, "version", 0, "snapshot version to load proof templates for")
	cmd.MarkFlagRequired("version")
	return cmd
}

func encodeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
