// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/boundarynet/core/internal/orchestrator"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Inspect orchestrator job status",
	}

	cmd.AddCommand(statusJobCmd(), statusListCmd())
	return cmd
}

func statusJobCmd() *cobra.Command {
	var (
		jobsDir string
		jobID   string
	)

	cmd := &cobra.Command{
		Use:   "job",
		Short: "Print the current state of one orchestrator job",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := orchestrator.New(jobsDir, nil, nil, nil)
			if err != nil {
				return withExitCode(exitConfigError, err)
			}
			job, ok := o.GetJobStatus(jobID)
			if !ok {
				return withExitCode(exitDataIntegrity, fmt.Errorf("no job %s in %s", jobID, jobsDir))
			}
			return encodeJSON(cmd, job)
		},
	}

	cmd.Flags().StringVar(&jobsDir, "jobs-dir", "./jobs", "directory holding orchestrator job records")
	cmd.Flags().StringVar(&jobID, "job-id", "", "job ID to look up")
	cmd.MarkFlagRequired("job-id")
	return cmd
}

func statusListCmd() *cobra.Command {
	var (
		jobsDir string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent orchestrator jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := orchestrator.New(jobsDir, nil, nil, nil)
			if err != nil {
				return withExitCode(exitConfigError, err)
			}
			jobs, err := o.ListJobs(limit)
			if err != nil {
				return withExitCode(exitDataIntegrity, err)
			}
			return encodeJSON(cmd, jobs)
		},
	}

	cmd.Flags().StringVar(&jobsDir, "jobs-dir", "./jobs", "directory holding orchestrator job records")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of jobs to list")
	return cmd
}
