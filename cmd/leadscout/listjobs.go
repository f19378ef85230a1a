package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hjonck/leadscout/internal/config"
	"github.com/hjonck/leadscout/internal/jobstore"
)

// newListJobsCmd lists every Job recorded in the Job Store, most recently
// started first.
//
// Exit codes: 0 = success, 1 = error.
func newListJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-jobs",
		Short: "List every classification job recorded in the job store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listJobs()
		},
	}
}

func listJobs() error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	jobs, err := jobstore.Open(ctx, cfg.Store.JobDBPath)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer jobs.Close()

	all, err := jobs.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(all) == 0 {
		fmt.Println("no jobs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "JOB_ID\tSTATUS\tINPUT\tPROCESSED\tFAILED\tSTARTED_AT")
	for _, j := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			j.JobID, j.Status, j.InputPath, j.ProcessedCount, j.FailedCount, j.StartedAt.Format("2006-01-02T15:04:05Z"))
	}
	return w.Flush()
}
