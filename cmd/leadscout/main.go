package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "leadscout",
	Short: "Classify South African lead names by demographic category",
	Long: `leadscout runs the name-classification cascade (exact cache, rule
dictionary, learned patterns, phonetic matching, LLM fallback) over a batch
of leads read from a CSV file, committing progress durably so a run can be
resumed after an interruption.`,
}

func main() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newListJobsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newCancelCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
