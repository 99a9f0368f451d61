package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/treelint/internal/types"
)

func newRunsCommand(opts *options) *cobra.Command {
	var limit int

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded lint runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeDB, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeDB()

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tFILES\tERRORS\tWARNINGS")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
					run.ID, run.StartedAt.Format(time.RFC3339), run.Files, run.Errors, run.Warnings)
			}
			return tw.Flush()
		},
	}
	runsCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the findings recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := types.ParseRunID(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID %q: %w", args[0], err)
			}
			ctx := cmd.Context()
			store, closeDB, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeDB()

			run, err := store.GetRun(ctx, runID)
			if err != nil {
				return err
			}
			findings, err := store.ListFindings(ctx, runID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			path := ""
			for _, f := range findings {
				if f.Path != path {
					if path != "" {
						fmt.Fprintln(tw)
					}
					path = f.Path
					fmt.Fprintln(tw, path)
				}
				fmt.Fprintf(tw, "  %d:%d\t%s\t%s\t%s\n", f.Line, f.Column, f.Severity, f.Message, f.RuleID)
			}
			if len(findings) > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "run %s: %d files, %d errors, %d warnings\n", run.ID, run.Files, run.Errors, run.Warnings)
			return tw.Flush()
		},
	}
	runsCmd.AddCommand(showCmd)
	return runsCmd
}
