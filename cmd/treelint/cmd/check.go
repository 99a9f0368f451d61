package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/solatis/treelint/internal/core/db"
	"github.com/solatis/treelint/internal/lint"
	"github.com/solatis/treelint/internal/types"
)

func newCheckCommand(opts *options) *cobra.Command {
	var format string

	checkCmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Lint files, directories and globs",
		Long: `Lint every supported file under the given paths (default ".").
Findings are recorded to the database when --db-url or TL_DATABASE_URL is set.
Exits with status 1 when an error-severity finding is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, format, args)
		},
	}
	checkCmd.Flags().StringVar(&format, "format", "text", "output format (text, json)")
	checkCmd.Flags().Int("workers", 0, "files linted in parallel (default GOMAXPROCS)")
	return checkCmd
}

// checkReport is the JSON output of check.
type checkReport struct {
	RunID    types.RunID       `json:"runId,omitempty"`
	Results  []lint.FileResult `json:"results"`
	Errors   int               `json:"errorCount"`
	Warnings int               `json:"warningCount"`
}

func runCheck(cmd *cobra.Command, opts *options, format string, args []string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q (expected text or json)", format)
	}
	if len(args) == 0 {
		args = []string{"."}
	}
	ctx := cmd.Context()

	linter, err := lint.New(opts.cfg, lint.WithLogger(opts.logger))
	if err != nil {
		return err
	}
	files, err := lint.Discover(args, opts.cfg.Ignore, linter.Languages())
	if err != nil {
		return err
	}
	opts.logger.Debug("files discovered", "count", len(files))

	results, err := linter.LintFiles(ctx, files)
	if err != nil {
		return err
	}

	report := checkReport{Results: results}
	for _, res := range results {
		report.Errors += res.Errors
		report.Warnings += res.Warnings
	}

	if opts.cfg.DatabaseURL != "" {
		runID, err := recordRun(ctx, opts, results)
		if err != nil {
			return err
		}
		report.RunID = runID
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		err = writeJSON(out, report)
	} else {
		err = writeText(out, report)
	}
	if err != nil {
		return err
	}

	if report.Errors > 0 {
		return ErrFindings
	}
	return nil
}

func recordRun(ctx context.Context, opts *options, results []lint.FileResult) (types.RunID, error) {
	store, closeDB, err := openStore(ctx, opts)
	if err != nil {
		return "", err
	}
	defer closeDB()

	runID, err := store.BeginRun(ctx)
	if err != nil {
		return "", err
	}
	for _, res := range results {
		rec := db.FileRecord{
			Path:     res.Path,
			Language: res.Language,
			Hash:     res.Hash,
			Findings: res.Findings,
		}
		if err := store.RecordFile(ctx, runID, rec); err != nil {
			return "", err
		}
	}
	run, err := store.FinishRun(ctx, runID)
	if err != nil {
		return "", err
	}
	opts.logger.Info("run recorded", "run_id", run.ID, "files", run.Files, "errors", run.Errors, "warnings", run.Warnings)
	return runID, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}

func writeText(w io.Writer, report checkReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, res := range report.Results {
		if len(res.Findings) == 0 {
			continue
		}
		fmt.Fprintln(tw, res.Path)
		for _, f := range res.Findings {
			fmt.Fprintf(tw, "  %d:%d\t%s\t%s\t%s\n", f.Line, f.Column, f.Severity, f.Message, f.RuleID)
		}
		fmt.Fprintln(tw)
	}
	if total := report.Errors + report.Warnings; total > 0 {
		fmt.Fprintf(tw, "%d problems (%d errors, %d warnings)\n", total, report.Errors, report.Warnings)
	}
	if report.RunID != "" {
		fmt.Fprintf(tw, "run %s\n", report.RunID)
	}
	return tw.Flush()
}
