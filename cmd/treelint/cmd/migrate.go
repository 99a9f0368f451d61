package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/treelint/internal/core/db"
)

func newMigrateCommand(opts *options) *cobra.Command {
	var status bool

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.DatabaseURL == "" {
				return fmt.Errorf("--db-url required (or set TL_DATABASE_URL)")
			}
			database, err := db.Open(opts.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if status {
				statuses, err := db.MigrateStatus(ctx, database)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "MIGRATION\tSTATUS\tAPPLIED AT")
				for _, s := range statuses {
					state, at := "pending", ""
					if s.Applied {
						state = "applied"
						at = s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, state, at)
				}
				return tw.Flush()
			}

			applied, err := db.MigrateUp(ctx, database)
			for _, id := range applied {
				fmt.Fprintf(out, "applied %s\n", id)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "database is up to date")
			}
			opts.logger.Info("migrations complete", "applied", len(applied))
			return nil
		},
	}
	migrateCmd.Flags().BoolVar(&status, "status", false, "list migrations without applying them")
	return migrateCmd
}

// openStore opens the configured database and refuses to continue while
// migrations are pending. The returned func closes the database.
func openStore(ctx context.Context, opts *options) (*db.Store, func() error, error) {
	if opts.cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("--db-url required (or set TL_DATABASE_URL)")
	}
	database, err := db.Open(opts.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'treelint migrate' first", s.ID)
		}
	}

	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return store, database.Close, nil
}
