package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solatis/treelint/internal/core/config"
)

const Version = "0.1.0"

// ErrFindings is returned by check when any error-severity finding was
// reported. It carries no message of its own.
var ErrFindings = errors.New("lint errors found")

// options holds persistent flag values and the state PersistentPreRunE
// derives from them.
type options struct {
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string

	v      *viper.Viper
	cfg    *config.LintConfig
	logger *slog.Logger
}

// NewRootCommand builds the command tree. Each call returns independent
// state so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	opts := &options{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:     "treelint",
		Short:   "treelint selector-driven linter",
		Long:    `treelint runs rules expressed as ESLint-style selectors over ESTree and tree-sitter syntax trees.`,
		Version: Version,

		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (json, text)")

	rootCmd.AddCommand(
		newCheckCommand(opts),
		newExplainCommand(opts),
		newMigrateCommand(opts),
		newRunsCommand(opts),
	)
	return rootCmd
}

// setup installs the logger and loads configuration. Flags bound here take
// precedence over TL_ environment variables and the config file.
func (o *options) setup(cmd *cobra.Command) error {
	logger, err := newLogger(cmd.ErrOrStderr(), o.logLevel, o.logFormat)
	if err != nil {
		return err
	}
	o.logger = logger
	slog.SetDefault(logger)

	if err := o.v.BindPFlag("database.url", cmd.Root().PersistentFlags().Lookup("db-url")); err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("workers"); f != nil {
		if err := o.v.BindPFlag("lint.workers", f); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfigWith(o.v, o.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	o.cfg = cfg
	logger.Debug("configuration loaded", "config", o.configFile, "workers", cfg.Workers, "rules", len(cfg.Rules))
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or text)", format)
	}
}

// Execute runs the command tree, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrFindings) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
