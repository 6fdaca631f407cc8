// Package cli provides the command-line interface for playlake.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/playlake/internal/cli/commands"
	"github.com/leapstack-labs/playlake/internal/cli/config"
	"github.com/leapstack-labs/playlake/internal/cli/output"

	// Register the duckdb session.
	_ "github.com/leapstack-labs/playlake/pkg/adapters/duckdb"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

// skipConfig lists commands that run without a loaded configuration.
var skipConfig = []string{"help", "completion", cobra.ShellCompRequestCmd, "init"}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "playlake",
		Short: "playlake - music listening ETL",
		Long: `playlake turns a song catalog and an activity log into an analytics-ready
star schema of partitioned Parquet tables.

It reads newline-delimited JSON from a local directory or object store,
derives the songs, artists, users and time dimensions and the song_plays
fact table, and records every table write in a local state database.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if slices.Contains(skipConfig, cmd.Name()) {
				return nil
			}

			// Flags are the top layer; only the ones set on the command line count.
			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg)
			cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logger))

			if used := config.GetConfigFileUsed(); used != "" {
				logger.Debug("using config file", "path", used)
			}
			return nil
		},
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: playlake.yaml in the project root)")
	flags.String("source", "", "Root of the raw input trees (path or s3:// URL)")
	flags.String("dest", "", "Root the output tables are written under (path or s3:// URL)")
	flags.String("state", "", "Path to state database")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.String("log-format", "", "Log format (text|json)")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = root.RegisterFlagCompletionFunc("output", fixedCompletion(output.Modes()))
	_ = root.RegisterFlagCompletionFunc("log-format", fixedCompletion(config.LogFormats))

	root.AddCommand(
		commands.NewVersionCommand(Version),
		commands.NewRunCommand(),
		commands.NewPlanCommand(),
		commands.NewHistoryCommand(),
		commands.NewDoctorCommand(),
		commands.NewInitCommand(),
		NewCompletionCommand(),
	)
	return root
}

func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// newLogger builds the process logger on w, keeping stdout for command output.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Execute runs the root command against os.Args.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
