package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/playlake/internal/cli/config"
	"github.com/leapstack-labs/playlake/internal/cli/output"
	"github.com/leapstack-labs/playlake/internal/engine"
)

// CommandContext is what a subcommand needs to do its work.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext resolves the configuration and opens an engine on it.
// The returned cleanup closes the engine.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	c := NewCommandContextWithoutEngine(cmd)
	eng, err := createEngine(c.Cfg, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	c.Engine = eng
	return c, func() { _ = eng.Close() }, nil
}

// NewCommandContextWithoutEngine resolves the configuration, logger and
// renderer only. Commands that must work without a state store use it.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := currentConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// currentConfig returns the configuration loaded by the root command, or
// loads one from the working directory when a command runs standalone.
func currentConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	return &config.Config{
		SourceRoot:   config.DefaultSourceRoot,
		DestRoot:     config.DefaultDestRoot,
		StatePath:    config.DefaultStateFile,
		Parallelism:  config.DefaultParallelism,
		OutputFormat: config.DefaultOutput,
	}
}

// createEngine opens an engine, creating the state directory first.
func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	if dir := filepath.Dir(cfg.StatePath); cfg.StatePath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return engine.New(cfg.EngineConfig(logger))
}
