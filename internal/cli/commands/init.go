package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/playlake/internal/cli/config"
	"github.com/leapstack-labs/playlake/internal/cli/output"
)

// initConfig is the playlake.yaml written by init.
type initConfig struct {
	SourceRoot  string          `yaml:"source_root"`
	DestRoot    string          `yaml:"dest_root"`
	CatalogPath string          `yaml:"catalog_path"`
	EventsPath  string          `yaml:"events_path"`
	TimeZone    string          `yaml:"timezone"`
	Parallelism int             `yaml:"parallelism"`
	StatePath   string          `yaml:"state_path"`
	Join        initJoin        `yaml:"join"`
	Target      initTarget      `yaml:"target"`
	Credentials initCredentials `yaml:"credentials"`
}

type initJoin struct {
	Strategy string `yaml:"strategy"`
	Mode     string `yaml:"mode"`
}

type initTarget struct {
	Type string `yaml:"type"`
}

type initCredentials struct {
	Provider string `yaml:"provider"`
}

func defaultInitConfig() initConfig {
	return initConfig{
		SourceRoot:  config.DefaultSourceRoot,
		DestRoot:    config.DefaultDestRoot,
		CatalogPath: config.DefaultCatalogPath,
		EventsPath:  config.DefaultEventsPath,
		TimeZone:    config.DefaultTimeZone,
		Parallelism: config.DefaultParallelism,
		StatePath:   config.DefaultStateFile,
		Join:        initJoin{Strategy: config.DefaultJoin, Mode: config.DefaultJoinMode},
		Target:      initTarget{Type: config.DefaultTargetType},
		Credentials: initCredentials{Provider: config.DefaultCredentials},
	}
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new playlake project",
		Long: `Initialize a new playlake project with a default configuration.

This creates:
  - playlake.yaml configuration file
  - data/song_data/ for the song catalog
  - data/log_data/ for the activity log`,
		Example: `  # Initialize in current directory
  playlake init

  # Initialize in a new directory
  playlake init my-lake

  # Force overwrite existing config
  playlake init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			mode := output.ModeAuto
			if f := cmd.Flags().Lookup("output"); f != nil {
				mode = output.Mode(f.Value.String())
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Check if config already exists
	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileNames[0])
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defaultInitConfig()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	created := []string{config.ConfigFileNames[0]}
	for _, sub := range []string{"song_data", "log_data"} {
		rel := filepath.Join(config.DefaultSourceRoot, sub)
		if err := os.MkdirAll(filepath.Join(dir, rel), 0750); err != nil {
			return fmt.Errorf("failed to create %s: %w", rel, err)
		}
		created = append(created, rel+string(filepath.Separator))
	}

	for _, f := range created {
		r.Printf("  %s %s\n", r.Styles().StatusSuccess.String(), f)
	}

	r.Println("")
	r.Success("playlake project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Copy the song catalog JSON into data/song_data/")
	r.Println("  2. Copy the activity log JSON into data/log_data/")
	r.Println("  3. Run 'playlake doctor' to check the setup")
	r.Println("  4. Run 'playlake run' to build the tables")

	return nil
}
