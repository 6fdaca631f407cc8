package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/playlake/internal/credentials"
	"github.com/leapstack-labs/playlake/internal/engine"
	"github.com/leapstack-labs/playlake/pkg/adapter"
	"github.com/leapstack-labs/playlake/pkg/core"
)

// loggerKey is used to store logger in context.
// This key is shared with root.go via both using the same type.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes every environment override. A double underscore
// separates nested keys: PLAYLAKE_JOIN__MODE sets join.mode.
const EnvPrefix = "PLAYLAKE_"

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"source":    "source_root",
	"dest":      "dest_root",
	"state":     "state_path",
	"join":      "join.strategy",
	"join_mode": "join.mode",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configIn returns the config file in dir, or "".
func configIn(dir string) string {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a playlake config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configIn(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit --config file
//  2. Search upward from CWD for playlake.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a local path relative to baseDir.
// Empty, absolute and remote paths are returned unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) || core.IsRemote(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

func defaults() map[string]any {
	return map[string]any{
		"source_root":          DefaultSourceRoot,
		"dest_root":            DefaultDestRoot,
		"catalog_path":         DefaultCatalogPath,
		"events_path":          DefaultEventsPath,
		"timezone":             DefaultTimeZone,
		"parallelism":          DefaultParallelism,
		"state_path":           DefaultStateFile,
		"verbose":              false,
		"log_format":           DefaultLogFormat,
		"output":               DefaultOutput,
		"join.strategy":        DefaultJoin,
		"join.mode":            DefaultJoinMode,
		"credentials.provider": DefaultCredentials,
	}
}

// LoadConfig loads configuration from defaults, the config file,
// environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	configFileUsed = ""

	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to CWD, not the project root.
	flagPaths := map[string]string{}
	if flags != nil {
		for _, name := range []string{"source", "dest", "state"} {
			if f := flags.Lookup(name); f != nil && f.Changed {
				flagPaths[flagKeys[name]] = absFlagPath(f.Value.String())
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = configIn(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Load environment variables (PLAYLAKE_ prefix)
	// Transform: PLAYLAKE_DEST_ROOT -> dest_root, PLAYLAKE_JOIN__MODE -> join.mode
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve paths and expand ${VAR} references
	cfg.ProjectRoot = projectRoot
	cfg.SourceRoot = expandEnvVars(cfg.SourceRoot)
	cfg.DestRoot = expandEnvVars(cfg.DestRoot)
	cfg.StatePath = expandEnvVars(cfg.StatePath)
	expandCredentialEnvVars(&cfg.Credentials)

	cfg.SourceRoot = pathOr(flagPaths["source_root"], resolvePathRelativeTo(cfg.SourceRoot, projectRoot))
	cfg.DestRoot = pathOr(flagPaths["dest_root"], resolvePathRelativeTo(cfg.DestRoot, projectRoot))
	cfg.StatePath = pathOr(flagPaths["state_path"], resolvePathRelativeTo(cfg.StatePath, projectRoot))

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{Type: DefaultTargetType}
	}
	if cfg.Target.Type == "" {
		cfg.Target.Type = DefaultTargetType
	}
	cfg.Target.Database = expandEnvVars(cfg.Target.Database)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

func absFlagPath(p string) string {
	if p == "" || core.IsRemote(p) || p == ":memory:" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func pathOr(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

// EngineConfig converts the CLI configuration into an engine configuration.
func (c *Config) EngineConfig(logger *slog.Logger) engine.Config {
	ac := &adapter.Config{Type: DefaultTargetType}
	if c.Target != nil {
		ac = &adapter.Config{
			Type:    c.Target.Type,
			Path:    c.Target.Database,
			Options: c.Target.Options,
			Params:  c.Target.Params,
		}
	}
	return engine.Config{
		SourceRoot:    c.SourceRoot,
		CatalogPath:   c.CatalogPath,
		EventsPath:    c.EventsPath,
		DestRoot:      c.DestRoot,
		TimeZone:      c.TimeZone,
		JoinStrategy:  c.Join.Strategy,
		JoinMode:      c.Join.Mode,
		Parallelism:   c.Parallelism,
		StatePath:     c.StatePath,
		AdapterConfig: ac,
		Credentials: credentials.Config{
			Provider:        c.Credentials.Provider,
			AccessKeyID:     c.Credentials.AccessKeyID,
			SecretAccessKey: c.Credentials.SecretAccessKey,
			SessionToken:    c.Credentials.SessionToken,
			Region:          c.Credentials.Region,
			Endpoint:        c.Credentials.Endpoint,
			Profile:         c.Credentials.Profile,
		},
		Logger: logger,
	}
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandCredentialEnvVars expands environment variables in secret fields.
func expandCredentialEnvVars(c *CredentialsConfig) {
	c.AccessKeyID = expandEnvVars(c.AccessKeyID)
	c.SecretAccessKey = expandEnvVars(c.SecretAccessKey)
	c.SessionToken = expandEnvVars(c.SessionToken)
	c.Region = expandEnvVars(c.Region)
	c.Endpoint = expandEnvVars(c.Endpoint)
}
