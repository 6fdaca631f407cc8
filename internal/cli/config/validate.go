package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/playlake/internal/credentials"
	"github.com/leapstack-labs/playlake/internal/transform"
	"github.com/leapstack-labs/playlake/pkg/adapter"
)

// LogFormats are the accepted log_format values.
var LogFormats = []string{"text", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SourceRoot == "" {
		return fmt.Errorf("source_root is required")
	}
	if c.DestRoot == "" {
		return fmt.Errorf("dest_root is required")
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
		}
	}
	if !slices.Contains(LogFormats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("invalid log_format %q (available: %v)", c.LogFormat, LogFormats)
	}
	if _, err := transform.LookupJoinStrategy(c.Join.Strategy); err != nil {
		return fmt.Errorf("invalid join.strategy: %w", err)
	}
	if _, err := transform.ParseJoinMode(c.Join.Mode); err != nil {
		return fmt.Errorf("invalid join.mode: %w", err)
	}
	if c.Credentials.Provider != "" && !slices.Contains(credentials.Providers(), c.Credentials.Provider) {
		return fmt.Errorf("unknown credentials provider %q (available: %v)", c.Credentials.Provider, credentials.Providers())
	}
	if c.Target != nil {
		if err := c.Target.Validate(); err != nil {
			return fmt.Errorf("invalid target configuration: %w", err)
		}
	}
	return nil
}

// Validate checks that the target type is set and registered.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	t.Type = strings.ToLower(t.Type)
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}
