// Package engine runs the playlake pipeline.
// It wires the stage graph to an execution session, a credential provider
// and the run-state store, and records the outcome of every table write.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/playlake/internal/credentials"
	"github.com/leapstack-labs/playlake/internal/dag"
	"github.com/leapstack-labs/playlake/internal/state"
	"github.com/leapstack-labs/playlake/internal/transform"
	"github.com/leapstack-labs/playlake/pkg/adapter"
	"github.com/leapstack-labs/playlake/pkg/core"
)

// Default source globs, relative to the source root.
const (
	DefaultCatalogPath = "song_data/**/*.json"
	DefaultEventsPath  = "log_data/**/*.json"
)

// Engine orchestrates pipeline runs.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	store    state.Store
	creds    credentials.Provider
	loc      *time.Location
	strategy transform.JoinStrategy
	mode     transform.JoinMode
	graph    *dag.Graph[*Stage]
}

// Config holds engine configuration.
type Config struct {
	// SourceRoot is the root of the raw input trees (local path or URL)
	SourceRoot string
	// CatalogPath is the catalog glob relative to SourceRoot
	CatalogPath string
	// EventsPath is the event-log glob relative to SourceRoot
	EventsPath string
	// DestRoot is where output tables are written (local path or URL)
	DestRoot string
	// TimeZone names the zone calendar fields are derived in (default UTC)
	TimeZone string
	// JoinStrategy names the song lookup used by fact assembly (default title)
	JoinStrategy string
	// JoinMode is inner or left (default inner)
	JoinMode string
	// Parallelism bounds how many stages run at once (default 2)
	Parallelism int
	// StatePath is the path to the SQLite state database
	StatePath string
	// AdapterConfig configures the execution session (default in-memory duckdb)
	AdapterConfig *adapter.Config
	// Credentials selects the object-store credential provider
	Credentials credentials.Config
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New validates cfg, opens the state store and builds the stage graph.
// No execution session is opened until Run.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.SourceRoot == "" {
		return nil, errors.New("source root is required")
	}
	if cfg.DestRoot == "" {
		return nil, errors.New("destination root is required")
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = DefaultCatalogPath
	}
	if cfg.EventsPath == "" {
		cfg.EventsPath = DefaultEventsPath
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}
	if cfg.AdapterConfig == nil {
		cfg.AdapterConfig = &adapter.Config{Type: "duckdb"}
	}
	if cfg.AdapterConfig.Type == "" {
		cfg.AdapterConfig.Type = "duckdb"
	}

	loc, err := loadLocation(cfg.TimeZone)
	if err != nil {
		return nil, err
	}
	strategy, err := transform.LookupJoinStrategy(cfg.JoinStrategy)
	if err != nil {
		return nil, err
	}
	mode, err := transform.ParseJoinMode(cfg.JoinMode)
	if err != nil {
		return nil, err
	}
	creds, err := credentials.New(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	logger.Debug("initializing engine",
		"source_root", cfg.SourceRoot,
		"dest_root", cfg.DestRoot,
		"join_strategy", strategy.Name(),
		"join_mode", string(mode),
	)

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	graph, err := buildGraph()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		creds:    creds,
		loc:      loc,
		strategy: strategy,
		mode:     mode,
		graph:    graph,
	}, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// Close releases the state store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// --- Getters (public accessors) ---

// GetGraph returns the stage graph.
func (e *Engine) GetGraph() *dag.Graph[*Stage] {
	return e.graph
}

// GetStateStore returns the state store.
func (e *Engine) GetStateStore() state.Store {
	return e.store
}

// GetCredentialProvider returns the configured credential provider.
func (e *Engine) GetCredentialProvider() credentials.Provider {
	return e.creds
}

// CatalogPattern returns the full catalog source glob.
func (e *Engine) CatalogPattern() string {
	return core.JoinPath(e.cfg.SourceRoot, e.cfg.CatalogPath)
}

// EventsPattern returns the full event-log source glob.
func (e *Engine) EventsPattern() string {
	return core.JoinPath(e.cfg.SourceRoot, e.cfg.EventsPath)
}
