package engine

// run.go - Execution orchestration for pipeline runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/leapstack-labs/playlake/internal/dag"
	"github.com/leapstack-labs/playlake/internal/transform"
	"github.com/leapstack-labs/playlake/pkg/adapter"
	"github.com/leapstack-labs/playlake/pkg/core"
)

// ChangeStatus compares a written table with its previous successful write.
type ChangeStatus string

// Change statuses.
const (
	ChangeNew       ChangeStatus = "new"
	ChangeChanged   ChangeStatus = "changed"
	ChangeUnchanged ChangeStatus = "unchanged"
)

// TableResult is the outcome of one table write.
type TableResult struct {
	Stage       string
	Table       string
	Path        string
	Rows        int64
	Partitions  int
	Fingerprint string
	Change      ChangeStatus
	Duration    time.Duration
}

// RunResult summarizes a pipeline run.
type RunResult struct {
	Run    *core.Run
	Phase  Phase
	Tables []TableResult

	// EventsScanned counts raw event records read.
	EventsScanned int
	// EventsKept counts the song-play events left after filtering.
	EventsKept int
	// Matched and Unmatched count fact-assembly join outcomes per event.
	Matched   int
	Unmatched int

	Duration time.Duration
}

// runState is shared by the stages of one run.
type runState struct {
	id      string
	session adapter.Adapter
	logger  *slog.Logger

	mu      sync.Mutex
	events  *transform.EventTables
	catalog *transform.CatalogTables
	result  *RunResult
}

func (rs *runState) addTable(tr TableResult) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.result.Tables = append(rs.result.Tables, tr)
}

// Run executes the stages of phase. The execution session is opened before
// the first stage and closed after the last write. The run and every table
// write are recorded in the state store; the returned result is non-nil
// whenever the run was created, including on failure.
func (e *Engine) Run(ctx context.Context, phase Phase) (*RunResult, error) {
	start := time.Now()

	run, err := e.store.CreateRun(string(phase))
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	logger := e.logger.With("run_id", run.ID)
	logger.Info("starting run", "phase", string(phase))

	result := &RunResult{Run: run, Phase: phase}
	runErr := e.execute(ctx, phase, run.ID, logger, result)
	result.Duration = time.Since(start)
	e.orderTables(result)

	if runErr != nil {
		logger.Error("run failed", "error", runErr.Error(), "duration_ms", result.Duration.Milliseconds())
		_ = e.store.CompleteRun(run.ID, core.RunStatusFailed, runErr.Error())
	} else {
		logger.Info("run completed", "tables", len(result.Tables), "duration_ms", result.Duration.Milliseconds())
		_ = e.store.CompleteRun(run.ID, core.RunStatusCompleted, "")
	}

	if r, err := e.store.GetRun(run.ID); err == nil {
		result.Run = r
	}
	return result, runErr
}

func (e *Engine) execute(ctx context.Context, phase Phase, runID string, logger *slog.Logger, result *RunResult) error {
	creds, err := e.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}

	cfg := *e.cfg.AdapterConfig
	cfg.Credentials = creds
	session, err := adapter.NewAdapter(cfg, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if err := session.Connect(ctx, cfg); err != nil {
		return fmt.Errorf("failed to connect session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}()

	rs := &runState{id: runID, session: session, logger: logger, result: result}

	// The events phase never writes the catalog, so a missing one fails the
	// run before anything is written.
	if phase == PhaseEvents {
		cat, err := e.loadCatalog(ctx, rs)
		if err != nil {
			return err
		}
		rs.catalog = cat
	}

	sub := e.graph.Subgraph(e.selectStages(phase))
	return sub.Execute(ctx, e.cfg.Parallelism, func(ctx context.Context, n *dag.Node[*Stage]) error {
		start := time.Now()
		logger.Debug("stage started", "stage", n.ID)
		if err := n.Data.run(e, ctx, rs); err != nil {
			return fmt.Errorf("stage %s: %w", n.ID, err)
		}
		logger.Debug("stage finished", "stage", n.ID, "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
}

func (e *Engine) runCatalog(ctx context.Context, rs *runState) error {
	pattern := e.CatalogPattern()
	recs, err := rs.session.ReadJSON(ctx, pattern)
	if err != nil {
		return err
	}
	cat, err := transform.BuildCatalog(recs)
	if err != nil {
		return err
	}
	rs.logger.Info("catalog transformed",
		"stage", StageCatalog,
		"path", pattern,
		"records", recs.Len(),
		"songs", len(cat.Songs),
		"artists", len(cat.Artists),
	)

	if err := e.writeTable(ctx, rs, StageCatalog, core.SongsTable(cat.Songs)); err != nil {
		return err
	}
	return e.writeTable(ctx, rs, StageCatalog, core.ArtistsTable(cat.Artists))
}

func (e *Engine) runEvents(ctx context.Context, rs *runState) error {
	pattern := e.EventsPattern()
	recs, err := rs.session.ReadJSON(ctx, pattern)
	if err != nil {
		return err
	}
	ev, err := transform.BuildEvents(recs, e.loc)
	if err != nil {
		return err
	}
	rs.logger.Info("events filtered",
		"stage", StageEvents,
		"path", pattern,
		"scanned", ev.Scanned,
		"kept", ev.Kept,
		"users", len(ev.Users),
	)

	rs.mu.Lock()
	rs.events = ev
	rs.result.EventsScanned = ev.Scanned
	rs.result.EventsKept = ev.Kept
	rs.mu.Unlock()

	if err := e.writeTable(ctx, rs, StageEvents, core.UsersTable(ev.Users)); err != nil {
		return err
	}
	return e.writeTable(ctx, rs, StageEvents, core.TimeTable(ev.Times))
}

func (e *Engine) runFacts(ctx context.Context, rs *runState) error {
	rs.mu.Lock()
	ev, cat := rs.events, rs.catalog
	rs.mu.Unlock()

	if ev == nil {
		return fmt.Errorf("no filtered events available")
	}
	if cat == nil {
		var err error
		if cat, err = e.loadCatalog(ctx, rs); err != nil {
			return err
		}
	}

	facts := transform.AssembleFacts(ev.Plays, cat, e.strategy, e.mode)
	rs.logger.Info("facts assembled",
		"stage", StageFacts,
		"rows", len(facts.Plays),
		"matched", facts.Matched,
		"unmatched_events", facts.Unmatched,
		"join_strategy", e.strategy.Name(),
	)

	rs.mu.Lock()
	rs.result.Matched = facts.Matched
	rs.result.Unmatched = facts.Unmatched
	rs.mu.Unlock()

	return e.writeTable(ctx, rs, StageFacts, core.SongPlaysTable(facts.Plays))
}

// loadCatalog re-reads the persisted songs and artists tables. A missing
// songs table is core.ErrNotMaterialized; a missing artists table is
// tolerated.
func (e *Engine) loadCatalog(ctx context.Context, rs *runState) (*transform.CatalogTables, error) {
	songsTable := core.SongsTable(nil)
	songs, err := rs.session.ReadParquet(ctx, core.JoinPath(e.cfg.DestRoot, songsTable.Name), partitionTypes(songsTable))
	if err != nil {
		return nil, err
	}

	artists, err := rs.session.ReadParquet(ctx, core.JoinPath(e.cfg.DestRoot, core.TableArtists), nil)
	if err != nil {
		if !errors.Is(err, core.ErrNotMaterialized) {
			return nil, err
		}
		rs.logger.Warn("artists table not materialized", "path", core.JoinPath(e.cfg.DestRoot, core.TableArtists))
		artists = nil
	}

	rs.logger.Debug("catalog reloaded", "songs", songs.Len(), "artists", artists.Len())
	return transform.CatalogFromTables(songs, artists)
}

// writeTable writes t and records the outcome, comparing its fingerprint
// with the previous successful write of the same table.
func (e *Engine) writeTable(ctx context.Context, rs *runState, stage string, t *core.Table) error {
	prev, err := e.store.GetLatestTableRun(t.Name)
	if err != nil {
		rs.logger.Warn("failed to load previous table run", "table", t.Name, "error", err)
	}

	start := time.Now()
	res, werr := rs.session.WriteTable(ctx, t, e.cfg.DestRoot)
	elapsed := time.Since(start)

	tr := &core.TableRun{
		RunID:       rs.id,
		Stage:       stage,
		Table:       t.Name,
		Path:        core.JoinPath(e.cfg.DestRoot, t.Name),
		ExecutionMS: elapsed.Milliseconds(),
	}
	if werr != nil {
		tr.Status = core.TableRunStatusFailed
		tr.Error = werr.Error()
		if err := e.store.RecordTableRun(tr); err != nil {
			rs.logger.Warn("failed to record table run", "table", t.Name, "error", err)
		}
		return werr
	}

	tr.Status = core.TableRunStatusSuccess
	tr.Path = res.Path
	tr.Rows = res.Rows
	tr.Fingerprint = res.Fingerprint
	if err := e.store.RecordTableRun(tr); err != nil {
		return fmt.Errorf("failed to record table run: %w", err)
	}

	change := compareFingerprint(prev, res.Fingerprint)
	rs.addTable(TableResult{
		Stage:       stage,
		Table:       t.Name,
		Path:        res.Path,
		Rows:        res.Rows,
		Partitions:  res.Partitions,
		Fingerprint: res.Fingerprint,
		Change:      change,
		Duration:    elapsed,
	})

	rs.logger.Info("table written",
		"stage", stage,
		"table", t.Name,
		"rows", res.Rows,
		"partitions", res.Partitions,
		"path", res.Path,
		"change", string(change),
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

func compareFingerprint(prev *core.TableRun, fingerprint string) ChangeStatus {
	switch {
	case prev == nil:
		return ChangeNew
	case prev.Fingerprint == fingerprint:
		return ChangeUnchanged
	default:
		return ChangeChanged
	}
}

// partitionTypes maps each partition column of t to its declared type.
func partitionTypes(t *core.Table) map[string]core.ColumnType {
	types := make(map[string]core.ColumnType, len(t.PartitionBy))
	for _, col := range t.Columns {
		if slices.Contains(t.PartitionBy, col.Name) {
			types[col.Name] = col.Type
		}
	}
	return types
}

// orderTables sorts results into stage order, then by each stage's table order.
func (e *Engine) orderTables(result *RunResult) {
	nodes, err := e.graph.TopologicalSort()
	if err != nil {
		return
	}
	var order []string
	for _, n := range nodes {
		order = append(order, n.Data.Tables...)
	}
	slices.SortStableFunc(result.Tables, func(a, b TableResult) int {
		return slices.Index(order, a.Table) - slices.Index(order, b.Table)
	})
}
