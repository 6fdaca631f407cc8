package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/playlake/pkg/adapter"
	"github.com/leapstack-labs/playlake/pkg/core"
)

// RunHistory is a recorded run with its table writes.
type RunHistory struct {
	Run    *core.Run
	Tables []*core.TableRun
}

// History returns up to limit recorded runs, newest first.
func (e *Engine) History(limit int) ([]RunHistory, error) {
	runs, err := e.store.ListRuns(limit)
	if err != nil {
		return nil, err
	}

	out := make([]RunHistory, 0, len(runs))
	for _, run := range runs {
		trs, err := e.store.GetTableRunsForRun(run.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RunHistory{Run: run, Tables: trs})
	}
	return out, nil
}

// SourceFiles counts the files matched by the catalog and event globs. It
// opens and closes its own session.
func (e *Engine) SourceFiles(ctx context.Context) (catalog, events int, err error) {
	creds, err := e.creds.Retrieve(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	cfg := *e.cfg.AdapterConfig
	cfg.Credentials = creds

	session, err := adapter.NewAdapter(cfg, e.logger)
	if err != nil {
		return 0, 0, err
	}
	if err := session.Connect(ctx, cfg); err != nil {
		return 0, 0, fmt.Errorf("failed to connect session: %w", err)
	}
	defer func() { _ = session.Close() }()

	if catalog, err = countFiles(ctx, session, e.CatalogPattern()); err != nil {
		return 0, 0, err
	}
	if events, err = countFiles(ctx, session, e.EventsPattern()); err != nil {
		return 0, 0, err
	}
	return catalog, events, nil
}

func countFiles(ctx context.Context, session adapter.Adapter, pattern string) (int, error) {
	rows, err := session.Query(ctx, fmt.Sprintf("SELECT count(*) FROM glob('%s')", strings.ReplaceAll(pattern, "'", "''")))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	defer func() { _ = rows.Close() }()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}
