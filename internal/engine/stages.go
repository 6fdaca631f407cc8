package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/playlake/internal/dag"
	"github.com/leapstack-labs/playlake/pkg/core"
)

// Stage names.
const (
	StageCatalog = "catalog"
	StageEvents  = "events"
	StageFacts   = "facts"
)

// Phase restricts a run to part of the stage graph.
type Phase string

// Phases.
const (
	// PhaseAll runs every stage.
	PhaseAll Phase = "all"
	// PhaseCatalog runs the catalog stage only.
	PhaseCatalog Phase = "catalog"
	// PhaseEvents runs events and facts against the last materialized catalog.
	PhaseEvents Phase = "events"
)

// Phases returns the valid phase names.
func Phases() []string {
	return []string{string(PhaseAll), string(PhaseCatalog), string(PhaseEvents)}
}

// ParsePhase parses a phase name. Empty means PhaseAll.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case "", PhaseAll:
		return PhaseAll, nil
	case PhaseCatalog, PhaseEvents:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase %q (available: %v)", s, Phases())
}

// Stage is one node of the pipeline graph.
type Stage struct {
	Name string
	// Tables lists the tables the stage writes.
	Tables []string

	run func(e *Engine, ctx context.Context, rs *runState) error
}

func buildGraph() (*dag.Graph[*Stage], error) {
	g := dag.NewGraph[*Stage]()
	g.AddNode(StageCatalog, &Stage{
		Name:   StageCatalog,
		Tables: []string{core.TableSongs, core.TableArtists},
		run:    (*Engine).runCatalog,
	})
	g.AddNode(StageEvents, &Stage{
		Name:   StageEvents,
		Tables: []string{core.TableUsers, core.TableTime},
		run:    (*Engine).runEvents,
	})
	g.AddNode(StageFacts, &Stage{
		Name:   StageFacts,
		Tables: []string{core.TableSongPlays},
		run:    (*Engine).runFacts,
	})

	for _, parent := range []string{StageCatalog, StageEvents} {
		if err := g.AddEdge(parent, StageFacts); err != nil {
			return nil, err
		}
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("stage graph has a cycle: %v", path)
	}
	return g, nil
}

// selectStages returns the stage IDs a phase runs. A phase names its target
// stage; every upstream stage runs too, except that the events phase reuses
// the catalog already written to the destination.
func (e *Engine) selectStages(phase Phase) []string {
	switch phase {
	case PhaseCatalog:
		return append(e.graph.GetUpstreamNodes(StageCatalog), StageCatalog)
	case PhaseEvents:
		ids := append(e.graph.GetUpstreamNodes(StageFacts), StageFacts)
		return slices.DeleteFunc(ids, func(id string) bool { return id == StageCatalog })
	}
	return e.graph.NodeIDs()
}

// Plan returns the execution levels of a phase: stages in the same level
// run concurrently.
func (e *Engine) Plan(phase Phase) ([][]string, error) {
	return e.graph.Subgraph(e.selectStages(phase)).GetExecutionLevels()
}
