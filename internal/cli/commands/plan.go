package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/playlake/internal/cli/output"
	"github.com/leapstack-labs/playlake/internal/engine"
)

// PlanOutput is the JSON output for the plan command.
type PlanOutput struct {
	Phase  string      `json:"phase"`
	Levels []PlanLevel `json:"levels"`
}

// PlanLevel is one set of stages that run concurrently.
type PlanLevel struct {
	Level  int         `json:"level"`
	Stages []PlanStage `json:"stages"`
}

// PlanStage describes one stage of the plan.
type PlanStage struct {
	Name    string   `json:"name"`
	Tables  []string `json:"tables"`
	Parents []string `json:"parents,omitempty"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var phase string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the stages a run would execute",
		Long: `Show the execution levels of a phase without reading or writing any data.

Stages in the same level run concurrently.`,
		Example: `  playlake plan
  playlake plan --phase events -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := engine.ParsePhase(phase)
			if err != nil {
				return err
			}
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			plan, err := buildPlan(cmdCtx.Engine, p)
			if err != nil {
				return err
			}
			return renderPlan(cmdCtx.Renderer, plan)
		},
	}

	cmd.Flags().StringVar(&phase, "phase", string(engine.PhaseAll), "Phase to plan (all|catalog|events)")
	return cmd
}

func buildPlan(eng *engine.Engine, phase engine.Phase) (*PlanOutput, error) {
	levels, err := eng.Plan(phase)
	if err != nil {
		return nil, err
	}
	graph := eng.GetGraph()

	out := &PlanOutput{Phase: string(phase)}
	for i, level := range levels {
		pl := PlanLevel{Level: i + 1}
		for _, id := range level {
			node, ok := graph.GetNode(id)
			if !ok {
				return nil, fmt.Errorf("stage %s not found", id)
			}
			stage := PlanStage{Name: id, Tables: node.Data.Tables}
			// Root stages carry no parents; keep them nil so JSON omits the key.
			if parents := graph.GetParents(id); len(parents) > 0 {
				stage.Parents = slices.Clone(parents)
			}
			pl.Stages = append(pl.Stages, stage)
		}
		out.Levels = append(out.Levels, pl)
	}
	return out, nil
}

func renderPlan(r *output.Renderer, plan *PlanOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(plan)
	}

	r.Printf("Phase %s\n\n", plan.Phase)
	var rows [][]string
	for _, level := range plan.Levels {
		for _, s := range level.Stages {
			rows = append(rows, []string{
				fmt.Sprintf("%d", level.Level),
				s.Name,
				strings.Join(s.Tables, ", "),
				strings.Join(s.Parents, ", "),
			})
		}
	}
	r.Table([]string{"Level", "Stage", "Tables", "Depends On"}, rows)
	return nil
}
