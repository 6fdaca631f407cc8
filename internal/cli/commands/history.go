package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/playlake/internal/cli/output"
	"github.com/leapstack-labs/playlake/internal/engine"
)

// HistoryRun is the JSON shape of one recorded run.
type HistoryRun struct {
	ID          string         `json:"id"`
	Phase       string         `json:"phase"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Tables      []HistoryTable `json:"tables"`
}

// HistoryTable is the JSON shape of one recorded table write.
type HistoryTable struct {
	Table       string `json:"table"`
	Status      string `json:"status"`
	Rows        int64  `json:"rows"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ExecutionMS int64  `json:"execution_ms"`
	Error       string `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Long:  `List recent pipeline runs from the state database, newest first.`,
		Example: `  playlake history
  playlake history --limit 3 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cmdCtx.Engine.History(limit)
			if err != nil {
				return err
			}
			return renderHistory(cmdCtx.Renderer, runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to show")
	return cmd
}

func toHistoryRuns(runs []engine.RunHistory) []HistoryRun {
	out := make([]HistoryRun, 0, len(runs))
	for _, h := range runs {
		hr := HistoryRun{
			ID:          h.Run.ID,
			Phase:       h.Run.Phase,
			Status:      string(h.Run.Status),
			StartedAt:   h.Run.StartedAt,
			CompletedAt: h.Run.CompletedAt,
			Error:       h.Run.Error,
			Tables:      make([]HistoryTable, 0, len(h.Tables)),
		}
		for _, t := range h.Tables {
			hr.Tables = append(hr.Tables, HistoryTable{
				Table:       t.Table,
				Status:      string(t.Status),
				Rows:        t.Rows,
				Fingerprint: t.Fingerprint,
				ExecutionMS: t.ExecutionMS,
				Error:       t.Error,
			})
		}
		out = append(out, hr)
	}
	return out
}

func renderHistory(r *output.Renderer, runs []engine.RunHistory) error {
	history := toHistoryRuns(runs)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(history)
	}

	if len(history) == 0 {
		r.Println("No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(history))
	for _, h := range history {
		var total int64
		for _, t := range h.Tables {
			total += t.Rows
		}
		duration := "-"
		if h.CompletedAt != nil {
			duration = output.FormatDuration(h.CompletedAt.Sub(h.StartedAt))
		}
		rows = append(rows, []string{
			h.ID,
			h.Phase,
			h.Status,
			output.FormatAge(h.StartedAt),
			duration,
			fmt.Sprintf("%d", len(h.Tables)),
			output.FormatCount(total),
		})
	}
	r.Table([]string{"Run", "Phase", "Status", "Started", "Duration", "Tables", "Rows"}, rows)

	for _, h := range history {
		if h.Error != "" {
			r.Println("")
			r.Printf("%s: %s\n", h.ID, h.Error)
		}
	}
	return nil
}
