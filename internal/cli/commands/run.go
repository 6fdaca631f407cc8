package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/playlake/internal/cli/output"
	"github.com/leapstack-labs/playlake/internal/engine"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Phase      string
	JSONOutput bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline",
		Long: `Build the star schema from the raw song catalog and activity log.

By default every stage runs: the catalog and events stages in parallel,
then fact assembly. Use --phase catalog to refresh only songs and artists,
or --phase events to rebuild users, time and song_plays against the
catalog already written to the destination.

Every table is overwritten as a whole on each run.`,
		Example: `  # Run the whole pipeline
  playlake run

  # Refresh the catalog only
  playlake run --phase catalog

  # Rebuild events and facts against the persisted catalog
  playlake run --phase events

  # Run with JSON output for CI/CD integration
  playlake run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Phase, "phase", string(engine.PhaseAll), "Phase to run (all|catalog|events)")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")
	cmd.Flags().String("join", "", "Song lookup used by fact assembly (title|title_artist)")
	cmd.Flags().String("join-mode", "", "Keep (left) or drop (inner) plays without a matching song")
	cmd.Flags().Int("parallelism", 0, "Maximum number of stages run at once")
	cmd.Flags().String("timezone", "", "IANA zone calendar fields are derived in")

	_ = cmd.RegisterFlagCompletionFunc("phase", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return engine.Phases(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	phase, err := engine.ParsePhase(opts.Phase)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	if opts.JSONOutput {
		return runWithJSON(ctx, cmdCtx.Engine, phase, cmdCtx.Renderer.Writer())
	}
	return runWithText(ctx, cmdCtx.Engine, phase, cmdCtx.Renderer)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runWithText runs the pipeline and prints a table of written tables.
func runWithText(ctx context.Context, eng *engine.Engine, phase engine.Phase, r *output.Renderer) error {
	levels, err := eng.Plan(phase)
	if err != nil {
		return err
	}
	r.Printf("Running phase %s: %s\n", phase, formatLevels(levels))

	result, runErr := eng.Run(ctx, phase)
	if result == nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	if len(result.Tables) > 0 {
		r.Println("")
		r.Table(runTableHeader, runTableRows(result))
	}

	if result.EventsScanned > 0 {
		r.Println("")
		r.Printf("Events: %s scanned, %s song plays kept\n",
			output.FormatCount(int64(result.EventsScanned)), output.FormatCount(int64(result.EventsKept)))
	}
	if result.Unmatched > 0 {
		r.Warning(fmt.Sprintf("%s without a catalog match", output.Plural(result.Unmatched, "song play")))
	}

	r.Println("")
	if runErr != nil {
		r.Error(fmt.Sprintf("Run %s failed after %s", result.Run.ID, output.FormatDuration(result.Duration)))
		return fmt.Errorf("run failed: %w", runErr)
	}
	r.Success(fmt.Sprintf("Run %s completed: %s in %s",
		result.Run.ID, output.Plural(len(result.Tables), "table"), output.FormatDuration(result.Duration)))
	return nil
}

var runTableHeader = []string{"Stage", "Table", "Rows", "Partitions", "Change", "Duration"}

func runTableRows(result *engine.RunResult) [][]string {
	rows := make([][]string, 0, len(result.Tables))
	for _, t := range result.Tables {
		rows = append(rows, []string{
			t.Stage,
			t.Table,
			output.FormatCount(t.Rows),
			fmt.Sprintf("%d", t.Partitions),
			string(t.Change),
			output.FormatDuration(t.Duration),
		})
	}
	return rows
}

// formatLevels renders execution levels as "catalog, events -> facts".
func formatLevels(levels [][]string) string {
	parts := make([]string, len(levels))
	for i, level := range levels {
		parts[i] = strings.Join(level, ", ")
	}
	return strings.Join(parts, " -> ")
}

// runWithJSON runs the pipeline and emits JSON lines.
func runWithJSON(ctx context.Context, eng *engine.Engine, phase engine.Phase, w io.Writer) error {
	levels, err := eng.Plan(phase)
	if err != nil {
		return err
	}
	var stages []string
	for _, level := range levels {
		stages = append(stages, level...)
	}

	emitRunEvent(w, output.RunEvent{
		Event:  "run_start",
		Phase:  string(phase),
		Stages: stages,
	})

	result, runErr := eng.Run(ctx, phase)
	if result == nil {
		emitRunEvent(w, output.RunEvent{
			Event:  "run_complete",
			Phase:  string(phase),
			Status: "failed",
			Error:  runErr.Error(),
		})
		return runErr
	}

	for _, t := range result.Tables {
		emitRunEvent(w, output.RunEvent{
			Event:       "table_complete",
			RunID:       result.Run.ID,
			Stage:       t.Stage,
			Table:       t.Table,
			Path:        t.Path,
			Rows:        t.Rows,
			Partitions:  t.Partitions,
			Fingerprint: t.Fingerprint,
			Change:      string(t.Change),
			ExecutionMS: t.Duration.Milliseconds(),
			Status:      "success",
		})
	}

	event := output.RunEvent{
		Event:         "run_complete",
		RunID:         result.Run.ID,
		Phase:         string(phase),
		Status:        string(result.Run.Status),
		EventsScanned: result.EventsScanned,
		EventsKept:    result.EventsKept,
		Unmatched:     result.Unmatched,
		TotalTables:   len(result.Tables),
		TotalMS:       result.Duration.Milliseconds(),
	}
	if runErr != nil {
		event.Status = "failed"
		event.Error = runErr.Error()
	}
	emitRunEvent(w, event)

	return runErr
}

// emitRunEvent outputs a run event as a JSON line.
func emitRunEvent(w io.Writer, event output.RunEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, _ := json.Marshal(event)
	_, _ = fmt.Fprintln(w, string(data))
}
