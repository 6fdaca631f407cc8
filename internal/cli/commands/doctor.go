package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/playlake/internal/cli/config"
	"github.com/leapstack-labs/playlake/internal/cli/output"
	"github.com/leapstack-labs/playlake/internal/engine"
	"github.com/leapstack-labs/playlake/pkg/core"
)

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary describes the configured pipeline.
type ProjectSummary struct {
	ConfigFile   string `json:"config_file,omitempty"`
	SourceRoot   string `json:"source_root"`
	DestRoot     string `json:"dest_root"`
	StatePath    string `json:"state_path"`
	TimeZone     string `json:"timezone"`
	JoinStrategy string `json:"join_strategy"`
	JoinMode     string `json:"join_mode"`
	CatalogFiles int    `json:"catalog_files"`
	EventFiles   int    `json:"event_files"`
	Runs         int    `json:"runs"`
	StateSchema  int64  `json:"state_schema"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, sources and destination",
		Long: `Check that a run can succeed before starting one.

The doctor command validates the configuration, counts the source files
matched by the catalog and event globs, probes the destination and the
state database, and resolves object-store credentials.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  playlake doctor

  # Output as JSON
  playlake doctor -o json`,
		RunE: runDoctor,
	}
	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	doctorOutput := diagnose(commandContext(cmd), cmdCtx.Cfg, func() (*engine.Engine, error) {
		return createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	})

	// Render based on mode
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(doctorOutput)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, doctorOutput)
	default:
		return renderDoctorText(r, doctorOutput)
	}
}

// diagnose runs every check. newEngine is called once; checks that need the
// engine are reported as errors when it cannot be created.
func diagnose(ctx context.Context, cfg *config.Config, newEngine func() (*engine.Engine, error)) *DoctorOutput {
	summary := ProjectSummary{
		ConfigFile:   config.GetConfigFileUsed(),
		SourceRoot:   cfg.SourceRoot,
		DestRoot:     cfg.DestRoot,
		StatePath:    cfg.StatePath,
		TimeZone:     cfg.TimeZone,
		JoinStrategy: cfg.Join.Strategy,
		JoinMode:     cfg.Join.Mode,
	}

	var checks []HealthCheck
	add := func(id, name, group, status string, details ...string) {
		checks = append(checks, HealthCheck{ID: id, Name: name, Group: group, Status: status, Details: details})
	}

	if summary.ConfigFile == "" {
		add("CF01", "config-file", "configuration", statusWarn, "no playlake.yaml found; using defaults")
	} else {
		add("CF01", "config-file", "configuration", statusPass)
	}
	if err := cfg.Validate(); err != nil {
		add("CF02", "config-valid", "configuration", statusError, err.Error())
	} else {
		add("CF02", "config-valid", "configuration", statusPass)
	}

	eng, err := newEngine()
	if err != nil {
		add("ST01", "state-store", "state", statusError, err.Error())
		return finishDoctor(summary, checks)
	}
	defer func() { _ = eng.Close() }()
	store := eng.GetStateStore()
	if version, err := store.GetMigrationVersion(); err != nil {
		add("ST01", "state-store", "state", statusError, "cannot read schema version: "+err.Error())
	} else {
		summary.StateSchema = version
		add("ST01", "state-store", "state", statusPass)
	}

	runs, err := store.ListRuns(0)
	if err == nil {
		summary.Runs = len(runs)
	}
	switch latest, lerr := store.GetLatestRun(); {
	case err != nil:
		add("ST02", "run-history", "state", statusWarn, err.Error())
	case lerr != nil:
		add("ST02", "run-history", "state", statusWarn, lerr.Error())
	case latest != nil && latest.Status == core.RunStatusFailed:
		add("ST02", "run-history", "state", statusWarn, "last run failed: "+latest.Error)
	default:
		add("ST02", "run-history", "state", statusPass)
	}

	provider := eng.GetCredentialProvider()
	if creds, err := provider.Retrieve(ctx); err != nil {
		add("CR01", "credentials", "credentials", statusError, err.Error())
	} else if creds == nil && (core.IsRemote(cfg.SourceRoot) || core.IsRemote(cfg.DestRoot)) {
		add("CR01", "credentials", "credentials", statusWarn, "remote paths configured without credentials (provider "+provider.Name()+")")
	} else {
		add("CR01", "credentials", "credentials", statusPass)
	}

	catalog, events, err := eng.SourceFiles(ctx)
	switch {
	case err != nil:
		add("SR01", "catalog-files", "sources", statusError, err.Error())
		add("SR02", "event-files", "sources", statusError, err.Error())
	default:
		summary.CatalogFiles, summary.EventFiles = catalog, events
		add("SR01", "catalog-files", "sources", countStatus(catalog), "no files match "+eng.CatalogPattern())
		add("SR02", "event-files", "sources", countStatus(events), "no files match "+eng.EventsPattern())
	}

	if err := probeDestination(cfg.DestRoot); err != nil {
		add("DS01", "destination-writable", "destination", statusError, err.Error())
	} else {
		add("DS01", "destination-writable", "destination", statusPass)
	}

	return finishDoctor(summary, checks)
}

func countStatus(n int) string {
	if n == 0 {
		return statusError
	}
	return statusPass
}

// probeDestination checks that a local destination root can be created and
// written to. Remote roots are not probed.
func probeDestination(root string) error {
	if core.IsRemote(root) {
		return nil
	}
	if err := os.MkdirAll(root, 0750); err != nil {
		return fmt.Errorf("cannot create %s: %w", root, err)
	}
	f, err := os.CreateTemp(root, ".playlake-probe-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", root, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

func finishDoctor(summary ProjectSummary, checks []HealthCheck) *DoctorOutput {
	// Passing checks carry no details
	issues := 0
	for i := range checks {
		if checks[i].Status == statusPass {
			checks[i].Details = nil
			continue
		}
		issues++
	}

	// Sort health checks by group then by ID
	sort.SliceStable(checks, func(i, j int) bool {
		if checks[i].Group != checks[j].Group {
			return checks[i].Group < checks[j].Group
		}
		return checks[i].ID < checks[j].ID
	})

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

// calculateHealthScore computes a health score from 0-100.
// Warnings cost 10 points and errors 25.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case statusError:
			score -= 25
		case statusWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.Status == statusPass {
			continue
		}
		rec := getRecommendation(check.ID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(id string) string {
	switch id {
	case "CF01":
		return "Run 'playlake init' to create a playlake.yaml"
	case "CF02":
		return "Fix the configuration errors reported above"
	case "ST01":
		return "Check state_path points to a writable location"
	case "ST02":
		return "Inspect the failed run with 'playlake history'"
	case "CR01":
		return "Set credentials.provider to static, env or aws for object-store paths"
	case "SR01", "SR02":
		return "Check source_root, catalog_path and events_path"
	case "DS01":
		return "Check dest_root points to a writable location"
	default:
		return ""
	}
}

func statusIcon(styles *output.Styles, status string) string {
	switch status {
	case statusWarn:
		return styles.Warning.Render("!")
	case statusError:
		return styles.StatusFailed.String()
	}
	return styles.StatusSuccess.String()
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	// Header
	r.Println("")
	r.Println(styles.Header1.Render("playlake Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Pipeline"))
	r.Printf("   Source: %s\n", out.Summary.SourceRoot)
	r.Printf("   Destination: %s\n", out.Summary.DestRoot)
	r.Printf("   Catalog files: %d | Event files: %d | Runs: %d | State schema: v%d\n",
		out.Summary.CatalogFiles, out.Summary.EventFiles, out.Summary.Runs, out.Summary.StateSchema)
	r.Printf("   Join: %s (%s) | Time zone: %s\n", out.Summary.JoinStrategy, out.Summary.JoinMode, out.Summary.TimeZone)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}
		r.Printf("   %s %s: %s\n", statusIcon(styles, check.Status), check.ID, check.Name)
		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	// Health Score
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println(output.FormatHeader(1, "playlake Health Report"))
	r.Println("")

	r.Println(output.FormatHeader(2, "Pipeline"))
	r.Println("")
	r.Printf("- **Source**: %s\n", out.Summary.SourceRoot)
	r.Printf("- **Destination**: %s\n", out.Summary.DestRoot)
	r.Printf("- **Catalog files**: %d\n", out.Summary.CatalogFiles)
	r.Printf("- **Event files**: %d\n", out.Summary.EventFiles)
	r.Printf("- **Runs**: %d\n", out.Summary.Runs)
	r.Printf("- **State schema**: v%d\n", out.Summary.StateSchema)
	r.Printf("- **Join**: %s (%s)\n", out.Summary.JoinStrategy, out.Summary.JoinMode)
	r.Println("")

	r.Println(output.FormatHeader(2, "Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(output.FormatHeader(3, titleCaser.String(currentGroup)))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s\n", strings.ToUpper(check.Status), check.ID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println(output.FormatHeader(2, "Health Score"))
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(output.FormatHeader(2, "Recommendations"))
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
