package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/playlake/internal/cli/config"
	"github.com/leapstack-labs/playlake/internal/cli/testutil"
	"github.com/leapstack-labs/playlake/internal/engine"
	"github.com/leapstack-labs/playlake/pkg/core"
)

func checkByID(t *testing.T, out *DoctorOutput, id string) HealthCheck {
	t.Helper()
	for _, c := range out.HealthChecks {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("check %s not reported", id)
	return HealthCheck{}
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{name: "no checks returns 100", want: 100},
		{name: "all passing returns 100", checks: []HealthCheck{{Status: statusPass}, {Status: statusPass}}, want: 100},
		{name: "warning costs 10", checks: []HealthCheck{{Status: statusWarn}}, want: 90},
		{name: "error costs 25", checks: []HealthCheck{{Status: statusError}, {Status: statusWarn}}, want: 65},
		{name: "clamped at 0", checks: []HealthCheck{{Status: statusError}, {Status: statusError}, {Status: statusError}, {Status: statusError}, {Status: statusError}}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{ID: "CF01", Status: statusWarn},
		{ID: "SR01", Status: statusError},
		{ID: "SR02", Status: statusError},
		{ID: "DS01", Status: statusPass},
	}

	recommendations := generateRecommendations(checks)

	// SR01 and SR02 share a recommendation
	require.Len(t, recommendations, 2)
	assert.Contains(t, recommendations[0], "playlake init")
	assert.Contains(t, recommendations[1], "source_root")
	assert.Empty(t, getRecommendation("UNKNOWN"))
}

func TestDiagnose_HealthyProject(t *testing.T) {
	cfg, _ := setupEngine(t)

	out := diagnose(context.Background(), cfg, func() (*engine.Engine, error) {
		return createEngine(cfg, nil)
	})

	assert.Equal(t, 100, out.Score, "checks: %+v", out.HealthChecks)
	assert.Zero(t, out.IssueCount)
	assert.Empty(t, out.Recommendations)
	assert.Equal(t, 2, out.Summary.CatalogFiles)
	assert.Equal(t, 1, out.Summary.EventFiles)
	assert.Equal(t, "configuration", out.HealthChecks[0].Group, "checks are sorted by group")
	assert.Nil(t, checkByID(t, out, "SR01").Details)
	assert.Equal(t, int64(1), out.Summary.StateSchema)
	assert.Zero(t, out.Summary.Runs)
}

func TestDiagnose_LastRunFailed(t *testing.T) {
	cfg, eng := setupEngine(t)
	store := eng.GetStateStore()

	ok, err := store.CreateRun("catalog")
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ok.ID, core.RunStatusCompleted, ""))
	failed, err := store.CreateRun("events")
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(failed.ID, core.RunStatusFailed, "read events: no files"))

	out := diagnose(context.Background(), cfg, func() (*engine.Engine, error) {
		return createEngine(cfg, nil)
	})

	history := checkByID(t, out, "ST02")
	assert.Equal(t, statusWarn, history.Status)
	assert.Equal(t, []string{"last run failed: read events: no files"}, history.Details)
	assert.Equal(t, 2, out.Summary.Runs)
	assert.Equal(t, statusPass, checkByID(t, out, "ST01").Status)
}

func TestDiagnose_MissingSources(t *testing.T) {
	cfg, _ := setupEngine(t)
	require.NoError(t, os.RemoveAll(filepath.Join(cfg.SourceRoot, "log_data")))

	out := diagnose(context.Background(), cfg, func() (*engine.Engine, error) {
		return createEngine(cfg, nil)
	})

	assert.Equal(t, statusPass, checkByID(t, out, "SR01").Status)
	events := checkByID(t, out, "SR02")
	assert.Equal(t, statusError, events.Status)
	require.Len(t, events.Details, 1)
	assert.Contains(t, events.Details[0], "no files match")
	assert.Equal(t, 75, out.Score)
}

func TestDiagnose_EngineUnavailable(t *testing.T) {
	config.ResetConfig()
	cfg := &config.Config{SourceRoot: "in", DestRoot: "out", Parallelism: 1, LogFormat: "text"}

	out := diagnose(context.Background(), cfg, func() (*engine.Engine, error) {
		return nil, errors.New("state store locked")
	})

	state := checkByID(t, out, "ST01")
	assert.Equal(t, statusError, state.Status)
	assert.Equal(t, []string{"state store locked"}, state.Details)
	assert.Equal(t, statusWarn, checkByID(t, out, "CF01").Status)
	assert.Len(t, out.HealthChecks, 3)
}

func TestProbeDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lake")
	require.NoError(t, probeDestination(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")

	assert.NoError(t, probeDestination("s3://bucket/lake"))
}

func TestRenderDoctor(t *testing.T) {
	out := &DoctorOutput{
		Summary: ProjectSummary{SourceRoot: "data", DestRoot: "out", JoinStrategy: "title", JoinMode: "inner"},
		HealthChecks: []HealthCheck{
			{ID: "CF01", Name: "config-file", Group: "configuration", Status: statusWarn, Details: []string{"no playlake.yaml found"}},
			{ID: "DS01", Name: "destination-writable", Group: "destination", Status: statusPass},
		},
		Score:           90,
		Recommendations: []string{"Run 'playlake init' to create a playlake.yaml"},
		IssueCount:      1,
	}

	md := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderDoctorMarkdown(md.Renderer, out))
	testutil.AssertValidMarkdown(t, md.Output())
	assert.Contains(t, md.Output(), "### Configuration")
	assert.Contains(t, md.Output(), "- **[WARN]** CF01: config-file")
	assert.Contains(t, md.Output(), "**90/100**")
	testutil.AssertNoANSI(t, md.Output())

	text := testutil.NewTestRendererText()
	require.NoError(t, renderDoctorText(text.Renderer, out))
	assert.Contains(t, text.Output(), "Destination")
	assert.Contains(t, text.Output(), "DS01: destination-writable")
}
