// Package main provides tests for the playlake CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/playlake/internal/cli"
	"github.com/leapstack-labs/playlake/internal/cli/config"
	"github.com/leapstack-labs/playlake/internal/cli/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "playlake") {
		t.Errorf("version output should contain 'playlake', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"run", "plan", "history", "doctor", "init", "completion"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestRunCommand(t *testing.T) {
	project := testutil.SetupTestProject(t)
	dest := t.TempDir()

	output, err := execute(t,
		"run",
		"--config", filepath.Join(project, "playlake.yaml"),
		"--dest", dest,
		"--output", "markdown",
	)
	if err != nil {
		t.Fatalf("run command error = %v\n%s", err, output)
	}
	if !strings.Contains(output, "song_plays") {
		t.Errorf("run output should list song_plays, got: %s", output)
	}

	for _, table := range []string{"songs", "artists", "users", "time", "song_plays"} {
		if _, err := os.Stat(filepath.Join(dest, table)); err != nil {
			t.Errorf("expected table directory %s: %v", table, err)
		}
	}
}

func TestRunCommandPhases(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(project, "playlake.yaml")

	if _, err := execute(t, "run", "--config", cfgPath, "--phase", "events"); err == nil {
		t.Fatal("events phase should fail before the catalog is materialized")
	}
	if _, err := execute(t, "run", "--config", cfgPath, "--phase", "catalog"); err != nil {
		t.Fatalf("catalog phase error = %v", err)
	}
	if _, err := execute(t, "run", "--config", cfgPath, "--phase", "events", "--join", "title_artist"); err != nil {
		t.Fatalf("events phase error = %v", err)
	}
	if _, err := execute(t, "run", "--config", cfgPath, "--phase", "facts"); err == nil {
		t.Error("unknown phase should fail")
	}
}

func TestHistoryCommandJSON(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(project, "playlake.yaml")

	if _, err := execute(t, "run", "--config", cfgPath, "--phase", "catalog"); err != nil {
		t.Fatalf("run error = %v", err)
	}

	output, err := execute(t, "history", "--config", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("history command error = %v", err)
	}

	var runs []map[string]any
	if err := json.Unmarshal([]byte(output), &runs); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, output)
	}
	if len(runs) != 1 || runs[0]["phase"] != "catalog" {
		t.Errorf("unexpected history: %v", runs)
	}
}

func TestInvalidConfig(t *testing.T) {
	project := testutil.SetupTestProject(t)

	_, err := execute(t, "plan", "--config", filepath.Join(project, "playlake.yaml"), "--log-format", "xml")
	if err == nil || !strings.Contains(err.Error(), "log_format") {
		t.Errorf("expected log_format error, got %v", err)
	}
}
