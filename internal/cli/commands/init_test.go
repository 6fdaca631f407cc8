package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/playlake/internal/cli/config"
)

func runInitIn(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)

	var out bytes.Buffer
	cmd := NewInitCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCommand(t *testing.T) {
	existing := func(t *testing.T, dir string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "playlake.yaml"), []byte("existing"), 0600))
	}

	tests := []struct {
		name    string
		prepare func(t *testing.T, dir string)
		args    []string
		created []string
		errMsg  string
	}{
		{
			name:    "current directory",
			created: []string{"playlake.yaml", "data/song_data", "data/log_data"},
		},
		{
			name:    "named directory",
			args:    []string{"lake"},
			created: []string{"lake/playlake.yaml", "lake/data/song_data", "lake/data/log_data"},
		},
		{
			name:    "refuses to overwrite",
			prepare: existing,
			errMsg:  "already exists. Use --force to overwrite",
		},
		{
			name:    "force overwrites",
			prepare: existing,
			args:    []string{"--force"},
			created: []string{"playlake.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.prepare != nil {
				tt.prepare(t, dir)
			}

			_, err := runInitIn(t, dir, tt.args...)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			for _, rel := range tt.created {
				_, err := os.Stat(filepath.Join(dir, rel))
				assert.NoError(t, err, "expected %s to exist", rel)
			}
		})
	}
}

func TestInitCommand_Flags(t *testing.T) {
	cmd := NewInitCommand()
	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
}

func TestInitCommand_WritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := runInitIn(t, dir)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "playlake.yaml"))
	require.NoError(t, err)
	for _, line := range []string{"source_root: data", "dest_root: out", "catalog_path: song_data/**/*.json", "strategy: title"} {
		assert.Contains(t, string(content), line)
	}

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "inner", cfg.Join.Mode)
	assert.Equal(t, "none", cfg.Credentials.Provider)
	assert.True(t, filepath.IsAbs(cfg.DestRoot), "dest_root resolves against the project root")
}
