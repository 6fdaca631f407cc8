// Package testutil holds fixtures shared by the CLI tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/playlake/internal/cli/output"
	fixtures "github.com/leapstack-labs/playlake/internal/testutil"
)

const projectConfig = `source_root: data
dest_root: out
state_path: .playlake/state.db
parallelism: 2
`

// SetupTestProject creates a project in a temp directory: a playlake.yaml
// with relative roots, two catalog files and one event log holding a
// matched play, an unmatched play and a page view.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "playlake.yaml"), []byte(projectConfig), 0600))

	songs := filepath.Join(dir, "data", "song_data", "A", "A")
	fixtures.WriteNDJSON(t, filepath.Join(songs, "A", "TRAAAAW128F429D538.json"),
		fixtures.SongRecord("SOMZWCG12A8C13C480", "I Didn't Mean To", "ARD7TVE1187B99BFB1", "Casual", 2004, 218.93179))
	fixtures.WriteNDJSON(t, filepath.Join(songs, "B", "TRAAABD128F429CF47.json"),
		fixtures.SongRecord("SOCIWDW12A8C13D406", "Soul Deep", "ARMJAGH1187FB546F3", "The Box Tops", 1969, 148.03546))

	fixtures.WriteNDJSON(t, filepath.Join(dir, "data", "log_data", "2018", "11", "2018-11-02-events.json"),
		fixtures.EventRecord("NextSong", fixtures.GoldenTS, 39, 38, "Soul Deep", "The Box Tops"),
		fixtures.EventRecord("NextSong", fixtures.GoldenTS+1000, 39, 38, "Unknown Song", "Nobody"),
		fixtures.EventRecord("Home", fixtures.GoldenTS+2000, 39, 38, "", ""),
	)
	return dir
}

// TestRenderer is a Renderer writing into buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

func newTestRenderer(mode output.OutputMode, tty bool) *TestRenderer {
	var out, errOut bytes.Buffer
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(&out, &errOut, tty, mode),
		Out:      &out,
		ErrOut:   &errOut,
	}
}

// NewTestRendererText returns a text renderer that believes it writes to a terminal.
func NewTestRendererText() *TestRenderer { return newTestRenderer(output.ModeText, true) }

// NewTestRendererMarkdown returns a markdown renderer.
func NewTestRendererMarkdown() *TestRenderer { return newTestRenderer(output.ModeMarkdown, false) }

// NewTestRendererJSON returns a JSON renderer.
func NewTestRendererJSON() *TestRenderer { return newTestRenderer(output.ModeJSON, false) }

// Output returns what was written to stdout.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput returns what was written to stderr.
func (tr *TestRenderer) ErrorOutput() string { return tr.ErrOut.String() }

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails if s carries terminal escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	assert.False(t, ansiEscape.MatchString(s), "unexpected ANSI escape codes in %q", s)
}

// AssertValidMarkdown checks that code fences are balanced and no heading is empty.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()
	assert.Zero(t, strings.Count(md, "```")%2, "unbalanced code fences")
	for i, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			assert.NotEmpty(t, strings.TrimLeft(line, "# "), "empty heading at line %d", i+1)
		}
	}
}
