package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/cartographer/pkg/cartographer/changes"
)

func sampleChanges() *changes.ChangeSet {
	return changes.Detect(
		map[string]string{"a/b.txt": "new", "c.txt": "1", "d/e/f.go": "2"},
		map[string]string{"a/b.txt": "old", "c.txt": "1", "gone.md": "3"},
	)
}

func format(t *testing.T, name string, r *Result) string {
	t.Helper()
	f, err := Get(name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "plain", "pretty", "yaml"}, Available())

	_, err := Get("xml")
	assert.Error(t, err)

	r := NewRegistry()
	r.Register("x", func() Formatter { return &PlainFormatter{} })
	f, err := r.Get("x")
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, f)
}

func TestPlain_Changes(t *testing.T) {
	out := format(t, "plain", &Result{Operation: OpChanges, Changes: sampleChanges()})

	want := `
Added (1):
  + d/e/f.go

Removed (1):
  - gone.md

Modified (1):
  ~ a/b.txt

Affected folders (4):
  ./
  a/
  d/
  d/e/
`
	assert.Equal(t, want, out)
}

func TestPlain_NoChanges(t *testing.T) {
	cs := changes.Detect(map[string]string{"a": "1"}, map[string]string{"a": "1"})

	assert.Equal(t, "No changes.\n", format(t, "plain", &Result{Operation: OpChanges, Changes: cs}))
	assert.Equal(t, "No changes.\n", format(t, "plain", &Result{Operation: OpChanges}))
}

func TestPlain_SkipsEmptySections(t *testing.T) {
	cs := changes.Detect(map[string]string{"x.go": "1"}, nil)

	out := format(t, "plain", &Result{Operation: OpChanges, Changes: cs})

	assert.Contains(t, out, "Added (1):")
	assert.NotContains(t, out, "Removed")
	assert.NotContains(t, out, "Modified")
	assert.Contains(t, out, "Affected folders (1):\n  ./\n")
}

func TestPlain_InitAndUpdate(t *testing.T) {
	initOut := format(t, "plain", &Result{
		Operation:       OpInit,
		StateFile:       ".slim/cartography.json",
		Files:           12,
		CodemapsCreated: 3,
	})
	assert.Equal(t, "Selected 12 files\nCreated .slim/cartography.json\nCreated 3 empty codemap.md files\n", initOut)

	update := format(t, "plain", &Result{
		Operation: OpUpdate,
		StateFile: ".slim/cartography.json",
		Files:     7,
		Changes:   sampleChanges(),
	})
	assert.Equal(t, "Updated .slim/cartography.json (7 files)\n", update)
}

func TestPretty(t *testing.T) {
	out := format(t, "pretty", &Result{
		Operation:     OpChanges,
		Root:          "/work/repo",
		Files:         1234,
		Folders:       5,
		HashAlgorithm: "md5",
		LastRun:       time.Now().Add(-2 * time.Hour),
		Duration:      1500 * time.Millisecond,
		Changes:       sampleChanges(),
		Filter:        []string{"**/*.go"},
	})

	for _, want := range []string{
		"/work/repo", "1,234 files", "md5", "1.5s", "2 hours ago", "**/*.go",
		"Added (1)", "d/e/f.go", "Removed (1)", "gone.md", "Modified (1)", "a/b.txt",
		"Affected folders (4)", "d/e/",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPretty_NoChanges(t *testing.T) {
	out := format(t, "pretty", &Result{Operation: OpChanges, Root: "/r"})
	assert.Contains(t, out, "No changes.")
}

func TestPretty_Init(t *testing.T) {
	out := format(t, "pretty", &Result{
		Operation:       OpInit,
		Root:            "/r",
		StateFile:       ".slim/cartography.json",
		CodemapsCreated: 1,
	})
	assert.Contains(t, out, "Created .slim/cartography.json")
	assert.Contains(t, out, "Created 1 codemap.md file")
}

func TestJSON(t *testing.T) {
	lastRun := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	out := format(t, "json", &Result{
		Operation:     OpChanges,
		Root:          "/r",
		StateFile:     ".slim/cartography.json",
		Files:         3,
		HashAlgorithm: "xxh3",
		LastRun:       lastRun,
		Changes:       sampleChanges(),
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, "changes", got["operation"])
	assert.Equal(t, "xxh3", got["hash_algorithm"])
	assert.Equal(t, "2024-06-15T10:30:00Z", got["last_run"])

	cs, ok := got["changes"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, cs["empty"])
	assert.Equal(t, []any{"d/e/f.go"}, cs["added"])
	assert.Equal(t, []any{".", "a", "d", "d/e"}, cs["affected_folders"])
}

func TestJSON_InitHasNoChanges(t *testing.T) {
	out := format(t, "json", &Result{Operation: OpInit, Root: "/r"})
	assert.NotContains(t, out, `"changes"`)
	assert.NotContains(t, out, `"last_run"`)
}

func TestJSON_EmptyChangesAreArrays(t *testing.T) {
	out := format(t, "json", &Result{Operation: OpChanges})
	assert.Contains(t, out, `"added": []`)
	assert.Contains(t, out, `"empty": true`)
}

func TestYAML(t *testing.T) {
	out := format(t, "yaml", &Result{
		Operation: OpUpdate,
		Root:      "/r",
		Files:     2,
		Changes:   sampleChanges(),
	})

	var got struct {
		Operation string `yaml:"operation"`
		Files     int    `yaml:"files"`
		Changes   struct {
			Modified []string `yaml:"modified"`
		} `yaml:"changes"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))

	assert.Equal(t, "update", got.Operation)
	assert.Equal(t, 2, got.Files)
	assert.Equal(t, []string{"a/b.txt"}, got.Changes.Modified)
	assert.True(t, strings.HasPrefix(out, "operation: update"))
}
