package changes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	saved := map[string]string{
		"README.md":     "r1",
		"a/b.txt":       "b1",
		"a/c/d.txt":     "d1",
		"gone.txt":      "g1",
		"was_broken.md": "",
	}
	current := map[string]string{
		"README.md":     "r1",
		"a/b.txt":       "b2",
		"a/c/d.txt":     "d1",
		"new/deep/e.go": "e1",
		"was_broken.md": "w1",
	}

	cs := Detect(current, saved)

	assert.Equal(t, []string{"new/deep/e.go"}, cs.Added)
	assert.Equal(t, []string{"gone.txt"}, cs.Removed)
	assert.Equal(t, []string{"a/b.txt", "was_broken.md"}, cs.Modified)
	assert.Equal(t, []string{".", "a", "new", "new/deep"}, cs.AffectedFolders)
	assert.Equal(t, 4, cs.Count())
	assert.False(t, cs.Empty())
}

func TestDetect_NoChanges(t *testing.T) {
	record := map[string]string{"a.txt": "1", "b/c.txt": "2"}

	cs := Detect(record, record)

	assert.True(t, cs.Empty())
	assert.NotNil(t, cs.Added)
	assert.NotNil(t, cs.Removed)
	assert.NotNil(t, cs.Modified)
	assert.Empty(t, cs.AffectedFolders, "root folder is only affected when something changed")
}

func TestDetect_EmptyRecords(t *testing.T) {
	tests := []struct {
		name    string
		current map[string]string
		saved   map[string]string
		added   []string
		removed []string
	}{
		{"both empty", nil, nil, []string{}, []string{}},
		{"nothing saved", map[string]string{"x": "1"}, nil, []string{"x"}, []string{}},
		{"nothing current", nil, map[string]string{"x": "1"}, []string{}, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := Detect(tt.current, tt.saved)
			assert.Equal(t, tt.added, cs.Added)
			assert.Equal(t, tt.removed, cs.Removed)
			assert.Empty(t, cs.Modified)
		})
	}
}

func TestDetect_ModifiedNestedFile(t *testing.T) {
	cs := Detect(
		map[string]string{"a/b.txt": "new"},
		map[string]string{"a/b.txt": "old"},
	)

	assert.Equal(t, []string{"a/b.txt"}, cs.Modified)
	assert.Contains(t, cs.AffectedFolders, "a")
	assert.Contains(t, cs.AffectedFolders, ".")
}

func TestAffectedFolders(t *testing.T) {
	assert.Empty(t, AffectedFolders(nil))
	assert.Equal(t, []string{"."}, AffectedFolders([]string{"top.txt"}))
	assert.Equal(t,
		[]string{".", "x", "x/y", "z"},
		AffectedFolders([]string{"x/y/1", "x/2", "z/3", "x/y/4"}),
	)
}

func TestRestrict(t *testing.T) {
	cs := &ChangeSet{
		Added:    []string{"docs/guide.md", "main.go"},
		Removed:  []string{"pkg/old/old.go"},
		Modified: []string{"pkg/a/a.go", "README.md"},
	}
	cs.AffectedFolders = AffectedFolders(cs.Changed())

	tests := []struct {
		name     string
		globs    []string
		added    []string
		removed  []string
		modified []string
		folders  []string
	}{
		{
			name:     "no globs keeps everything",
			globs:    nil,
			added:    cs.Added,
			removed:  cs.Removed,
			modified: cs.Modified,
			folders:  cs.AffectedFolders,
		},
		{
			name:     "double star crosses directories",
			globs:    []string{"pkg/**"},
			added:    []string{},
			removed:  []string{"pkg/old/old.go"},
			modified: []string{"pkg/a/a.go"},
			folders:  []string{".", "pkg", "pkg/a", "pkg/old"},
		},
		{
			name:     "single star stays in one segment",
			globs:    []string{"*.go"},
			added:    []string{"main.go"},
			removed:  []string{},
			modified: []string{},
			folders:  []string{"."},
		},
		{
			name:     "any of several globs",
			globs:    []string{"*.md", "docs/*"},
			added:    []string{"docs/guide.md"},
			removed:  []string{},
			modified: []string{"README.md"},
			folders:  []string{".", "docs"},
		},
		{
			name:     "nothing matches",
			globs:    []string{"*.rs"},
			added:    []string{},
			removed:  []string{},
			modified: []string{},
			folders:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cs.Restrict(tt.globs)
			require.NoError(t, err)
			assert.Equal(t, tt.added, got.Added)
			assert.Equal(t, tt.removed, got.Removed)
			assert.Equal(t, tt.modified, got.Modified)
			assert.Equal(t, tt.folders, got.AffectedFolders)
		})
	}
}

func TestRestrict_DoesNotMutate(t *testing.T) {
	cs := Detect(map[string]string{"a.go": "1", "b.md": "2"}, nil)

	_, err := cs.Restrict([]string{"*.go"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "b.md"}, cs.Added)
}

func TestRestrict_InvalidGlob(t *testing.T) {
	cs := Detect(map[string]string{"a.go": "1"}, nil)

	_, err := cs.Restrict([]string{"[unclosed"})
	assert.Error(t, err)
}
