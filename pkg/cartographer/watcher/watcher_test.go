package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, root string, opts ...Option) (*Watcher, <-chan struct{}) {
	t.Helper()

	opts = append([]Option{WithDebounce(testDebounce)}, opts...)
	w, err := New(root, opts...)
	require.NoError(t, err)
	require.NoError(t, w.Watch())

	settled := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(context.Context) { settled <- struct{}{} })
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})

	// Give the event loop a moment to start.
	time.Sleep(20 * time.Millisecond)
	return w, settled
}

func waitSettle(t *testing.T, settled <-chan struct{}) {
	t.Helper()
	select {
	case <-settled:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for settle")
	}
}

func assertQuiet(t *testing.T, settled <-chan struct{}) {
	t.Helper()
	select {
	case <-settled:
		t.Fatal("unexpected settle")
	case <-time.After(10 * testDebounce):
	}
}

func TestWatch_RegistersVisibleDirectories(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"a/b", "c", ".git/objects", "state/inner"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	w, err := New(root, WithSkip("state"))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch())

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.paths[root])
	assert.True(t, w.paths[filepath.Join(root, "a")])
	assert.True(t, w.paths[filepath.Join(root, "a", "b")])
	assert.True(t, w.paths[filepath.Join(root, "c")])
	assert.False(t, w.paths[filepath.Join(root, ".git")])
	assert.False(t, w.paths[filepath.Join(root, "state")])
	assert.Len(t, w.paths, 4)
}

func TestWatch_Errors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	for _, path := range []string{filepath.Join(root, "missing"), file} {
		w, err := New(path)
		require.NoError(t, err)
		assert.Error(t, w.Watch())
		require.NoError(t, w.Close())
	}
}

func TestIgnored(t *testing.T) {
	w := &Watcher{root: "/r"}
	WithSkip(".slim", "state/")(w)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"/r/a.txt", false, false},
		{"/r/.env", false, false},
		{"/r/.git", true, true},
		{"/r/.git/HEAD", false, true},
		{"/r/src/.cache/x", false, true},
		{"/r/src/.hidden", false, false},
		{"/r/.slim/cartography.json.tmp", false, true},
		{"/r/state", true, true},
		{"/r/state/cartography.json", false, true},
		{"/r/statement.txt", false, false},
		{"/other/a.txt", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, w.ignored(filepath.FromSlash(tt.path), tt.isDir))
		})
	}
}

func TestRun_SettlesAfterWrite(t *testing.T) {
	root := t.TempDir()
	_, settled := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	waitSettle(t, settled)
}

func TestRun_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	_, settled := startWatcher(t, root, WithDebounce(300*time.Millisecond))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "burst.txt"), []byte{byte(i)}, 0o644))
	}
	waitSettle(t, settled)

	select {
	case <-settled:
		t.Fatal("burst produced more than one settle")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestRun_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w, settled := startWatcher(t, root)

	sub := filepath.Join(root, "new", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	waitSettle(t, settled)

	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.paths[sub]
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "f.txt"), []byte("f"), 0o644))
	waitSettle(t, settled)
}

func TestRun_IgnoresSkippedAndHidden(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "state"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".slim"), 0o755))
	_, settled := startWatcher(t, root, WithSkip("state"))

	require.NoError(t, os.WriteFile(filepath.Join(root, "state", "cartography.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".slim", "cartography.json"), []byte("{}"), 0o644))
	assertQuiet(t, settled)
}

func TestRun_RemovedDirectoryIsUnwatched(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "gone")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "child"), 0o755))
	w, settled := startWatcher(t, root)
	require.Equal(t, 3, w.Watched())

	require.NoError(t, os.RemoveAll(sub))
	waitSettle(t, settled)

	assert.Eventually(t, func() bool { return w.Watched() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestRun_StopsOnCancel(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClose(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Watch(), ErrClosed)
	assert.ErrorIs(t, w.Run(context.Background(), nil), ErrClosed)
}
