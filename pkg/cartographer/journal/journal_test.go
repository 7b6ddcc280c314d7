package journal

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "journal"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return j
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
}

func TestRecord(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	e, err := j.Record(Entry{Operation: OpInit, Root: "/repo", Files: 3, Folders: 2})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if e.ID == "" {
		t.Error("Record() did not assign an ID")
	}
	if e.Timestamp.IsZero() || e.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want non-zero UTC", e.Timestamp)
	}

	if _, err := os.Stat(filepath.Join(j.Dir(), e.ID+".json")); err != nil {
		t.Errorf("entry file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(j.Dir(), e.ID+".json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		j.now = func() time.Time { return at }
		if _, err := j.Record(Entry{Operation: OpUpdate, Files: i}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := j.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List(0) returned %d entries, want 3", len(all))
	}
	for i, want := range []int{2, 1, 0} {
		if all[i].Files != want {
			t.Errorf("List()[%d].Files = %d, want %d (newest first)", i, all[i].Files, want)
		}
	}

	limited, err := j.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d entries", len(limited))
	}
}

func TestList_MissingDir(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	entries, err := j.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("List() = %#v, want empty slice", entries)
	}
}

func TestList_SkipsCorruptFiles(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	if _, err := j.Record(Entry{Operation: OpInit}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(j.Dir(), "junk.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(j.Dir(), "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := j.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("List() returned %d entries, want 1", len(entries))
	}
}

func TestGet(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	recorded, err := j.Record(Entry{Operation: OpUpdate, Root: "/repo", Modified: 4})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("full id", func(t *testing.T) {
		got, err := j.Get(recorded.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Modified != 4 || got.Root != "/repo" {
			t.Errorf("Get() = %+v", got)
		}
	})

	t.Run("prefix", func(t *testing.T) {
		got, err := j.Get(recorded.ID[:8])
		if err != nil {
			t.Fatalf("Get(prefix) error = %v", err)
		}
		if got.ID != recorded.ID {
			t.Errorf("Get(prefix).ID = %q, want %q", got.ID, recorded.ID)
		}
	})

	t.Run("unknown uuid", func(t *testing.T) {
		_, err := j.Get("00000000-0000-4000-8000-000000000000")
		if !errors.Is(err, ErrEntryNotFound) {
			t.Errorf("Get() error = %v, want ErrEntryNotFound", err)
		}
	})

	t.Run("unknown prefix", func(t *testing.T) {
		_, err := j.Get("zzzzzzzz")
		if !errors.Is(err, ErrEntryNotFound) {
			t.Errorf("Get() error = %v, want ErrEntryNotFound", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := j.Get(""); err == nil {
			t.Error("Get(\"\") error = nil")
		}
	})

	t.Run("short prefix", func(t *testing.T) {
		if _, err := j.Get("ab"); err == nil {
			t.Error("Get(short) error = nil")
		}
	})
}

func TestCleanup(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	for _, age := range []int{40, 31, 5, 0} {
		at := now.AddDate(0, 0, -age)
		j.now = func() time.Time { return at }
		if _, err := j.Record(Entry{Operation: OpUpdate, Files: age}); err != nil {
			t.Fatal(err)
		}
	}
	j.now = func() time.Time { return now }

	removed, err := j.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Cleanup() removed %d, want 2", removed)
	}

	left, err := j.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 2 {
		t.Fatalf("%d entries left, want 2", len(left))
	}
	for _, e := range left {
		if e.Files > 30 {
			t.Errorf("entry aged %d days survived", e.Files)
		}
	}

	if n, err := j.Cleanup(0); err != nil || n != 0 {
		t.Errorf("Cleanup(0) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	for i := 0; i < 3; i++ {
		if _, err := j.Record(Entry{Operation: OpInit}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := j.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Errorf("Clear() removed %d, want 3", removed)
	}
}

func TestRecord_Concurrent(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := j.Record(Entry{Operation: OpUpdate, Files: n}); err != nil {
				t.Errorf("Record() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := j.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 {
		t.Errorf("List() returned %d entries, want 10", len(entries))
	}
}
