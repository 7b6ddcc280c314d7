package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func sampleCheckpoint() *Checkpoint {
	return &Checkpoint{
		Metadata: Metadata{
			Version:       "1.0.0",
			LastRun:       time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
			Root:          "/repo",
			Include:       []string{"**/*.go"},
			Exclude:       []string{"vendor/"},
			Exceptions:    []string{"vendor/keep.go"},
			HashAlgorithm: "md5",
		},
		FileHashes: map[string]string{
			"main.go":     "abc",
			"pkg/util.go": "",
		},
		FolderHashes: map[string]string{
			".":   "d1",
			"pkg": "d2",
		},
	}
}

func writeRaw(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, DefaultDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSaveLoad(t *testing.T) {
	root := t.TempDir()
	want := sampleCheckpoint()

	if err := Save(root, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Metadata.LastRun.Equal(want.Metadata.LastRun) {
		t.Errorf("LastRun = %v, want %v", got.Metadata.LastRun, want.Metadata.LastRun)
	}
	got.Metadata.LastRun, want.Metadata.LastRun = time.Time{}, time.Time{}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestSave_CreatesStateDir(t *testing.T) {
	root := t.TempDir()
	if err := Save(root, sampleCheckpoint()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(root, ".slim", "cartography.json")); err != nil {
		t.Errorf("checkpoint not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".slim", "cartography.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestSave_Format(t *testing.T) {
	root := t.TempDir()
	cp := sampleCheckpoint()
	cp.Metadata.LastRun = time.Date(2024, 6, 15, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	cp.Metadata.Exclude = nil
	cp.Metadata.HashAlgorithm = ""

	if err := Save(root, cp); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(New("").Path(root))
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}

	meta := raw["metadata"]
	if got := meta["last_run"]; got != "2024-06-15T10:30:00Z" {
		t.Errorf("last_run = %v, want UTC with Z suffix", got)
	}
	if got, ok := meta["exclude_patterns"].([]any); !ok || len(got) != 0 {
		t.Errorf("exclude_patterns = %v, want empty array", meta["exclude_patterns"])
	}
	if got := meta["hash_algorithm"]; got != "md5" {
		t.Errorf("hash_algorithm = %v, want md5", got)
	}
	for _, key := range []string{"version", "root", "include_patterns", "exceptions"} {
		if _, ok := meta[key]; !ok {
			t.Errorf("metadata missing %q", key)
		}
	}
	if _, ok := raw["file_hashes"]; !ok {
		t.Error("missing file_hashes")
	}
	if _, ok := raw["folder_hashes"]; !ok {
		t.Error("missing folder_hashes")
	}
}

func TestSave_Overwrites(t *testing.T) {
	root := t.TempDir()
	first := sampleCheckpoint()
	if err := Save(root, first); err != nil {
		t.Fatal(err)
	}

	second := sampleCheckpoint()
	second.FileHashes = map[string]string{"only.txt": "x"}
	if err := Save(root, second); err != nil {
		t.Fatal(err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.FileHashes) != 1 || got.FileHashes["only.txt"] != "x" {
		t.Errorf("FileHashes = %v, want only the second save", got.FileHashes)
	}
}

func TestSave_Nil(t *testing.T) {
	if err := Save(t.TempDir(), nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"truncated", `{"metadata": {"version": "1.0.0"`},
		{"not json", "this is not json"},
		{"null", "null"},
		{"array", `[1, 2, 3]`},
		{"string", `"checkpoint"`},
		{"metadata wrong type", `{"metadata": "oops"}`},
		{"include wrong type", `{"metadata": {"include_patterns": "**/*"}}`},
		{"file hashes wrong type", `{"file_hashes": ["a.txt"]}`},
		{"digest wrong type", `{"file_hashes": {"a.txt": 42}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeRaw(t, root, tt.content)

			if _, err := Load(root); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cp *Checkpoint)
	}{
		{
			name:    "empty object",
			content: `{}`,
			check: func(t *testing.T, cp *Checkpoint) {
				if !reflect.DeepEqual(cp.Metadata.Include, []string{"**/*"}) {
					t.Errorf("Include = %v", cp.Metadata.Include)
				}
				if cp.Metadata.Exclude == nil || len(cp.Metadata.Exclude) != 0 {
					t.Errorf("Exclude = %#v, want empty", cp.Metadata.Exclude)
				}
				if cp.Metadata.Exceptions == nil || len(cp.Metadata.Exceptions) != 0 {
					t.Errorf("Exceptions = %#v, want empty", cp.Metadata.Exceptions)
				}
				if cp.Metadata.HashAlgorithm != "md5" {
					t.Errorf("HashAlgorithm = %q", cp.Metadata.HashAlgorithm)
				}
				if cp.Metadata.Version != "" {
					t.Errorf("Version = %q", cp.Metadata.Version)
				}
				if cp.FileHashes == nil || cp.FolderHashes == nil {
					t.Error("hash maps should be non-nil")
				}
			},
		},
		{
			name:    "explicit empty include kept",
			content: `{"metadata": {"include_patterns": []}}`,
			check: func(t *testing.T, cp *Checkpoint) {
				if cp.Metadata.Include == nil || len(cp.Metadata.Include) != 0 {
					t.Errorf("Include = %#v, want empty non-nil", cp.Metadata.Include)
				}
			},
		},
		{
			name:    "null include falls back",
			content: `{"metadata": {"include_patterns": null}}`,
			check: func(t *testing.T, cp *Checkpoint) {
				if !reflect.DeepEqual(cp.Metadata.Include, []string{"**/*"}) {
					t.Errorf("Include = %v", cp.Metadata.Include)
				}
			},
		},
		{
			name:    "python style timestamp",
			content: `{"metadata": {"last_run": "2024-01-02T03:04:05.123456Z"}}`,
			check: func(t *testing.T, cp *Checkpoint) {
				want := time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)
				if !cp.Metadata.LastRun.Equal(want) {
					t.Errorf("LastRun = %v, want %v", cp.Metadata.LastRun, want)
				}
			},
		},
		{
			name:    "unreadable timestamp is zero",
			content: `{"metadata": {"last_run": "yesterday"}}`,
			check: func(t *testing.T, cp *Checkpoint) {
				if !cp.Metadata.LastRun.IsZero() {
					t.Errorf("LastRun = %v, want zero", cp.Metadata.LastRun)
				}
			},
		},
		{
			name:    "unknown keys ignored",
			content: `{"metadata": {"root": "/r", "extra": true}, "file_hashes": {"a": ""}, "other": 1}`,
			check: func(t *testing.T, cp *Checkpoint) {
				if cp.Metadata.Root != "/r" {
					t.Errorf("Root = %q", cp.Metadata.Root)
				}
				if v, ok := cp.FileHashes["a"]; !ok || v != "" {
					t.Errorf("FileHashes = %v", cp.FileHashes)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeRaw(t, root, tt.content)

			cp, err := Load(root)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cp)
		})
	}
}

func TestStore_CustomDir(t *testing.T) {
	root := t.TempDir()
	s := New(".state")

	if s.Exists(root) {
		t.Fatal("Exists() before save")
	}
	if err := s.Save(root, sampleCheckpoint()); err != nil {
		t.Fatal(err)
	}
	if !s.Exists(root) {
		t.Error("Exists() after save = false")
	}
	if got, want := s.Path(root), filepath.Join(root, ".state", "cartography.json"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got := s.RelPath(); got != ".state/cartography.json" {
		t.Errorf("RelPath() = %q", got)
	}
	if _, err := Load(root); !errors.Is(err, ErrNotFound) {
		t.Error("default store should not see a custom-dir checkpoint")
	}
}
