package output

import "time"

// report is the structured form shared by the json and yaml formatters.
type report struct {
	Operation       Operation     `json:"operation" yaml:"operation"`
	Root            string        `json:"root" yaml:"root"`
	StateFile       string        `json:"state_file" yaml:"state_file"`
	HashAlgorithm   string        `json:"hash_algorithm,omitempty" yaml:"hash_algorithm,omitempty"`
	Files           int           `json:"files" yaml:"files"`
	Folders         int           `json:"folders" yaml:"folders"`
	CodemapsCreated int           `json:"codemaps_created,omitempty" yaml:"codemaps_created,omitempty"`
	LastRun         *time.Time    `json:"last_run,omitempty" yaml:"last_run,omitempty"`
	Duration        string        `json:"duration,omitempty" yaml:"duration,omitempty"`
	Filter          []string      `json:"only,omitempty" yaml:"only,omitempty"`
	Changes         *reportChange `json:"changes,omitempty" yaml:"changes,omitempty"`
}

type reportChange struct {
	Empty           bool     `json:"empty" yaml:"empty"`
	Added           []string `json:"added" yaml:"added"`
	Removed         []string `json:"removed" yaml:"removed"`
	Modified        []string `json:"modified" yaml:"modified"`
	AffectedFolders []string `json:"affected_folders" yaml:"affected_folders"`
}

func buildReport(r *Result) report {
	out := report{
		Operation:       r.Operation,
		Root:            r.Root,
		StateFile:       r.StateFile,
		HashAlgorithm:   r.HashAlgorithm,
		Files:           r.Files,
		Folders:         r.Folders,
		CodemapsCreated: r.CodemapsCreated,
		Filter:          r.Filter,
	}
	if !r.LastRun.IsZero() {
		t := r.LastRun.UTC()
		out.LastRun = &t
	}
	if r.Duration > 0 {
		out.Duration = r.Duration.String()
	}
	if r.Operation != OpInit {
		cs := r.changeSet()
		out.Changes = &reportChange{
			Empty:           cs.Empty(),
			Added:           nonNil(cs.Added),
			Removed:         nonNil(cs.Removed),
			Modified:        nonNil(cs.Modified),
			AffectedFolders: nonNil(cs.AffectedFolders),
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
