package selector

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIgnoreFile is the host ignore file read at the tracked root.
const DefaultIgnoreFile = ".gitignore"

// LoadIgnoreFile reads ignore patterns from name under root. Blank lines and
// lines starting with "#" are skipped; surrounding whitespace is trimmed.
// A missing file yields no patterns.
func LoadIgnoreFile(root, name string) ([]string, error) {
	if name == "" {
		name = DefaultIgnoreFile
	}

	f, err := os.Open(filepath.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}

	return patterns, nil
}
