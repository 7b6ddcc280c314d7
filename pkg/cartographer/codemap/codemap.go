// Package codemap creates per-folder documentation placeholders.
package codemap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/cartographer/pkg/cartographer/hasher"
)

// FileName is the placeholder written into each tracked folder.
const FileName = "codemap.md"

const template = `# %s/

## Responsibility
<!-- What this folder does -->

## Design
<!-- Key patterns, abstractions -->

## Flow
<!-- Data/control flow -->

## Integration
<!-- Dependencies and consumers -->
`

// Render returns the placeholder text for folder. The root folder is named
// after the root directory itself.
func Render(root, folder string) string {
	name := folder
	if folder == hasher.RootFolder || folder == "" {
		name = filepath.Base(filepath.Clean(root))
	}
	return fmt.Sprintf(template, strings.TrimSuffix(name, "/"))
}

// Path returns the placeholder path for folder under root.
func Path(root, folder string) string {
	return filepath.Join(root, filepath.FromSlash(folder), FileName)
}

// Ensure writes a placeholder into every folder that lacks one and returns
// how many were created. Existing files are left untouched.
func Ensure(root string, folders []string) (int, error) {
	created := 0
	for _, folder := range folders {
		path := Path(root, folder)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return created, fmt.Errorf("failed to create %s: %w", path, err)
		}

		_, werr := f.WriteString(Render(root, folder))
		cerr := f.Close()
		if werr != nil {
			return created, fmt.Errorf("failed to write %s: %w", path, werr)
		}
		if cerr != nil {
			return created, fmt.Errorf("failed to close %s: %w", path, cerr)
		}
		created++
	}
	return created, nil
}
