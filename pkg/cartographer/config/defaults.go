// Package config provides configuration management for cartographer.
package config

import "time"

// Default configuration values.
const (
	// DefaultIgnoreFile is the host ignore file read at the tracked root.
	DefaultIgnoreFile = ".gitignore"

	// DefaultStateDir is the state directory created under the tracked root.
	DefaultStateDir = ".slim"

	// DefaultHashAlgorithm is the digest used for new checkpoints.
	DefaultHashAlgorithm = "md5"

	// DefaultRetentionDays is how long journal entries are kept.
	DefaultRetentionDays = 30

	// DefaultDebounce is the quiet period before watch mode re-checks.
	DefaultDebounce = 500 * time.Millisecond

	// DefaultOutput is the report format.
	DefaultOutput = "pretty"

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MiB"
)

// DefaultInclude is the include list used by init when none is given.
var DefaultInclude = []string{"**/*"}
