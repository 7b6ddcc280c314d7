//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"c": Clean,
}

const (
	binaryName = "cartographer"
	mainPkg    = "./cmd/cartographer"
	binDir     = "bin"
	coverFile  = "coverage.out"
)

// All lints, tests and builds.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles the cartographer binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}
	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", localBinary(), mainPkg)
}

// Install copies the built binary to GOBIN, GOPATH/bin or /usr/local/bin.
func Install() error {
	st.Deps(Build)

	dir, err := installDir()
	if err != nil {
		return err
	}
	dst := filepath.Join(dir, exeName(binaryName))
	if st.Verbose() {
		fmt.Printf("Installing %s to %s\n", localBinary(), dst)
	}
	return sh.Copy(dst, localBinary())
}

// Uninstall removes the installed binary, if any.
func Uninstall() error {
	dir, err := installDir()
	if err != nil {
		return err
	}
	target := filepath.Join(dir, exeName(binaryName))
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(target)
}

// Test runs all tests with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover runs the tests and writes a coverage profile.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile="+coverFile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverFile)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if st.Verbose() {
		fmt.Printf("Removing %s/ and %s\n", binDir, coverFile)
	}
	if err := sh.Rm(coverFile); err != nil {
		return err
	}
	return sh.Rm(binDir + "/")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

func localBinary() string {
	return filepath.Join(binDir, exeName(binaryName))
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func installDir() (string, error) {
	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return "", fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin != "" {
		return bin, nil
	}
	gopath, err := sh.Output(gocmd, "env", "GOPATH")
	if err != nil {
		return "", fmt.Errorf("determining GOPATH: %w", err)
	}
	if gopath == "" {
		return "/usr/local/bin", nil
	}
	return filepath.Join(gopath, "bin"), nil
}

// buildLdflags injects version, commit and build date into package main.
func buildLdflags() string {
	version := "dev"
	commit := "unknown"
	date := time.Now().UTC().Format(time.RFC3339)

	if v, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && v != "" {
		version = strings.TrimPrefix(strings.TrimSpace(v), "v")
	}
	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		commit = strings.TrimSpace(c)
	}

	return fmt.Sprintf("-X main.version=%s -X main.commit=%s -X main.date=%s", version, commit, date)
}
