// Package pathutil resolves and reads the files named on the command line.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandTilde expands ~ to home directory.
// Returns the path unchanged if it doesn't start with ~/.
func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand home dir: %w", err)
	}

	return filepath.Join(home, path[2:]), nil
}

// ResolvePath resolves a path with tilde expansion and relative path resolution.
// - ~/... paths are expanded to home directory
// - Absolute paths are returned as-is
// - Relative paths are resolved from baseDir
// - Empty paths are not allowed and return an error
func ResolvePath(path, baseDir string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if strings.HasPrefix(path, "~/") {
		return expandTilde(path)
	}

	if filepath.IsAbs(path) {
		return path, nil
	}

	return filepath.Join(baseDir, path), nil
}

// ReadFile reads a file named relative to the working directory.
func ReadFile(path string) ([]byte, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	resolved, err := ResolvePath(path, wd)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a file", path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
