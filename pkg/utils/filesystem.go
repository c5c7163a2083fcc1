package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir ensures the .ontomed directory exists at the given base path.
// If basePath is empty or ".", it creates ./.ontomed in the current directory.
// Otherwise, it creates {basePath}/.ontomed.
//
// This is used by facilities that persist data locally:
// - Vector store persistence: ./.ontomed/vectors
// - Log files when a relative path is configured
//
// Returns the full path to the .ontomed directory and any error.
func EnsureDataDir(basePath string) (string, error) {
	var dataDir string
	if basePath == "" || basePath == "." {
		dataDir = ".ontomed"
	} else {
		dataDir = filepath.Join(basePath, ".ontomed")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create .ontomed directory at '%s': %w", dataDir, err)
	}

	return dataDir, nil
}
