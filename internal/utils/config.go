package utils

import (
	"os"
	"path/filepath"
)

// GetProjectRoot returns the nearest parent of the working directory holding go.mod, or ".".
func GetProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "."
}

// GetDataDir is where the server keeps its key file and acknowledgement store by default.
func GetDataDir() string {
	if dir := os.Getenv("FORGAILE_DATA_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(GetProjectRoot(), "data")
}
