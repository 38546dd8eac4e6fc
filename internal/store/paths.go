// Package store persists simulation runs: a SQLite results database, JSONL
// message exports, and an output-directory lock.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DatabaseFile is the results database inside an output directory.
	DatabaseFile = "headwinds.db"

	// MessagesFile is the default JSONL message export name.
	MessagesFile = "messages.jsonl"

	// LockFile guards an output directory against concurrent runs.
	LockFile = ".headwinds.lock"
)

// DatabasePath returns the results database path for an output directory.
func DatabasePath(dir string) string {
	return filepath.Join(dir, DatabaseFile)
}

// EnsureDir creates the output directory if it doesn't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
