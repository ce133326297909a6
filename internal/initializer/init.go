// Package initializer performs first-run setup: the canonical store, the
// shared lock file and a default config file.
package initializer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skilldeck/skilldeck/internal/lockfile"
	"github.com/skilldeck/skilldeck/internal/paths"
)

// Report lists what Initialize created.
type Report struct {
	CreatedStore    bool
	CreatedLockFile bool
	CreatedConfig   bool
}

// Initialize creates the canonical skills directory, an empty lock file and
// a default config when they are missing. Idempotent.
func Initialize(pr *paths.Resolver) (*Report, error) {
	report := &Report{}

	root := pr.SharedRoot()
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create canonical store: %w", err)
		}
		report.CreatedStore = true
	} else if err != nil {
		return nil, fmt.Errorf("failed to check canonical store: %w", err)
	}

	lockPath := pr.LockFilePath()
	_, statErr := os.Stat(lockPath)
	if err := lockfile.NewStore(lockPath).CreateIfNotExists(); err != nil {
		return nil, err
	}
	report.CreatedLockFile = os.IsNotExist(statErr)

	configPath := pr.ConfigFilePath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaults := map[string]any{
			"github_token": "",
			"git_binary":   "",
			"debounce_ms":  500,
		}
		data, err := json.MarshalIndent(defaults, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		report.CreatedConfig = true
	} else if err != nil {
		return nil, fmt.Errorf("failed to check config file: %w", err)
	}

	return report, nil
}
