package engine

import (
	"context"
	"os"
	"path/filepath"
)

// TidyReport summarizes a cleanup pass.
type TidyReport struct {
	// OrphanedLinks is the count of tool-directory symlinks removed
	// because their target no longer exists.
	OrphanedLinks int
	// StaleLockEntries is the count of lock entries removed because no
	// canonical skill directory backs them.
	StaleLockEntries int
	// ToolDirsScanned is the number of tool directories examined.
	ToolDirsScanned int
}

// Tidy removes orphaned tool links and lock entries whose canonical skill
// directory is gone. Per-entry failures are logged and skipped so one bad
// path cannot abort the pass.
func (e *Engine) Tidy(ctx context.Context) (*TidyReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &TidyReport{}

	for _, tool := range e.paths.Tools() {
		if e.paths.IsSharedRoot(tool) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dir := e.paths.SkillsDir(tool)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		report.ToolDirsScanned++

		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if !e.links.IsSymlink(full) {
				continue
			}
			resolved, err := e.links.Resolve(full)
			if err != nil {
				e.logger.Warn("Failed to resolve link during tidy", "path", full, "error", err)
				continue
			}
			if _, err := os.Stat(resolved); err == nil {
				continue
			}
			if err := e.links.RemoveLink(entry.Name(), dir); err != nil {
				e.logger.Warn("Failed to remove orphaned link", "path", full, "error", err)
				continue
			}
			report.OrphanedLinks++
		}
	}

	locked, err := e.lock.Entries()
	if err != nil {
		return report, err
	}
	root := e.paths.SharedRoot()
	for id := range locked {
		if _, err := os.Stat(filepath.Join(root, id)); err == nil {
			continue
		}
		if err := e.lock.RemoveEntry(id); err != nil {
			e.logger.Warn("Failed to remove stale lock entry", "skill", id, "error", err)
			continue
		}
		report.StaleLockEntries++
	}

	return report, nil
}
