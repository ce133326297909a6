// Package cache persists skilldeck's private bookkeeping
// (~/.agents/.skilldeck-cache.json): per-skill commit hashes for update
// checks, provenance for manually linked skills, and the recently-used
// repository list. The shared lock file must never grow engine-specific
// fields, which is the reason this cache exists.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/skilldeck/skilldeck/internal/types"
)

// maxRepoHistory caps the recently-used repository list.
const maxRepoHistory = 20

var commitHashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

type cacheFile struct {
	Skills       map[string]string                `json:"skills"`
	LinkedSkills map[string]types.LinkedSkillInfo `json:"linkedSkills,omitempty"`
	RepoHistory  []types.RepoHistoryEntry         `json:"repoHistory,omitempty"`
}

// Cache is a mutex-guarded, lazily-loaded private cache. Load failure of any
// kind degrades to an empty cache: everything in it can be re-derived.
type Cache struct {
	mu     sync.Mutex
	path   string
	loaded bool
	data   cacheFile
}

// New creates a Cache for the file at path. Nothing is read until the first
// access.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) load() {
	if c.loaded {
		return
	}
	c.data = cacheFile{Skills: map[string]string{}}
	c.loaded = true

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var parsed cacheFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return
	}
	if parsed.Skills == nil {
		parsed.Skills = map[string]string{}
	}
	c.data = parsed
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// CommitHash returns the cached commit hash for a skill, if any.
func (c *Cache) CommitHash(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	hash, ok := c.data.Skills[id]
	return hash, ok
}

// SetCommitHash records a skill's commit hash. The hash must be a 40
// character lowercase hex string.
func (c *Cache) SetCommitHash(id, hash string) error {
	if !commitHashPattern.MatchString(hash) {
		return fmt.Errorf("invalid commit hash '%s'", hash)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	c.data.Skills[id] = hash
	return c.save()
}

// RemoveSkill drops every cache record for a skill.
func (c *Cache) RemoveSkill(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	_, hadHash := c.data.Skills[id]
	_, hadLink := c.data.LinkedSkills[id]
	if !hadHash && !hadLink {
		return nil
	}
	delete(c.data.Skills, id)
	delete(c.data.LinkedSkills, id)
	return c.save()
}

// LinkedSkill returns the provenance record for a manually linked skill.
func (c *Cache) LinkedSkill(id string) (types.LinkedSkillInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	info, ok := c.data.LinkedSkills[id]
	return info, ok
}

// SetLinkedSkill records provenance for a manually linked skill.
func (c *Cache) SetLinkedSkill(id string, info types.LinkedSkillInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	if c.data.LinkedSkills == nil {
		c.data.LinkedSkills = map[string]types.LinkedSkillInfo{}
	}
	c.data.LinkedSkills[id] = info
	return c.save()
}

// RepoHistory returns the recently-used repository list, most recent first.
func (c *Cache) RepoHistory() []types.RepoHistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	out := make([]types.RepoHistoryEntry, len(c.data.RepoHistory))
	copy(out, c.data.RepoHistory)
	return out
}

// TouchRepoHistory moves a repository to the front of the history list,
// deduplicating by source case-insensitively and trimming to the cap.
func (c *Cache) TouchRepoHistory(source, sourceURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()

	entry := types.RepoHistoryEntry{
		Source:     source,
		SourceURL:  sourceURL,
		LastUsedAt: time.Now(),
	}
	updated := []types.RepoHistoryEntry{entry}
	for _, existing := range c.data.RepoHistory {
		if strings.EqualFold(existing.Source, source) {
			continue
		}
		updated = append(updated, existing)
	}
	if len(updated) > maxRepoHistory {
		updated = updated[:maxRepoHistory]
	}
	c.data.RepoHistory = updated
	return c.save()
}
