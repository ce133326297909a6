// Package types holds the shared model for skilldeck: the in-memory skill
// projection rebuilt on every refresh, and the durable records persisted in
// the shared lock file and the private cache.
package types

import "time"

// ScopeKind classifies where a skill was discovered.
type ScopeKind int

const (
	// ScopeSharedGlobal means the skill lives in the canonical shared store.
	ScopeSharedGlobal ScopeKind = iota
	// ScopeToolLocal means the skill was found only under a single tool's
	// own skills directory.
	ScopeToolLocal
	// ScopeProject means the skill belongs to a project checkout.
	ScopeProject
)

// Scope is the discovery scope of a skill. Tool is set only for
// ScopeToolLocal.
type Scope struct {
	Kind ScopeKind
	Tool string
}

// Installation records one tool exposing a skill.
type Installation struct {
	Tool      string
	Path      string
	IsSymlink bool
	// Inherited is true when the tool only sees the skill through another
	// tool's directory it is configured to read. InheritedFrom names that
	// tool.
	Inherited     bool
	InheritedFrom string
}

// Skill is the projection produced by a scan. It is rebuilt from scratch on
// every refresh and never persisted directly.
type Skill struct {
	ID            string
	Path          string
	Manifest      Manifest
	Body          string
	Scope         Scope
	Installations []Installation
	Lock          *LockEntry
}

// Manifest is the structured front matter of a SKILL.md file.
type Manifest struct {
	Name         string
	Description  string
	License      string
	Author       string
	Version      string
	AllowedTools []string
	// Extra holds front-matter keys this engine does not model.
	Extra map[string]any
}

// DisplayName returns the manifest name, falling back to the skill id.
func (s *Skill) DisplayName() string {
	if s.Manifest.Name != "" {
		return s.Manifest.Name
	}
	return s.ID
}

// LockEntry is the shared-registry record for an installed skill. The file
// format is owned by an external tool; field names and types must not drift.
type LockEntry struct {
	Source          string `json:"source"`
	SourceType      string `json:"sourceType"`
	SourceURL       string `json:"sourceUrl"`
	SkillPath       string `json:"skillPath"`
	SkillFolderHash string `json:"skillFolderHash"`
	InstalledAt     string `json:"installedAt"`
	UpdatedAt       string `json:"updatedAt"`
}

// LinkedSkillInfo is the private-cache provenance record for skills manually
// associated with a repository but lacking a lock entry.
type LinkedSkillInfo struct {
	Source          string    `json:"source"`
	SourceType      string    `json:"sourceType"`
	SourceURL       string    `json:"sourceUrl"`
	SkillPath       string    `json:"skillPath"`
	SkillFolderHash string    `json:"skillFolderHash"`
	LinkedAt        time.Time `json:"linkedAt"`
}

// RepoHistoryEntry is one recently-scanned repository in the private cache.
type RepoHistoryEntry struct {
	Source     string    `json:"source"`
	SourceURL  string    `json:"sourceUrl"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// LockTimestamp is the timestamp format used in lock entries.
const LockTimestamp = time.RFC3339
