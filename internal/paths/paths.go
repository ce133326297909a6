// Package paths maps tool identifiers to the directories they use for
// skills. One tool (the shared "agents" root) owns the canonical store;
// every other tool gets its skills through symlinks into it, or by reading
// another tool's directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// SharedToolID identifies the tool whose skills directory is the canonical
// shared store itself.
const SharedToolID = "agents"

// ManifestFileName is the manifest expected inside every skill directory.
const ManifestFileName = "SKILL.md"

// Tool describes one supported coding-assistant tool.
type Tool struct {
	ID   string
	Name string
	// skillsDir and configDir are home-relative.
	skillsDir string
	configDir string
	// reads lists other tool IDs whose skills directories this tool is
	// also configured to read.
	reads []string
}

var tools = []Tool{
	{ID: SharedToolID, Name: "Agents (shared)", skillsDir: ".agents/skills", configDir: ".agents"},
	{ID: "claude", Name: "Claude Code", skillsDir: ".claude/skills", configDir: ".claude"},
	{ID: "codex", Name: "Codex", skillsDir: ".codex/skills", configDir: ".codex", reads: []string{"claude"}},
	{ID: "cursor", Name: "Cursor", skillsDir: ".cursor/skills", configDir: ".cursor"},
	{ID: "opencode", Name: "opencode", skillsDir: filepath.Join(".config", "opencode", "skills"), configDir: filepath.Join(".config", "opencode"), reads: []string{"claude"}},
	{ID: "gemini", Name: "Gemini CLI", skillsDir: ".gemini/skills", configDir: ".gemini"},
}

// Resolver resolves tool directories under a fixed home directory.
type Resolver struct {
	home string
}

// NewResolver creates a Resolver rooted at the current user's home.
func NewResolver() (*Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &Resolver{home: home}, nil
}

// NewResolverWithHome creates a Resolver rooted at an explicit home
// directory. Used by tests.
func NewResolverWithHome(home string) *Resolver {
	return &Resolver{home: home}
}

// Home returns the resolver's home directory.
func (r *Resolver) Home() string {
	return r.home
}

// Tools returns every supported tool, shared root first.
func (r *Resolver) Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

// Tool looks up a tool by ID.
func (r *Resolver) Tool(id string) (Tool, bool) {
	for _, t := range tools {
		if t.ID == id {
			return t, true
		}
	}
	return Tool{}, false
}

// SkillsDir returns the skills directory for a tool.
func (r *Resolver) SkillsDir(t Tool) string {
	return filepath.Join(r.home, t.skillsDir)
}

// ConfigDir returns the configuration directory for a tool.
func (r *Resolver) ConfigDir(t Tool) string {
	return filepath.Join(r.home, t.configDir)
}

// SharedRoot returns the canonical shared skills directory.
func (r *Resolver) SharedRoot() string {
	shared, _ := r.Tool(SharedToolID)
	return r.SkillsDir(shared)
}

// LockFilePath returns the path of the shared registry file.
func (r *Resolver) LockFilePath() string {
	return filepath.Join(r.home, ".agents", ".skill-lock.json")
}

// CachePath returns the path of the private cache file.
func (r *Resolver) CachePath() string {
	return filepath.Join(r.home, ".agents", ".skilldeck-cache.json")
}

// ConfigFilePath returns the path of skilldeck's own config file.
func (r *Resolver) ConfigFilePath() string {
	return filepath.Join(r.home, ".agents", "config.json")
}

// AdditionalDir is a directory belonging to another tool that a tool also
// reads skills from.
type AdditionalDir struct {
	SourceTool string
	Path       string
}

// AdditionalDirs returns the other tools' skills directories a tool is
// configured to read, in declaration order.
func (r *Resolver) AdditionalDirs(t Tool) []AdditionalDir {
	var out []AdditionalDir
	for _, id := range t.reads {
		src, ok := r.Tool(id)
		if !ok {
			continue
		}
		out = append(out, AdditionalDir{SourceTool: src.ID, Path: r.SkillsDir(src)})
	}
	return out
}

// IsSharedRoot reports whether the tool's skills directory is the canonical
// store itself.
func (r *Resolver) IsSharedRoot(t Tool) bool {
	return t.ID == SharedToolID
}
