// Package installs discovers which tools expose a given skill. Discovery
// runs in three passes over explicit collections: direct links, inherited
// directories, and the shared-root special case. Later passes only fill
// gaps left by earlier ones, so a direct installation always wins over an
// inherited one.
package installs

import (
	"os"
	"path/filepath"

	"github.com/skilldeck/skilldeck/internal/linkstore"
	"github.com/skilldeck/skilldeck/internal/paths"
	"github.com/skilldeck/skilldeck/internal/types"
)

// Resolver computes installation records for skills.
type Resolver struct {
	links *linkstore.Store
	paths *paths.Resolver
}

// NewResolver creates a Resolver.
func NewResolver(links *linkstore.Store, pr *paths.Resolver) *Resolver {
	return &Resolver{links: links, paths: pr}
}

// Resolve returns every installation of the skill at canonicalPath with
// directory name name, at most one record per tool.
func (r *Resolver) Resolve(canonicalPath, name string) []types.Installation {
	canonical := filepath.Clean(canonicalPath)
	var result []types.Installation
	seen := map[string]bool{}

	// Pass 1: direct entries in each tool's own skills directory. A
	// non-link entry with the same name is an independently-managed local
	// copy and is still reported, without claiming it matches canonical
	// content.
	for _, tool := range r.paths.Tools() {
		if r.paths.IsSharedRoot(tool) {
			continue
		}
		candidate := filepath.Join(r.paths.SkillsDir(tool), name)
		info, err := os.Lstat(candidate)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := r.links.Resolve(candidate)
			if err != nil || resolved != canonical {
				continue
			}
			result = append(result, types.Installation{
				Tool:      tool.ID,
				Path:      candidate,
				IsSymlink: true,
			})
			seen[tool.ID] = true
			continue
		}
		result = append(result, types.Installation{
			Tool: tool.ID,
			Path: candidate,
		})
		seen[tool.ID] = true
	}

	// Pass 2: directories the tool reads from other tools. First match per
	// tool wins.
	for _, tool := range r.paths.Tools() {
		if r.paths.IsSharedRoot(tool) || seen[tool.ID] {
			continue
		}
		for _, extra := range r.paths.AdditionalDirs(tool) {
			candidate := filepath.Join(extra.Path, name)
			if _, err := os.Lstat(candidate); err != nil {
				continue
			}
			resolved, err := r.links.Resolve(candidate)
			if err != nil || resolved != canonical {
				continue
			}
			result = append(result, types.Installation{
				Tool:          tool.ID,
				Path:          candidate,
				IsSymlink:     r.links.IsSymlink(candidate),
				Inherited:     true,
				InheritedFrom: extra.SourceTool,
			})
			seen[tool.ID] = true
			break
		}
	}

	// Pass 3: the shared-root tool's skills directory is canonical storage
	// itself, so it never links anything. If the skill lives under that
	// root, synthesize a plain installation for it.
	shared, ok := r.paths.Tool(paths.SharedToolID)
	if ok && !seen[shared.ID] {
		root := filepath.Clean(r.paths.SkillsDir(shared))
		if filepath.Dir(canonical) == root {
			result = append(result, types.Installation{
				Tool: shared.ID,
				Path: canonical,
			})
		}
	}

	return result
}
