// Package scan walks the canonical store and every tool directory and
// produces the deduplicated skill set presented by skilldeck. The result is
// a projection: it is rebuilt from scratch on every refresh.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/skilldeck/skilldeck/internal/installs"
	"github.com/skilldeck/skilldeck/internal/linkstore"
	"github.com/skilldeck/skilldeck/internal/manifest"
	"github.com/skilldeck/skilldeck/internal/paths"
	"github.com/skilldeck/skilldeck/internal/types"
)

// Scanner builds the deduplicated skill set. One scan runs at a time;
// concurrent callers are serialized.
type Scanner struct {
	mu       sync.Mutex
	paths    *paths.Resolver
	links    *linkstore.Store
	resolver *installs.Resolver
}

// NewScanner creates a Scanner.
func NewScanner(pr *paths.Resolver, links *linkstore.Store, resolver *installs.Resolver) *Scanner {
	return &Scanner{paths: pr, links: links, resolver: resolver}
}

// ScanAll scans the canonical directory first, then every tool directory,
// deduplicating by skill id. One logical skill may be reachable through
// different physical paths via different link chains, so dedup is by
// directory name, never by resolved path.
func (s *Scanner) ScanAll() ([]*types.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := map[string]*types.Skill{}
	var order []string

	s.scanDir(s.paths.SharedRoot(), types.Scope{Kind: types.ScopeSharedGlobal}, byID, &order)

	for _, tool := range s.paths.Tools() {
		if s.paths.IsSharedRoot(tool) {
			continue
		}
		scope := types.Scope{Kind: types.ScopeToolLocal, Tool: tool.ID}
		s.scanDir(s.paths.SkillsDir(tool), scope, byID, &order)
	}

	result := make([]*types.Skill, 0, len(order))
	for _, id := range order {
		result = append(result, byID[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].DisplayName()) < strings.ToLower(result[j].DisplayName())
	})
	return result, nil
}

// scanDir merges every skill found under dir into the accumulator. Entries
// without a manifest are ignored; a manifest that fails to parse degrades to
// a placeholder so one malformed skill cannot break the listing.
func (s *Scanner) scanDir(dir string, scope types.Scope, byID map[string]*types.Skill, order *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)

		resolved, err := s.links.Resolve(full)
		if err != nil {
			continue
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.IsDir() {
			continue
		}

		manifestPath := filepath.Join(resolved, paths.ManifestFileName)
		raw, err := os.ReadFile(manifestPath)
		if err != nil {
			continue
		}
		doc := manifest.ParseWithFallback(string(raw), name)

		if existing, ok := byID[name]; ok {
			s.merge(existing, resolved)
			continue
		}

		skill := &types.Skill{
			ID:            name,
			Path:          resolved,
			Manifest:      doc.Manifest,
			Body:          doc.Body,
			Scope:         scope,
			Installations: s.resolver.Resolve(resolved, name),
		}
		byID[name] = skill
		*order = append(*order, name)
	}
}

// merge folds a second occurrence of an already-known id into the existing
// record: installations are merged keyed by tool, and a tool-local skill
// visible from more than one place is promoted to shared-global.
func (s *Scanner) merge(existing *types.Skill, resolvedPath string) {
	known := map[string]bool{}
	for _, inst := range existing.Installations {
		known[inst.Tool] = true
	}
	for _, inst := range s.resolver.Resolve(resolvedPath, existing.ID) {
		if known[inst.Tool] {
			continue
		}
		existing.Installations = append(existing.Installations, inst)
		known[inst.Tool] = true
	}
	if existing.Scope.Kind == types.ScopeToolLocal && len(existing.Installations) > 1 {
		existing.Scope = types.Scope{Kind: types.ScopeSharedGlobal}
	}
}
