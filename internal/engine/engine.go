// Package engine composes the scanner, link store, persistence stores and
// update coordinator into the single facade the CLI talks to. The engine
// serializes refreshes against write operations: a write never observes a
// skill list from a scan it could be racing.
package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/skilldeck/skilldeck/internal/cache"
	"github.com/skilldeck/skilldeck/internal/gitclient"
	"github.com/skilldeck/skilldeck/internal/installer"
	"github.com/skilldeck/skilldeck/internal/installs"
	"github.com/skilldeck/skilldeck/internal/linkstore"
	"github.com/skilldeck/skilldeck/internal/lockfile"
	"github.com/skilldeck/skilldeck/internal/paths"
	"github.com/skilldeck/skilldeck/internal/scan"
	"github.com/skilldeck/skilldeck/internal/types"
	"github.com/skilldeck/skilldeck/internal/update"
)

// Engine is the top-level synchronization facade.
type Engine struct {
	mu sync.Mutex
	// refreshing is the single-flight guard for watcher-triggered
	// refreshes.
	refreshing atomic.Bool

	paths   *paths.Resolver
	links   *linkstore.Store
	scanner *scan.Scanner
	lock    *lockfile.Store
	cache   *cache.Cache
	git     *gitclient.Client
	updates *update.Coordinator
	logger  Logger
}

// New wires an Engine from a path resolver and a git client.
func New(pr *paths.Resolver, git *gitclient.Client) *Engine {
	links := linkstore.NewStore()
	resolver := installs.NewResolver(links, pr)
	lock := lockfile.NewStore(pr.LockFilePath())
	privCache := cache.New(pr.CachePath())

	return &Engine{
		paths:   pr,
		links:   links,
		scanner: scan.NewScanner(pr, links, resolver),
		lock:    lock,
		cache:   privCache,
		git:     git,
		updates: update.NewCoordinator(git, lock, privCache),
		logger:  NoOpLogger{},
	}
}

// SetLogger replaces the engine's logger and propagates it to the update
// coordinator.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
	e.updates.SetLogger(logger)
}

// Lock exposes the shared registry store.
func (e *Engine) Lock() *lockfile.Store { return e.lock }

// Cache exposes the private cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Paths exposes the path resolver.
func (e *Engine) Paths() *paths.Resolver { return e.paths }

// Updates exposes the update coordinator.
func (e *Engine) Updates() *update.Coordinator { return e.updates }

// NewInstallFlow creates a fresh install-flow state machine bound to this
// engine's stores.
func (e *Engine) NewInstallFlow() *installer.Flow {
	return installer.NewFlow(e.git, gitclient.ScanSkillsInRepo, e.links, e.lock, e.cache, e.paths)
}

// Refresh rebuilds the skill projection: a full scan with lock entries
// attached. Concurrent callers are serialized, so a write operation issued
// after Refresh returns always saw a completed scan.
func (e *Engine) Refresh(ctx context.Context) ([]*types.Skill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshLocked(ctx)
}

func (e *Engine) refreshLocked(ctx context.Context) ([]*types.Skill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	skills, err := e.scanner.ScanAll()
	if err != nil {
		return nil, err
	}

	entries, err := e.lock.Entries()
	if err != nil {
		// A broken lock file must not hide the filesystem state.
		e.logger.Warn("Failed to load lock file during refresh", "error", err)
		return skills, nil
	}
	for _, skill := range skills {
		if entry, ok := entries[skill.ID]; ok {
			copied := entry
			skill.Lock = &copied
		}
	}
	return skills, nil
}

// TryRefresh runs a refresh unless one is already in flight, in which case
// it reports false without scanning. The watcher uses this so event bursts
// never queue duplicate refreshes.
func (e *Engine) TryRefresh(ctx context.Context) bool {
	if !e.refreshing.CompareAndSwap(false, true) {
		return false
	}
	defer e.refreshing.Store(false)
	if _, err := e.Refresh(ctx); err != nil {
		// Background refreshes swallow non-fatal errors.
		e.logger.Warn("Background refresh failed", "error", err)
	}
	return true
}

// findSkill scans and returns the skill with the given id.
func (e *Engine) findSkill(ctx context.Context, id string) (*types.Skill, error) {
	skills, err := e.refreshLocked(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range skills {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, &EngineError{
		Type:    ErrorTypeSkillNotFound,
		Message: fmt.Sprintf("skill '%s' not found", id),
	}
}

// Assign links a canonical skill into a tool's skills directory.
func (e *Engine) Assign(ctx context.Context, skillID, toolID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tool, ok := e.paths.Tool(toolID)
	if !ok {
		return &EngineError{
			Type:    ErrorTypeUnknownTool,
			Message: fmt.Sprintf("unknown tool '%s'", toolID),
		}
	}
	if e.paths.IsSharedRoot(tool) {
		return &EngineError{
			Type:    ErrorTypeUnknownTool,
			Message: fmt.Sprintf("'%s' reads the shared store directly and needs no link", toolID),
		}
	}

	skill, err := e.findSkill(ctx, skillID)
	if err != nil {
		return err
	}
	return e.links.CreateLink(skill.Path, e.paths.SkillsDir(tool))
}

// Unassign removes a tool's link to a skill. Removing a non-link entry is a
// no-op by design: a tool's private copy is never deleted through unassign.
func (e *Engine) Unassign(ctx context.Context, skillID, toolID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tool, ok := e.paths.Tool(toolID)
	if !ok {
		return &EngineError{
			Type:    ErrorTypeUnknownTool,
			Message: fmt.Sprintf("unknown tool '%s'", toolID),
		}
	}
	return e.links.RemoveLink(skillID, e.paths.SkillsDir(tool))
}

// Delete removes a skill everywhere: every tool link, the canonical
// directory, its lock entry and its cache records.
func (e *Engine) Delete(ctx context.Context, skillID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	skill, err := e.findSkill(ctx, skillID)
	if err != nil {
		return err
	}

	for _, inst := range skill.Installations {
		if !inst.IsSymlink {
			continue
		}
		tool, ok := e.paths.Tool(inst.Tool)
		if !ok || inst.Inherited {
			continue
		}
		if err := e.links.RemoveLink(skillID, e.paths.SkillsDir(tool)); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(skill.Path); err != nil {
		return &EngineError{
			Type:    ErrorTypeFilesystem,
			Message: fmt.Sprintf("failed to remove skill directory '%s'", skill.Path),
			Err:     err,
		}
	}

	if err := e.lock.RemoveEntry(skillID); err != nil {
		return err
	}
	if err := e.cache.RemoveSkill(skillID); err != nil {
		return err
	}

	e.logger.Info("Deleted skill", "skill", skillID)
	return nil
}

// CheckUpdates runs the batched update check over every skill with a lock
// entry.
func (e *Engine) CheckUpdates(ctx context.Context) ([]update.CheckResult, error) {
	return e.updates.CheckAll(ctx)
}

// CheckUpdate checks one skill, propagating any failure to the caller.
func (e *Engine) CheckUpdate(ctx context.Context, skillID string) (update.CheckResult, error) {
	return e.updates.CheckSkill(ctx, skillID)
}

// Update applies the upstream version of a skill over its canonical
// directory.
func (e *Engine) Update(ctx context.Context, skillID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	skill, err := e.findSkill(ctx, skillID)
	if err != nil {
		return err
	}
	return e.updates.Apply(ctx, skillID, skill.Path)
}
