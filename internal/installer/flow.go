// Package installer drives the clone → scan → select → install pipeline as
// an explicit state machine. The flow owns a temporary clone for its whole
// lifetime and discards it on every exit path.
package installer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skilldeck/skilldeck/internal/cache"
	"github.com/skilldeck/skilldeck/internal/gitclient"
	"github.com/skilldeck/skilldeck/internal/linkstore"
	"github.com/skilldeck/skilldeck/internal/lockfile"
	"github.com/skilldeck/skilldeck/internal/paths"
	"github.com/skilldeck/skilldeck/internal/types"
	"github.com/skilldeck/skilldeck/internal/update"
)

// State is the install-flow state.
type State int

const (
	StateAwaitingInput State = iota
	StateFetching
	StateSelecting
	StateInstalling
	StateCompleted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting-input"
	case StateFetching:
		return "fetching"
	case StateSelecting:
		return "selecting"
	case StateInstalling:
		return "installing"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// GitRunner is the subset of git operations the flow needs.
type GitRunner interface {
	Clone(ctx context.Context, url, dir string, shallow bool) error
	CommitHash(ctx context.Context, repoDir string) (string, error)
	TreeHash(ctx context.Context, repoDir, path string) (string, error)
}

// RepoScanner finds skill manifests inside a cloned repository.
// gitclient.ScanSkillsInRepo is the production implementation.
type RepoScanner func(repoDir string) ([]gitclient.RepoSkill, error)

// Result reports the outcome of the Installing phase. Per-item failures are
// skipped and counted; they never fail the flow as a whole.
type Result struct {
	Installed int
	Skipped   int
	Errors    []error
}

// Flow is one install pipeline run. Not reusable after a terminal state.
type Flow struct {
	mu       sync.Mutex
	state    State
	errMsg   string
	source   gitclient.Source
	cloneDir string
	found    []gitclient.RepoSkill

	git   GitRunner
	scan  RepoScanner
	links *linkstore.Store
	lock  *lockfile.Store
	cache *cache.Cache
	paths *paths.Resolver
}

// NewFlow creates a Flow in AwaitingInput.
func NewFlow(git GitRunner, scan RepoScanner, links *linkstore.Store, lock *lockfile.Store, c *cache.Cache, pr *paths.Resolver) *Flow {
	return &Flow{
		state: StateAwaitingInput,
		git:   git,
		scan:  scan,
		links: links,
		lock:  lock,
		cache: c,
		paths: pr,
	}
}

// State returns the current state and, for Errored, its message.
func (f *Flow) State() (State, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.errMsg
}

// Skills returns the skills discovered by Fetch, available from Selecting
// onwards.
func (f *Flow) Skills() []gitclient.RepoSkill {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gitclient.RepoSkill, len(f.found))
	copy(out, f.found)
	return out
}

func (f *Flow) fail(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	f.mu.Lock()
	f.state = StateErrored
	f.errMsg = msg
	f.mu.Unlock()
	f.cleanup()
	return fmt.Errorf("%s", msg)
}

func (f *Flow) cleanup() {
	f.mu.Lock()
	dir := f.cloneDir
	f.cloneDir = ""
	f.mu.Unlock()
	if dir != "" {
		os.RemoveAll(dir)
	}
}

// Fetch parses the repository source, clones it shallowly and scans it for
// skills. AwaitingInput → Fetching → Selecting.
func (f *Flow) Fetch(ctx context.Context, input string) error {
	f.mu.Lock()
	if f.state != StateAwaitingInput {
		defer f.mu.Unlock()
		return fmt.Errorf("cannot fetch from state %s", f.state)
	}
	f.state = StateFetching
	f.mu.Unlock()

	source, err := gitclient.ParseSource(input)
	if err != nil {
		return f.fail("invalid repository source: %v", err)
	}

	cloneDir, err := os.MkdirTemp("", "skilldeck-install-*")
	if err != nil {
		return f.fail("failed to create temporary directory: %v", err)
	}
	f.mu.Lock()
	f.source = source
	f.cloneDir = cloneDir
	f.mu.Unlock()

	if err := f.git.Clone(ctx, source.CloneURL, cloneDir, true); err != nil {
		return f.fail("failed to clone '%s': %v", source.CloneURL, err)
	}

	found, err := f.scan(cloneDir)
	if err != nil {
		return f.fail("failed to scan repository: %v", err)
	}
	if len(found) == 0 {
		return f.fail("no skills found in '%s'", source.Name)
	}
	for i := range found {
		if found[i].Name == "" {
			found[i].Name = repoSkillName(source.Name)
		}
	}

	// History is best-effort bookkeeping.
	_ = f.cache.TouchRepoHistory(source.Name, source.CloneURL)

	f.mu.Lock()
	f.found = found
	f.state = StateSelecting
	f.mu.Unlock()
	return nil
}

// Install copies the selected skills into the canonical store, writes their
// lock entries and commit hashes, and links them into the selected tools.
// Selecting → Installing → Completed. Installing always follows an explicit
// selection; per-item failures are counted, not fatal.
func (f *Flow) Install(ctx context.Context, selected []string, agents []string) (*Result, error) {
	f.mu.Lock()
	if f.state != StateSelecting {
		defer f.mu.Unlock()
		return nil, fmt.Errorf("cannot install from state %s", f.state)
	}
	if len(selected) == 0 {
		defer f.mu.Unlock()
		return nil, fmt.Errorf("no skills selected")
	}
	f.state = StateInstalling
	cloneDir := f.cloneDir
	source := f.source
	byName := map[string]gitclient.RepoSkill{}
	for _, s := range f.found {
		byName[s.Name] = s
	}
	f.mu.Unlock()

	defer f.cleanup()

	head, headErr := f.git.CommitHash(ctx, cloneDir)

	result := &Result{}
	for _, name := range selected {
		skill, ok := byName[name]
		if !ok {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Errorf("skill '%s' not in repository", name))
			continue
		}
		if err := f.installOne(ctx, source, cloneDir, skill, head, headErr, agents); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Installed++
	}

	if len(agents) > 0 {
		if err := f.lock.SetLastSelectedAgents(agents); err != nil {
			result.Errors = append(result.Errors, err)
		}
	}

	f.mu.Lock()
	f.state = StateCompleted
	f.mu.Unlock()
	return result, nil
}

func (f *Flow) installOne(ctx context.Context, source gitclient.Source, cloneDir string, skill gitclient.RepoSkill, head string, headErr error, agents []string) error {
	folder := path.Dir(skill.ManifestPath)
	srcDir := filepath.Join(cloneDir, filepath.FromSlash(folder))
	if folder == "." {
		srcDir = cloneDir
	}

	folderHash, err := f.git.TreeHash(ctx, cloneDir, folder)
	if err != nil {
		return fmt.Errorf("%s: failed to resolve folder hash: %w", skill.Name, err)
	}

	dst := filepath.Join(f.paths.SharedRoot(), skill.Name)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s: already installed", skill.Name)
	}
	if err := update.CopyDir(srcDir, dst); err != nil {
		os.RemoveAll(dst)
		return fmt.Errorf("%s: failed to copy skill: %w", skill.Name, err)
	}

	now := time.Now().Format(types.LockTimestamp)
	entry := types.LockEntry{
		Source:          source.Name,
		SourceType:      source.Type,
		SourceURL:       source.CloneURL,
		SkillPath:       skill.ManifestPath,
		SkillFolderHash: folderHash,
		InstalledAt:     now,
		UpdatedAt:       now,
	}
	if err := f.lock.SetEntry(skill.Name, entry); err != nil {
		return fmt.Errorf("%s: failed to write lock entry: %w", skill.Name, err)
	}
	if headErr == nil {
		_ = f.cache.SetCommitHash(skill.Name, head)
	}

	for _, agent := range agents {
		tool, ok := f.paths.Tool(agent)
		if !ok || f.paths.IsSharedRoot(tool) {
			continue
		}
		if err := f.links.CreateLink(dst, f.paths.SkillsDir(tool)); err != nil {
			return fmt.Errorf("%s: failed to link into %s: %w", skill.Name, agent, err)
		}
	}
	return nil
}

// repoSkillName names a skill whose root-level manifest carries no name of
// its own, using the repository's own name.
func repoSkillName(sourceName string) string {
	if i := strings.LastIndex(sourceName, "/"); i >= 0 {
		return sourceName[i+1:]
	}
	return sourceName
}

// Abort discards the temporary clone and moves the flow to Errored unless it
// already reached a terminal state.
func (f *Flow) Abort() {
	f.mu.Lock()
	if f.state == StateCompleted || f.state == StateErrored {
		f.mu.Unlock()
		return
	}
	f.state = StateErrored
	f.errMsg = "aborted"
	f.mu.Unlock()
	f.cleanup()
}
