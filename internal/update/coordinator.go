// Package update detects and applies upstream changes to installed skills.
// Detection compares the remote tree hash of a skill's folder against the
// folder hash recorded in the shared lock file; the private cache keeps the
// matching commit hash so later checks can use shallow clones.
package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/skilldeck/skilldeck/internal/cache"
	"github.com/skilldeck/skilldeck/internal/lockfile"
	"github.com/skilldeck/skilldeck/internal/types"
)

// maxConcurrentRepos bounds how many distinct repositories are cloned in
// parallel during a batch check. Skills within one clone are processed
// sequentially.
const maxConcurrentRepos = 4

// GitRunner is the subset of git operations the coordinator needs. The
// gitclient package provides the real implementation.
type GitRunner interface {
	Clone(ctx context.Context, url, dir string, shallow bool) error
	CommitHash(ctx context.Context, repoDir string) (string, error)
	TreeHash(ctx context.Context, repoDir, path string) (string, error)
	FindCommitForTreeHash(ctx context.Context, repoDir, path, target string) (string, error)
}

// CheckResult is the outcome of one skill's update check.
type CheckResult struct {
	SkillID        string
	HasUpdate      bool
	RemoteTreeHash string
	RemoteCommit   string
	Err            error
}

// Coordinator orchestrates update checks and update application.
type Coordinator struct {
	git    GitRunner
	lock   *lockfile.Store
	cache  *cache.Cache
	logger Logger

	mu       sync.Mutex
	statuses map[string]CheckResult
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(git GitRunner, lock *lockfile.Store, c *cache.Cache) *Coordinator {
	return &Coordinator{
		git:      git,
		lock:     lock,
		cache:    c,
		logger:   NoOpLogger{},
		statuses: map[string]CheckResult{},
	}
}

// SetLogger replaces the coordinator's logger.
func (co *Coordinator) SetLogger(logger Logger) {
	co.logger = logger
}

// Status returns the most recent check result for a skill, if one exists.
func (co *Coordinator) Status(id string) (CheckResult, bool) {
	co.mu.Lock()
	defer co.mu.Unlock()
	res, ok := co.statuses[id]
	return res, ok
}

func (co *Coordinator) setStatus(res CheckResult) {
	co.mu.Lock()
	co.statuses[res.SkillID] = res
	co.mu.Unlock()
}

func (co *Coordinator) clearStatus(id string) {
	co.mu.Lock()
	delete(co.statuses, id)
	co.mu.Unlock()
}

// folderPath derives the skill's folder inside its repository from the lock
// entry's manifest path.
func folderPath(entry types.LockEntry) string {
	return path.Dir(filepath.ToSlash(entry.SkillPath))
}

// CheckSkill checks a single skill for an upstream update. Unlike batch
// mode, failures propagate to the caller.
func (co *Coordinator) CheckSkill(ctx context.Context, id string) (CheckResult, error) {
	entry, ok, err := co.lock.Entry(id)
	if err != nil {
		return CheckResult{SkillID: id}, err
	}
	if !ok {
		return CheckResult{SkillID: id}, &UpdateError{
			Type:    ErrorTypeNoLockEntry,
			Skill:   id,
			Message: "skill has no registry entry",
		}
	}

	_, haveCommit := co.cache.CommitHash(id)
	cloneDir, err := os.MkdirTemp("", "skilldeck-check-*")
	if err != nil {
		return CheckResult{SkillID: id}, &UpdateError{
			Type:    ErrorTypeCheck,
			Skill:   id,
			Message: "failed to create temporary clone directory",
			Err:     err,
		}
	}
	defer os.RemoveAll(cloneDir)

	// Without a cached commit hash the history walk for backfill needs a
	// full clone; otherwise shallow is enough.
	if err := co.git.Clone(ctx, entry.SourceURL, cloneDir, haveCommit); err != nil {
		return CheckResult{SkillID: id}, &UpdateError{
			Type:    ErrorTypeCheck,
			Skill:   id,
			Message: "failed to clone source repository",
			Err:     err,
		}
	}

	res, err := co.checkInClone(ctx, id, entry, cloneDir, !haveCommit)
	if err != nil {
		return CheckResult{SkillID: id}, err
	}
	co.setStatus(res)
	return res, nil
}

// checkInClone resolves hashes against an existing clone and performs the
// commit-hash backfill when requested.
func (co *Coordinator) checkInClone(ctx context.Context, id string, entry types.LockEntry, cloneDir string, backfill bool) (CheckResult, error) {
	folder := folderPath(entry)

	remoteTree, err := co.git.TreeHash(ctx, cloneDir, folder)
	if err != nil {
		return CheckResult{}, &UpdateError{
			Type:    ErrorTypeCheck,
			Skill:   id,
			Message: fmt.Sprintf("failed to resolve tree hash for '%s'", folder),
			Err:     err,
		}
	}
	head, err := co.git.CommitHash(ctx, cloneDir)
	if err != nil {
		return CheckResult{}, &UpdateError{
			Type:    ErrorTypeCheck,
			Skill:   id,
			Message: "failed to resolve HEAD",
			Err:     err,
		}
	}

	res := CheckResult{
		SkillID:        id,
		HasUpdate:      remoteTree != entry.SkillFolderHash,
		RemoteTreeHash: remoteTree,
		RemoteCommit:   head,
	}

	if backfill {
		commit, err := co.git.FindCommitForTreeHash(ctx, cloneDir, folder, entry.SkillFolderHash)
		if err != nil {
			co.logger.Warn("History walk for hash backfill failed", "skill", id, "error", err)
		} else if commit != "" {
			if err := co.cache.SetCommitHash(id, commit); err != nil {
				co.logger.Warn("Failed to cache backfilled commit hash", "skill", id, "error", err)
			} else {
				co.logger.Debug("Backfilled commit hash", "skill", id, "commit", commit)
			}
		}
	}

	return res, nil
}

// CheckAll checks every skill with a lock entry. Skills are grouped by
// source repository URL and each distinct repository is cloned exactly once;
// distinct repositories are processed in parallel, skills within one clone
// sequentially. A failing skill never aborts its siblings, and a failing
// clone marks only its own group.
func (co *Coordinator) CheckAll(ctx context.Context) ([]CheckResult, error) {
	entries, err := co.lock.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []CheckResult{}, nil
	}

	groups := map[string][]string{}
	for id, entry := range entries {
		groups[entry.SourceURL] = append(groups[entry.SourceURL], id)
	}
	for _, ids := range groups {
		sort.Strings(ids)
	}

	var mu sync.Mutex
	var results []CheckResult
	record := func(res CheckResult) {
		co.setStatus(res)
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}

	p := pool.New().WithMaxGoroutines(maxConcurrentRepos)
	for url, ids := range groups {
		p.Go(func() {
			co.checkGroup(ctx, url, ids, entries, record)
		})
	}
	p.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].SkillID < results[j].SkillID })
	return results, nil
}

// checkGroup clones one repository and checks every member skill against it.
// One clone decision per repository: full when any member lacks a cached
// commit hash.
func (co *Coordinator) checkGroup(ctx context.Context, url string, ids []string, entries map[string]types.LockEntry, record func(CheckResult)) {
	needFull := false
	for _, id := range ids {
		if _, ok := co.cache.CommitHash(id); !ok {
			needFull = true
			break
		}
	}

	cloneDir, err := os.MkdirTemp("", "skilldeck-check-*")
	if err != nil {
		for _, id := range ids {
			record(CheckResult{SkillID: id, Err: err})
		}
		return
	}
	defer os.RemoveAll(cloneDir)

	if err := co.git.Clone(ctx, url, cloneDir, !needFull); err != nil {
		co.logger.Warn("Clone failed for repository group", "url", url, "error", err)
		for _, id := range ids {
			record(CheckResult{SkillID: id, Err: err})
		}
		return
	}

	for _, id := range ids {
		_, haveCommit := co.cache.CommitHash(id)
		res, err := co.checkInClone(ctx, id, entries[id], cloneDir, !haveCommit)
		if err != nil {
			record(CheckResult{SkillID: id, Err: err})
			continue
		}
		record(res)
	}
}

// Apply replaces the canonical skill directory with the upstream version:
// shallow clone, delete-then-copy of the folder, lock entry hash/timestamp
// refresh, commit hash cache write, and status clear.
func (co *Coordinator) Apply(ctx context.Context, id, canonicalPath string) error {
	entry, ok, err := co.lock.Entry(id)
	if err != nil {
		return err
	}
	if !ok {
		return &UpdateError{
			Type:    ErrorTypeNoLockEntry,
			Skill:   id,
			Message: "skill has no registry entry",
		}
	}

	cloneDir, err := os.MkdirTemp("", "skilldeck-update-*")
	if err != nil {
		return &UpdateError{
			Type:    ErrorTypeApply,
			Skill:   id,
			Message: "failed to create temporary clone directory",
			Err:     err,
		}
	}
	defer os.RemoveAll(cloneDir)

	if err := co.git.Clone(ctx, entry.SourceURL, cloneDir, true); err != nil {
		return &UpdateError{
			Type:    ErrorTypeApply,
			Skill:   id,
			Message: "failed to clone source repository",
			Err:     err,
		}
	}

	folder := folderPath(entry)
	newTree, err := co.git.TreeHash(ctx, cloneDir, folder)
	if err != nil {
		return &UpdateError{
			Type:    ErrorTypeApply,
			Skill:   id,
			Message: fmt.Sprintf("failed to resolve tree hash for '%s'", folder),
			Err:     err,
		}
	}
	head, err := co.git.CommitHash(ctx, cloneDir)
	if err != nil {
		return &UpdateError{
			Type:    ErrorTypeApply,
			Skill:   id,
			Message: "failed to resolve HEAD",
			Err:     err,
		}
	}

	srcDir := filepath.Join(cloneDir, filepath.FromSlash(folder))
	if err := replaceDir(srcDir, canonicalPath); err != nil {
		return &UpdateError{
			Type:    ErrorTypeApply,
			Skill:   id,
			Message: "failed to replace skill directory",
			Err:     err,
		}
	}

	entry.SkillFolderHash = newTree
	entry.UpdatedAt = time.Now().Format(types.LockTimestamp)
	if err := co.lock.SetEntry(id, entry); err != nil {
		return err
	}
	if err := co.cache.SetCommitHash(id, head); err != nil {
		co.logger.Warn("Failed to cache commit hash after update", "skill", id, "error", err)
	}
	co.clearStatus(id)

	co.logger.Info("Updated skill", "skill", id, "hash", newTree)
	return nil
}

// replaceDir replaces dst with the contents of src. Delete-then-copy: an
// interruption mid-copy can leave dst partial, an accepted limitation of the
// lock-file format's ownership model.
func replaceDir(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("update source missing: %w", err)
	}
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to remove existing directory: %w", err)
	}
	return CopyDir(src, dst)
}

// CopyDir copies a directory tree, following neither symlinks nor special
// files and skipping .git directories.
func CopyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			// Skills copied straight out of a clone root must not drag
			// git metadata into the canonical store.
			if entry.Name() == ".git" {
				continue
			}
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
