package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/skilldeck/skilldeck/internal/cache"
	"github.com/skilldeck/skilldeck/internal/lockfile"
	"github.com/skilldeck/skilldeck/internal/types"
)

func hash40(seed string) string {
	padded := seed + strings.Repeat("0", 40)
	return strings.ToLower(padded[:40])
}

type cloneCall struct {
	url     string
	shallow bool
}

type histCommit struct {
	commit string
	trees  map[string]string
}

type fakeGit struct {
	mu         sync.Mutex
	cloneCalls []cloneCall
	cloneErr   map[string]error
	// files are written into every clone directory, keyed by relative path.
	files map[string]string
	// trees maps a folder path to its tree hash at HEAD.
	trees map[string]string
	head  string
	// history is newest-first, used by FindCommitForTreeHash.
	history   []histCommit
	findCalls int
}

func (f *fakeGit) Clone(ctx context.Context, url, dir string, shallow bool) error {
	f.mu.Lock()
	f.cloneCalls = append(f.cloneCalls, cloneCall{url: url, shallow: shallow})
	err := f.cloneErr[url]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	for rel, content := range f.files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGit) CommitHash(ctx context.Context, repoDir string) (string, error) {
	return f.head, nil
}

func (f *fakeGit) TreeHash(ctx context.Context, repoDir, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hash, ok := f.trees[path]; ok {
		return hash, nil
	}
	return "", fmt.Errorf("no tree for %s", path)
}

func (f *fakeGit) FindCommitForTreeHash(ctx context.Context, repoDir, path, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	for _, h := range f.history {
		if h.trees[path] == target {
			return h.commit, nil
		}
	}
	return "", nil
}

func (f *fakeGit) clones() []cloneCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]cloneCall, len(f.cloneCalls))
	copy(out, f.cloneCalls)
	return out
}

func newCoordinator(t *testing.T, git GitRunner) (*Coordinator, *lockfile.Store, *cache.Cache) {
	t.Helper()
	dir := t.TempDir()
	lock := lockfile.NewStore(filepath.Join(dir, ".skill-lock.json"))
	priv := cache.New(filepath.Join(dir, ".skilldeck-cache.json"))
	return NewCoordinator(git, lock, priv), lock, priv
}

func lockEntry(url, skillPath, folderHash string) types.LockEntry {
	return types.LockEntry{
		Source:          "octocat/skills",
		SourceType:      "github",
		SourceURL:       url,
		SkillPath:       skillPath,
		SkillFolderHash: folderHash,
		InstalledAt:     "2026-08-01T10:00:00Z",
		UpdatedAt:       "2026-08-01T10:00:00Z",
	}
}

func TestCheckSkill_HashComparison(t *testing.T) {
	tests := []struct {
		name       string
		remoteTree string
		wantUpdate bool
	}{
		{name: "same hash means no update", remoteTree: "abc123", wantUpdate: false},
		{name: "different hash means update", remoteTree: "def456", wantUpdate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			git := &fakeGit{
				trees: map[string]string{"skills/agent-notifier": tt.remoteTree},
				head:  hash40("1"),
			}
			co, lock, priv := newCoordinator(t, git)
			if err := lock.SetEntry("agent-notifier", lockEntry("https://github.com/octocat/skills.git", "skills/agent-notifier/SKILL.md", "abc123")); err != nil {
				t.Fatal(err)
			}
			if err := priv.SetCommitHash("agent-notifier", hash40("9")); err != nil {
				t.Fatal(err)
			}

			res, err := co.CheckSkill(context.Background(), "agent-notifier")
			if err != nil {
				t.Fatalf("CheckSkill() error = %v", err)
			}
			if res.HasUpdate != tt.wantUpdate {
				t.Errorf("HasUpdate = %v, want %v", res.HasUpdate, tt.wantUpdate)
			}
		})
	}
}

func TestCheckSkill_CloneDepthDecision(t *testing.T) {
	git := &fakeGit{
		trees: map[string]string{"skills/alpha": "abc123"},
		head:  hash40("1"),
	}
	co, lock, priv := newCoordinator(t, git)
	if err := lock.SetEntry("alpha", lockEntry("https://github.com/o/r.git", "skills/alpha/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}

	// No cached commit hash: full clone for backfill.
	if _, err := co.CheckSkill(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}
	calls := git.clones()
	if len(calls) != 1 || calls[0].shallow {
		t.Fatalf("first check clones = %+v, want one full clone", calls)
	}

	if err := priv.SetCommitHash("alpha", hash40("2")); err != nil {
		t.Fatal(err)
	}
	if _, err := co.CheckSkill(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}
	calls = git.clones()
	if len(calls) != 2 || !calls[1].shallow {
		t.Fatalf("second check clones = %+v, want shallow clone once a hash is cached", calls)
	}
}

func TestCheckSkill_Backfill(t *testing.T) {
	// Five commits, newest first; the third matches the locally recorded
	// folder hash.
	history := []histCommit{
		{commit: hash40("5"), trees: map[string]string{"skills/alpha": "eee"}},
		{commit: hash40("4"), trees: map[string]string{"skills/alpha": "ddd"}},
		{commit: hash40("3"), trees: map[string]string{"skills/alpha": "abc123"}},
		{commit: hash40("2"), trees: map[string]string{"skills/alpha": "bbb"}},
		{commit: hash40("1"), trees: map[string]string{"skills/alpha": "aaa"}},
	}
	git := &fakeGit{
		trees:   map[string]string{"skills/alpha": "eee"},
		head:    hash40("5"),
		history: history,
	}
	co, lock, priv := newCoordinator(t, git)
	if err := lock.SetEntry("alpha", lockEntry("https://github.com/o/r.git", "skills/alpha/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}

	res, err := co.CheckSkill(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("CheckSkill() error = %v", err)
	}
	if !res.HasUpdate {
		t.Error("HasUpdate = false, want true")
	}

	cached, ok := priv.CommitHash("alpha")
	if !ok || cached != hash40("3") {
		t.Errorf("backfilled commit = %q, %v; want third commit %q", cached, ok, hash40("3"))
	}
	if git.findCalls != 1 {
		t.Errorf("findCalls = %d, want 1", git.findCalls)
	}

	// A later check must not walk history again.
	if _, err := co.CheckSkill(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}
	if git.findCalls != 1 {
		t.Errorf("findCalls after second check = %d, want still 1", git.findCalls)
	}
}

func TestCheckAll_OneClonePerRepository(t *testing.T) {
	git := &fakeGit{
		trees: map[string]string{
			"skills/a": "abc123",
			"skills/b": "abc123",
			"skills/c": "abc123",
		},
		head: hash40("1"),
	}
	co, lock, priv := newCoordinator(t, git)

	repo1 := "https://github.com/o/repo1.git"
	repo2 := "https://github.com/o/repo2.git"
	if err := lock.SetEntry("a", lockEntry(repo1, "skills/a/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	if err := lock.SetEntry("b", lockEntry(repo1, "skills/b/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	if err := lock.SetEntry("c", lockEntry(repo2, "skills/c/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := priv.SetCommitHash(id, hash40("7")); err != nil {
			t.Fatal(err)
		}
	}

	results, err := co.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	calls := git.clones()
	if len(calls) != 2 {
		t.Errorf("clone count = %d, want 2 (one per distinct repository)", len(calls))
	}
}

func TestCheckAll_GroupCloneDecisionIsShared(t *testing.T) {
	git := &fakeGit{
		trees: map[string]string{
			"skills/a": "abc123",
			"skills/b": "abc123",
		},
		head: hash40("1"),
	}
	co, lock, priv := newCoordinator(t, git)

	repo := "https://github.com/o/repo.git"
	if err := lock.SetEntry("a", lockEntry(repo, "skills/a/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	if err := lock.SetEntry("b", lockEntry(repo, "skills/b/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	// Only one member has a cached hash: the whole group clones fully.
	if err := priv.SetCommitHash("a", hash40("7")); err != nil {
		t.Fatal(err)
	}

	if _, err := co.CheckAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	calls := git.clones()
	if len(calls) != 1 {
		t.Fatalf("clone count = %d, want 1", len(calls))
	}
	if calls[0].shallow {
		t.Error("group with an uncached member cloned shallow, want full")
	}
}

func TestCheckAll_FailureIsolation(t *testing.T) {
	repoBad := "https://github.com/o/bad.git"
	repoGood := "https://github.com/o/good.git"
	git := &fakeGit{
		trees:    map[string]string{"skills/good": "def456"},
		head:     hash40("1"),
		cloneErr: map[string]error{repoBad: fmt.Errorf("network down")},
	}
	co, lock, priv := newCoordinator(t, git)
	if err := lock.SetEntry("bad", lockEntry(repoBad, "skills/bad/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	if err := lock.SetEntry("good", lockEntry(repoGood, "skills/good/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"bad", "good"} {
		if err := priv.SetCommitHash(id, hash40("7")); err != nil {
			t.Fatal(err)
		}
	}

	results, err := co.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	byID := map[string]CheckResult{}
	for _, res := range results {
		byID[res.SkillID] = res
	}
	if byID["bad"].Err == nil {
		t.Error("failing group carries no error")
	}
	if byID["good"].Err != nil {
		t.Errorf("sibling group affected by failure: %v", byID["good"].Err)
	}
	if !byID["good"].HasUpdate {
		t.Error("good skill update not detected")
	}
}

func TestApply(t *testing.T) {
	git := &fakeGit{
		trees: map[string]string{"skills/alpha": "def456"},
		head:  hash40("8"),
		files: map[string]string{
			"skills/alpha/SKILL.md":  "---\nname: alpha\n---\nnew body\n",
			"skills/alpha/extra.txt": "added upstream",
		},
	}
	co, lock, priv := newCoordinator(t, git)
	if err := lock.SetEntry("alpha", lockEntry("https://github.com/o/r.git", "skills/alpha/SKILL.md", "abc123")); err != nil {
		t.Fatal(err)
	}
	co.setStatus(CheckResult{SkillID: "alpha", HasUpdate: true})

	canonical := filepath.Join(t.TempDir(), "alpha")
	if err := os.MkdirAll(canonical, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(canonical, "stale.txt"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := co.Apply(context.Background(), "alpha", canonical); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(canonical, "stale.txt")); !os.IsNotExist(err) {
		t.Error("stale file survived replacement, want full replace")
	}
	if _, err := os.Stat(filepath.Join(canonical, "extra.txt")); err != nil {
		t.Error("upstream file missing after replacement")
	}

	entry, _, err := lock.Entry("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if entry.SkillFolderHash != "def456" {
		t.Errorf("SkillFolderHash = %q, want def456", entry.SkillFolderHash)
	}
	if hash, ok := priv.CommitHash("alpha"); !ok || hash != hash40("8") {
		t.Errorf("cached commit = %q, %v; want new HEAD", hash, ok)
	}
	if _, ok := co.Status("alpha"); ok {
		t.Error("update status not cleared after Apply")
	}
}
