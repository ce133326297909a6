package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skilldeck/skilldeck/internal/cache"
	"github.com/skilldeck/skilldeck/internal/gitclient"
	"github.com/skilldeck/skilldeck/internal/linkstore"
	"github.com/skilldeck/skilldeck/internal/lockfile"
	"github.com/skilldeck/skilldeck/internal/paths"
	"github.com/skilldeck/skilldeck/internal/types"
)

const fakeHead = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type fakeGit struct {
	// files are written into the clone directory, keyed by relative path.
	files    map[string]string
	cloneErr error
	trees    map[string]string
	cloneDir string
}

func (f *fakeGit) Clone(ctx context.Context, url, dir string, shallow bool) error {
	if f.cloneErr != nil {
		return f.cloneErr
	}
	f.cloneDir = dir
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
	return fakeHead, nil
}

func (f *fakeGit) TreeHash(ctx context.Context, repoDir, path string) (string, error) {
	if hash, ok := f.trees[path]; ok {
		return hash, nil
	}
	return "", fmt.Errorf("no tree for %s", path)
}

func manifestBody(name string) string {
	return fmt.Sprintf("---\nname: %s\ndescription: test skill\n---\nbody\n", name)
}

func newTestFlow(t *testing.T, git *fakeGit) (*Flow, *paths.Resolver, *lockfile.Store, *cache.Cache) {
	t.Helper()
	home := t.TempDir()
	pr := paths.NewResolverWithHome(home)
	if err := os.MkdirAll(pr.SharedRoot(), 0755); err != nil {
		t.Fatal(err)
	}
	lock := lockfile.NewStore(pr.LockFilePath())
	priv := cache.New(pr.CachePath())
	flow := NewFlow(git, gitclient.ScanSkillsInRepo, linkstore.NewStore(), lock, priv, pr)
	return flow, pr, lock, priv
}

func TestFlow_FetchThenInstall(t *testing.T) {
	git := &fakeGit{
		files: map[string]string{
			"skills/alpha/SKILL.md":  manifestBody("alpha"),
			"skills/alpha/notes.txt": "alpha notes",
			"skills/beta/SKILL.md":   manifestBody("beta"),
		},
		trees: map[string]string{
			"skills/alpha": "abc123",
			"skills/beta":  "def456",
		},
	}
	flow, pr, lock, priv := newTestFlow(t, git)
	ctx := context.Background()

	if state, _ := flow.State(); state != StateAwaitingInput {
		t.Fatalf("initial state = %s, want awaiting-input", state)
	}

	if err := flow.Fetch(ctx, "octocat/skills"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if state, _ := flow.State(); state != StateSelecting {
		t.Fatalf("state after Fetch = %s, want selecting", state)
	}
	if got := len(flow.Skills()); got != 2 {
		t.Fatalf("discovered %d skills, want 2", got)
	}

	res, err := flow.Install(ctx, []string{"alpha"}, []string{"claude"})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if res.Installed != 1 || res.Skipped != 0 {
		t.Errorf("result = %+v, want one installed", res)
	}
	if state, _ := flow.State(); state != StateCompleted {
		t.Errorf("state after Install = %s, want completed", state)
	}

	canonical := filepath.Join(pr.SharedRoot(), "alpha")
	if _, err := os.Stat(filepath.Join(canonical, "notes.txt")); err != nil {
		t.Errorf("canonical copy incomplete: %v", err)
	}
	// Unselected skill stays out of the store.
	if _, err := os.Stat(filepath.Join(pr.SharedRoot(), "beta")); !os.IsNotExist(err) {
		t.Error("unselected skill was installed")
	}

	claude, _ := pr.Tool("claude")
	link := filepath.Join(pr.SkillsDir(claude), "alpha")
	if info, err := os.Lstat(link); err != nil || info.Mode()&os.ModeSymlink == 0 {
		t.Errorf("expected symlink at %s, err = %v", link, err)
	}

	entry, ok, err := lock.Entry("alpha")
	if err != nil || !ok {
		t.Fatalf("lock entry missing: ok=%v err=%v", ok, err)
	}
	if entry.SkillFolderHash != "abc123" {
		t.Errorf("SkillFolderHash = %q, want abc123", entry.SkillFolderHash)
	}
	if entry.SkillPath != "skills/alpha/SKILL.md" {
		t.Errorf("SkillPath = %q", entry.SkillPath)
	}
	if entry.Source != "octocat/skills" || entry.SourceType != "github" {
		t.Errorf("source fields = %q/%q", entry.Source, entry.SourceType)
	}
	if _, err := time.Parse(types.LockTimestamp, entry.InstalledAt); err != nil {
		t.Errorf("InstalledAt not RFC3339: %v", err)
	}

	if hash, ok := priv.CommitHash("alpha"); !ok || hash != fakeHead {
		t.Errorf("cached commit = %q, %v; want clone HEAD", hash, ok)
	}
	agents, err := lock.LastSelectedAgents()
	if err != nil || len(agents) != 1 || agents[0] != "claude" {
		t.Errorf("LastSelectedAgents = %v, %v", agents, err)
	}

	// The temporary clone is gone after a completed install.
	if _, err := os.Stat(git.cloneDir); !os.IsNotExist(err) {
		t.Error("clone directory survived Install")
	}
}

func TestFlow_InstallRootManifestRepo(t *testing.T) {
	git := &fakeGit{
		files: map[string]string{
			"SKILL.md":    manifestBody("solo"),
			"notes.txt":   "solo notes",
			".git/config": "[core]\n",
			".git/objects/ab/cdef": "blob",
		},
		trees: map[string]string{".": "abc123"},
	}
	flow, pr, lock, _ := newTestFlow(t, git)
	ctx := context.Background()

	if err := flow.Fetch(ctx, "octocat/solo-skill"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	found := flow.Skills()
	if len(found) != 1 || found[0].Name != "solo" {
		t.Fatalf("discovered = %+v, want the manifest-named root skill", found)
	}

	res, err := flow.Install(ctx, []string{"solo"}, nil)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if res.Installed != 1 {
		t.Fatalf("result = %+v, want one installed", res)
	}

	canonical := filepath.Join(pr.SharedRoot(), "solo")
	if _, err := os.Stat(filepath.Join(canonical, "notes.txt")); err != nil {
		t.Errorf("canonical copy incomplete: %v", err)
	}
	// Git metadata from the clone root must stay out of the store.
	if _, err := os.Stat(filepath.Join(canonical, ".git")); !os.IsNotExist(err) {
		t.Error("clone .git directory was copied into the canonical store")
	}

	entry, ok, err := lock.Entry("solo")
	if err != nil || !ok {
		t.Fatalf("lock entry missing: ok=%v err=%v", ok, err)
	}
	if entry.SkillPath != "SKILL.md" {
		t.Errorf("SkillPath = %q, want root manifest path", entry.SkillPath)
	}
}

func TestFlow_RootManifestFallsBackToRepoName(t *testing.T) {
	git := &fakeGit{
		// Malformed manifest: the stub has no name, so the repository
		// name takes over.
		files: map[string]string{"SKILL.md": "no front matter here"},
		trees: map[string]string{".": "abc123"},
	}
	flow, _, _, _ := newTestFlow(t, git)

	if err := flow.Fetch(context.Background(), "octocat/notifier"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	found := flow.Skills()
	if len(found) != 1 || found[0].Name != "notifier" {
		t.Errorf("discovered = %+v, want skill named after the repository", found)
	}
}

func TestFlow_FetchInvalidSource(t *testing.T) {
	flow, _, _, _ := newTestFlow(t, &fakeGit{})
	err := flow.Fetch(context.Background(), "://not a source")
	if err == nil {
		t.Fatal("Fetch() accepted an invalid source")
	}
	state, msg := flow.State()
	if state != StateErrored {
		t.Errorf("state = %s, want errored", state)
	}
	if msg == "" {
		t.Error("errored state carries no message")
	}
}

func TestFlow_FetchNoSkills(t *testing.T) {
	git := &fakeGit{files: map[string]string{"README.md": "nothing here"}}
	flow, _, _, _ := newTestFlow(t, git)
	if err := flow.Fetch(context.Background(), "octocat/empty"); err == nil {
		t.Fatal("Fetch() succeeded on a repository without skills")
	}
	if state, _ := flow.State(); state != StateErrored {
		t.Errorf("state = %s, want errored", state)
	}
	if _, err := os.Stat(git.cloneDir); !os.IsNotExist(err) {
		t.Error("clone directory survived a failed fetch")
	}
}

func TestFlow_InstallPartialFailure(t *testing.T) {
	git := &fakeGit{
		files: map[string]string{
			"skills/alpha/SKILL.md": manifestBody("alpha"),
			"skills/beta/SKILL.md":  manifestBody("beta"),
		},
		trees: map[string]string{
			"skills/alpha": "abc123",
			"skills/beta":  "def456",
		},
	}
	flow, pr, _, _ := newTestFlow(t, git)
	ctx := context.Background()

	// Occupy beta's slot in the canonical store beforehand.
	if err := os.MkdirAll(filepath.Join(pr.SharedRoot(), "beta"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := flow.Fetch(ctx, "octocat/skills"); err != nil {
		t.Fatal(err)
	}
	res, err := flow.Install(ctx, []string{"alpha", "beta", "ghost"}, nil)
	if err != nil {
		t.Fatalf("Install() error = %v, want per-item failures only", err)
	}
	if res.Installed != 1 {
		t.Errorf("Installed = %d, want 1", res.Installed)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if len(res.Errors) != 2 {
		t.Errorf("Errors = %v, want 2 entries", res.Errors)
	}
	if state, _ := flow.State(); state != StateCompleted {
		t.Errorf("state = %s, want completed despite per-item failures", state)
	}
}

func TestFlow_InstallRequiresSelection(t *testing.T) {
	git := &fakeGit{
		files: map[string]string{"skills/alpha/SKILL.md": manifestBody("alpha")},
		trees: map[string]string{"skills/alpha": "abc123"},
	}
	flow, _, _, _ := newTestFlow(t, git)
	if err := flow.Fetch(context.Background(), "octocat/skills"); err != nil {
		t.Fatal(err)
	}
	if _, err := flow.Install(context.Background(), nil, nil); err == nil {
		t.Fatal("Install() accepted an empty selection")
	}
}

func TestFlow_StateOrdering(t *testing.T) {
	flow, _, _, _ := newTestFlow(t, &fakeGit{})
	if _, err := flow.Install(context.Background(), []string{"alpha"}, nil); err == nil {
		t.Error("Install() allowed from awaiting-input")
	}
	// A rejected transition leaves the state untouched.
	if state, _ := flow.State(); state != StateAwaitingInput {
		t.Errorf("state = %s, want awaiting-input after rejected Install", state)
	}
}

func TestFlow_Abort(t *testing.T) {
	git := &fakeGit{
		files: map[string]string{"skills/alpha/SKILL.md": manifestBody("alpha")},
		trees: map[string]string{"skills/alpha": "abc123"},
	}
	flow, _, _, _ := newTestFlow(t, git)
	if err := flow.Fetch(context.Background(), "octocat/skills"); err != nil {
		t.Fatal(err)
	}
	flow.Abort()
	state, msg := flow.State()
	if state != StateErrored || msg != "aborted" {
		t.Errorf("state = %s %q, want errored/aborted", state, msg)
	}
	if _, err := os.Stat(git.cloneDir); !os.IsNotExist(err) {
		t.Error("clone directory survived Abort")
	}
	// Abort on a terminal state is a no-op.
	flow.Abort()
}

func TestFlow_RecordsRepoHistory(t *testing.T) {
	git := &fakeGit{
		files: map[string]string{"skills/alpha/SKILL.md": manifestBody("alpha")},
		trees: map[string]string{"skills/alpha": "abc123"},
	}
	flow, _, _, priv := newTestFlow(t, git)
	if err := flow.Fetch(context.Background(), "octocat/skills"); err != nil {
		t.Fatal(err)
	}
	history := priv.RepoHistory()
	if len(history) != 1 || history[0].Source != "octocat/skills" {
		t.Errorf("history = %+v, want fetched repository recorded", history)
	}
}
