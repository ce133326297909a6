// Package gitclient wraps the external git binary. Clones and hash lookups
// are the only mechanism this engine uses to talk to remote history; there
// is no in-process git implementation.
package gitclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Client executes git commands. The binary lookup is performed once and
// cached; a missing binary is a permanently fatal condition, distinct from
// a command that merely exited non-zero.
type Client struct {
	mu        sync.Mutex
	gitPath   string
	lookupErr error
	looked    bool
}

// NewClient creates a Client.
func NewClient() *Client {
	return &Client{}
}

// NewClientWithBinary creates a Client that uses an explicit git binary
// path instead of searching PATH.
func NewClientWithBinary(path string) *Client {
	return &Client{gitPath: path, looked: path != ""}
}

func (c *Client) binary() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.looked {
		c.looked = true
		path, err := exec.LookPath("git")
		if err != nil {
			c.lookupErr = &GitError{
				Type:    ErrorTypeNotInstalled,
				Message: "git is not installed or not on PATH",
				Err:     err,
			}
		}
		c.gitPath = path
	}
	return c.gitPath, c.lookupErr
}

func (c *Client) run(ctx context.Context, dir string, args ...string) (string, string, error) {
	bin, err := c.binary()
	if err != nil {
		return "", "", err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), &GitError{
			Type:    ErrorTypeCommandFailed,
			Message: fmt.Sprintf("git %s failed", strings.Join(args, " ")),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.String(), stderr.String(), nil
}

// Clone clones url into dir. Shallow clones use depth 1: fast, but without
// walkable history, so hash backfill requires a full clone.
func (c *Client) Clone(ctx context.Context, url, dir string, shallow bool) error {
	args := []string{"clone"}
	if shallow {
		args = append(args, "--depth", "1")
	}
	args = append(args, url, dir)

	_, stderr, err := c.run(ctx, "", args...)
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) && gitErr.Type == ErrorTypeNotInstalled {
			return err
		}
		return &GitError{
			Type:    ErrorTypeCloneFailed,
			Message: fmt.Sprintf("failed to clone '%s'", url),
			Stderr:  strings.TrimSpace(stderr),
			Err:     err,
		}
	}
	return nil
}

// CommitHash resolves HEAD of a local clone.
func (c *Client) CommitHash(ctx context.Context, repoDir string) (string, error) {
	return c.revParse(ctx, repoDir, "HEAD")
}

// TreeHash resolves the tree hash of path at HEAD. The tree hash changes
// whenever any file under path changes, which makes it the update-detection
// primitive.
func (c *Client) TreeHash(ctx context.Context, repoDir, path string) (string, error) {
	return c.revParse(ctx, repoDir, "HEAD:"+path)
}

func (c *Client) revParse(ctx context.Context, repoDir, rev string) (string, error) {
	stdout, _, err := c.run(ctx, repoDir, "rev-parse", rev)
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(stdout)
	if hash == "" {
		return "", &GitError{
			Type:    ErrorTypeHashFailed,
			Message: fmt.Sprintf("empty hash resolving '%s'", rev),
		}
	}
	return hash, nil
}

// FindCommitForTreeHash walks the history touching path newest-first and
// returns the first commit whose tree hash of path equals target. Requires a
// full clone. Returns ("", nil) when no commit matches.
func (c *Client) FindCommitForTreeHash(ctx context.Context, repoDir, path, target string) (string, error) {
	stdout, _, err := c.run(ctx, repoDir, "log", "--format=%H", "--", path)
	if err != nil {
		return "", err
	}

	for _, commit := range strings.Fields(stdout) {
		hashOut, _, err := c.run(ctx, repoDir, "rev-parse", commit+":"+path)
		if err != nil {
			// The path may not exist at this commit.
			continue
		}
		if strings.TrimSpace(hashOut) == target {
			return commit, nil
		}
	}
	return "", nil
}
