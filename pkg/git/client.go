// Package git wraps the git binary for vault synchronization.
//
// Version-control internals are deliberately not reimplemented: every
// operation shells out to git with structured exit-code and output capture,
// and network-bound commands run under a bounded timeout.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Client wraps git command execution in a fixed working directory.
type Client struct {
	WorkDir string
	Logger  *slog.Logger

	// Timeout bounds each command. Zero means no bound beyond the caller's
	// context. Clone/fetch/pull/push are network-bound and should carry one.
	Timeout time.Duration
}

// NewClient creates a new git client for the given working directory.
func NewClient(workDir string, logger *slog.Logger) *Client {
	return &Client{
		WorkDir: workDir,
		Logger:  logger,
	}
}

// IsInstalled reports whether the git binary is available on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Run executes a raw git command in the working directory and returns its
// combined output with surrounding whitespace trimmed.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))

	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("git %s timed out: %w", args[0], ctx.Err())
		}
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}

	return output, nil
}

// IsRepo reports whether the working directory is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	out, err := c.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Init initializes a new git repository. Safe to re-run.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// Clone clones the remote repository into the working directory, which must
// be empty or absent.
func (c *Client) Clone(ctx context.Context, remoteURL string) error {
	_, err := c.Run(ctx, "clone", remoteURL, ".")
	return err
}

// AddRemote attaches a named remote.
func (c *Client) AddRemote(ctx context.Context, name, url string) error {
	_, err := c.Run(ctx, "remote", "add", name, url)
	return err
}

// HasRemote reports whether any remote is configured.
func (c *Client) HasRemote(ctx context.Context) bool {
	out, err := c.Run(ctx, "remote")
	return err == nil && out != ""
}

// Fetch fetches from the named remote.
func (c *Client) Fetch(ctx context.Context, remote string) error {
	_, err := c.Run(ctx, "fetch", remote)
	return err
}

// DefaultBranch resolves the remote's default branch (its HEAD symref),
// e.g. "main".
func (c *Client) DefaultBranch(ctx context.Context, remote string) (string, error) {
	out, err := c.Run(ctx, "ls-remote", "--symref", remote, "HEAD")
	if err != nil {
		return "", err
	}

	// First line format: "ref: refs/heads/main\tHEAD"
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "ref:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return strings.TrimPrefix(fields[1], "refs/heads/"), nil
		}
	}

	return "", fmt.Errorf("could not determine default branch of %s", remote)
}

// CheckoutBranch forcibly (re)creates a local branch at the given start
// point and switches to it, overwriting conflicting working tree files.
func (c *Client) CheckoutBranch(ctx context.Context, branch, startPoint string) error {
	_, err := c.Run(ctx, "checkout", "-f", "-B", branch, startPoint)
	return err
}

// Clean removes untracked files and directories. Paths matching the keep
// patterns survive.
func (c *Client) Clean(ctx context.Context, keep ...string) error {
	args := []string{"clean", "-fd"}
	for _, k := range keep {
		args = append(args, "-e", k)
	}
	_, err := c.Run(ctx, args...)
	return err
}

// PullFFOnly integrates remote changes, refusing anything that is not a
// fast-forward. Divergence surfaces as an explicit failure instead of a
// silent merge commit.
func (c *Client) PullFFOnly(ctx context.Context) error {
	_, err := c.Run(ctx, "pull", "--ff-only")
	return err
}

// AddAll stages every modification in the working tree.
func (c *Client) AddAll(ctx context.Context) error {
	_, err := c.Run(ctx, "add", "-A")
	return err
}

// Commit records staged changes to the repository.
func (c *Client) Commit(ctx context.Context, msg string) error {
	_, err := c.Run(ctx, "commit", "-m", msg)
	return err
}

// Push publishes local history to the upstream. Pushing an already
// up-to-date branch is a no-op, so a push that failed in an earlier cycle
// is retried implicitly by the next one.
func (c *Client) Push(ctx context.Context) error {
	_, err := c.Run(ctx, "push")
	return err
}

// HasChanges reports whether the working tree differs from HEAD, including
// untracked files.
func (c *Client) HasChanges(ctx context.Context) (bool, error) {
	out, err := c.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}
