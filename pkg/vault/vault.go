// Package vault implements the version-controlled document tree: one
// markdown note per calendar day, kept as a working copy of a single git
// remote.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fyshx/kiroku/internal/fsx"
	"github.com/fyshx/kiroku/pkg/core"
	"github.com/fyshx/kiroku/pkg/git"
)

const (
	// DefaultNotesDir is the fixed subdirectory holding daily notes.
	DefaultNotesDir = "daily"

	// dayNotePattern matches daily note filenames ("2024-01-01.md").
	dayNotePattern = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9].md"

	remoteName = "origin"
)

// Config holds the configuration for the vault.
type Config struct {
	// Path is the vault root directory.
	Path string

	// RemoteURL is the git remote the vault clones from and pushes to.
	RemoteURL string

	// Branch overrides the remote's default branch during recovery.
	Branch string

	// NotesDir is the subdirectory for daily notes. Defaults to "daily".
	NotesDir string

	// SystemDir is an untracked directory inside the vault (queue,
	// checkpoint, locks) that must survive recovery and stay out of
	// history. Ignored when empty.
	SystemDir string

	// CommandTimeout bounds each git subprocess call.
	CommandTimeout time.Duration

	Logger *slog.Logger
}

// Vault implements core.Vault on top of a git working copy.
type Vault struct {
	cfg    Config
	git    *git.Client
	logger *slog.Logger
}

// New creates a vault rooted at cfg.Path. Call Initialize before use.
func New(cfg Config) *Vault {
	if cfg.NotesDir == "" {
		cfg.NotesDir = DefaultNotesDir
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := git.NewClient(cfg.Path, logger)
	client.Timeout = cfg.CommandTimeout

	return &Vault{
		cfg:    cfg,
		git:    client,
		logger: logger,
	}
}

// Initialize drives the vault to a valid working copy of the remote:
//
//	missing directory        -> clone
//	present, no git metadata -> init, attach remote, fetch, hard reset
//	valid working copy       -> nothing to do
//
// Recovery failures are fatal: proceeding with an inconsistent tree would
// risk silently diverging from committed history.
func (v *Vault) Initialize(ctx context.Context) error {
	if !git.IsInstalled() {
		return core.Fatal(fmt.Errorf("git is not installed"))
	}

	info, err := os.Stat(v.cfg.Path)
	switch {
	case os.IsNotExist(err):
		return v.clone(ctx)
	case err != nil:
		return fmt.Errorf("failed to stat vault path: %w", err)
	case !info.IsDir():
		return core.Fatal(fmt.Errorf("vault path is not a directory: %s", v.cfg.Path))
	}

	if v.git.IsRepo(ctx) {
		return v.ensureIgnore()
	}

	return v.recover(ctx)
}

// clone materializes a missing vault from the remote.
func (v *Vault) clone(ctx context.Context) error {
	if v.cfg.RemoteURL == "" {
		return core.Fatal(fmt.Errorf("vault is missing and no remote is configured: %s", v.cfg.Path))
	}

	v.logger.Info("vault missing, cloning", "path", v.cfg.Path, "remote", v.cfg.RemoteURL)

	if err := os.MkdirAll(v.cfg.Path, 0755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	if err := v.git.Clone(ctx, v.cfg.RemoteURL); err != nil {
		return core.Transient(fmt.Errorf("failed to clone vault: %w", err))
	}

	return v.ensureIgnore()
}

// recover rebuilds git metadata for a directory that exists but is not a
// working copy (a misconfigured storage backend can hand us one). The tree
// is hard-reset to the remote's tracked branch: pre-existing untracked
// content loses to known-good history, except the system directory.
func (v *Vault) recover(ctx context.Context) error {
	if v.cfg.RemoteURL == "" {
		return core.Fatal(fmt.Errorf("vault at %s has no git metadata and no remote is configured", v.cfg.Path))
	}

	v.logger.Warn("vault present but not a working copy, recovering from remote",
		"path", v.cfg.Path, "remote", v.cfg.RemoteURL)

	if err := v.git.Init(ctx); err != nil {
		return core.Fatal(fmt.Errorf("recovery failed: %w", err))
	}
	if err := v.git.AddRemote(ctx, remoteName, v.cfg.RemoteURL); err != nil {
		return core.Fatal(fmt.Errorf("recovery failed: %w", err))
	}
	if err := v.git.Fetch(ctx, remoteName); err != nil {
		return core.Fatal(fmt.Errorf("recovery failed: %w", err))
	}

	branch := v.cfg.Branch
	if branch == "" {
		b, err := v.git.DefaultBranch(ctx, remoteName)
		if err != nil {
			return core.Fatal(fmt.Errorf("recovery failed: %w", err))
		}
		branch = b
	}

	if err := v.git.CheckoutBranch(ctx, branch, remoteName+"/"+branch); err != nil {
		return core.Fatal(fmt.Errorf("recovery failed: %w", err))
	}

	var keep []string
	if v.cfg.SystemDir != "" {
		keep = append(keep, v.cfg.SystemDir+"/")
	}
	if err := v.git.Clean(ctx, keep...); err != nil {
		return core.Fatal(fmt.Errorf("recovery failed: %w", err))
	}

	v.logger.Info("vault recovered", "branch", branch)
	return v.ensureIgnore()
}

// Pull integrates remote history before any merge, fast-forward only, so
// edits made outside this system are never clobbered and divergence fails
// loudly instead of producing a silent merge commit.
func (v *Vault) Pull(ctx context.Context) error {
	if !v.git.HasRemote(ctx) {
		v.logger.Debug("no remote configured, skipping pull")
		return nil
	}
	if err := v.git.PullFFOnly(ctx); err != nil {
		return core.Transient(fmt.Errorf("pull failed: %w", err))
	}
	return nil
}

// ReadDay returns the full text of one day's note, or core.ErrNotFound.
func (v *Vault) ReadDay(ctx context.Context, day core.DayKey) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.Document{}, err
	}

	data, err := os.ReadFile(v.dayPath(day))
	if err != nil {
		if os.IsNotExist(err) {
			return core.Document{}, core.ErrNotFound
		}
		return core.Document{}, fmt.Errorf("failed to read note %s: %w", day, err)
	}

	return core.Document{Day: day, Content: string(data)}, nil
}

// WriteDay persists one day's note atomically. A trailing newline is
// ensured so successive merges diff cleanly.
func (v *Vault) WriteDay(ctx context.Context, doc core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(v.cfg.Path, v.cfg.NotesDir), 0755); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}

	content := doc.Content
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	if err := fsx.WriteFileAtomic(v.dayPath(doc.Day), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write note %s: %w", doc.Day, err)
	}

	v.logger.Debug("note written", "day", doc.Day, "bytes", len(content))
	return nil
}

// Publish stages, commits and pushes local modifications. A commit is only
// produced when the working tree actually changed, keeping history clean.
// Pushing runs even without a new commit so a previously failed push is
// retried.
func (v *Vault) Publish(ctx context.Context, reason string) error {
	changed, err := v.git.HasChanges(ctx)
	if err != nil {
		return core.Transient(fmt.Errorf("failed to check vault status: %w", err))
	}

	if changed {
		if err := v.git.AddAll(ctx); err != nil {
			return core.Transient(fmt.Errorf("failed to stage changes: %w", err))
		}

		msg := reason
		if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
			msg = val
		}
		if msg == "" {
			msg = "chore(sync): merge queued items"
		}

		if err := v.git.Commit(ctx, msg); err != nil {
			return core.Transient(fmt.Errorf("failed to commit: %w", err))
		}
	} else {
		v.logger.Debug("working tree unchanged, nothing to commit")
	}

	if !v.git.HasRemote(ctx) {
		return nil
	}
	if err := v.git.Push(ctx); err != nil {
		return core.Transient(fmt.Errorf("push failed: %w", err))
	}

	return nil
}

// ListDays returns the days that have a note, sorted ascending.
func (v *Vault) ListDays(ctx context.Context) ([]core.DayKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(v.cfg.Path, v.cfg.NotesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	var days []core.DayKey
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(dayNotePattern, e.Name()); !ok {
			continue
		}
		day, err := core.ParseDayKey(strings.TrimSuffix(e.Name(), ".md"))
		if err != nil {
			continue
		}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

// Path returns the vault root directory.
func (v *Vault) Path() string {
	return v.cfg.Path
}

func (v *Vault) dayPath(day core.DayKey) string {
	return filepath.Join(v.cfg.Path, v.cfg.NotesDir, day.String()+".md")
}

// ensureIgnore keeps the system directory out of version control.
func (v *Vault) ensureIgnore() error {
	if v.cfg.SystemDir == "" {
		return nil
	}

	ignorePath := filepath.Join(v.cfg.Path, ".gitignore")
	ignoreEntry := v.cfg.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read .gitignore: %w", err)
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open .gitignore: %w", err)
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return err
	}

	return nil
}

var _ core.Vault = (*Vault)(nil)
