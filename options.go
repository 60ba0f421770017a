package kiroku

import (
	"log/slog"
	"time"
)

// options holds the internal configuration for the kiroku service.
type options struct {
	remoteURL      string
	branch         string
	notesDir       string
	stateDir       string
	timezone       *time.Location
	interval       time.Duration
	lockTimeout    time.Duration
	commandTimeout time.Duration
	logger         *slog.Logger
}

// Option defines a functional option for configuring the service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		timezone:       time.Local,
		commandTimeout: 60 * time.Second,
	}
}

// WithRemote sets the git remote the vault syncs against.
func WithRemote(url string) Option {
	return func(o *options) {
		o.remoteURL = url
	}
}

// WithBranch pins the branch used when repairing a broken vault, instead
// of detecting the remote's default branch.
func WithBranch(branch string) Option {
	return func(o *options) {
		o.branch = branch
	}
}

// WithNotesDir overrides the subdirectory holding daily notes.
func WithNotesDir(dir string) Option {
	return func(o *options) {
		o.notesDir = dir
	}
}

// WithStateDir places the queue, checkpoint and lock files at dir.
// Defaults to a ".state" sibling of the vault so vault recovery can never
// discard pending items.
func WithStateDir(dir string) Option {
	return func(o *options) {
		o.stateDir = dir
	}
}

// WithTimezone sets the timezone that owns day bucketing.
func WithTimezone(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.timezone = loc
		}
	}
}

// WithInterval sets the period of the background sync worker.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithLockTimeout bounds how long queue operations wait for the
// cross-process lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithCommandTimeout bounds each git subprocess call.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *options) {
		o.commandTimeout = d
	}
}

// WithLogger sets the logger for all components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
