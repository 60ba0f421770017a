// Package queue implements the durable buffer between content producers and
// the merge cycle.
//
// The queue is a single JSON file guarded by a cross-process lock file.
// Producers only ever call Enqueue; the synchronization cycle holds the lock
// for the whole drain, so enqueues issued during a drain block and land in
// the next cycle.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fyshx/kiroku/internal/fsx"
	"github.com/fyshx/kiroku/pkg/core"
)

// DefaultLockTimeout bounds how long callers wait for the queue lock before
// failing soft.
const DefaultLockTimeout = 10 * time.Second

// Config holds the configuration for the on-disk queue.
type Config struct {
	// Path is the queue file, e.g. "<state>/pending_items.json".
	Path string

	// LockTimeout overrides DefaultLockTimeout when positive.
	LockTimeout time.Duration

	Logger *slog.Logger
}

// Queue is a durable, lock-guarded, append/drain queue of content items.
type Queue struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
	logger      *slog.Logger
}

// New creates a queue persisted at cfg.Path. The lock file lives next to it.
func New(cfg Config) *Queue {
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{
		path:        cfg.Path,
		lockPath:    cfg.Path + ".lock",
		lockTimeout: timeout,
		logger:      logger,
	}
}

// Lock acquires the queue's cross-process lock with a bounded wait.
// The synchronization cycle holds it across drain, merge and checkpoint.
func (q *Queue) Lock(ctx context.Context) (func(), error) {
	return acquireLock(ctx, q.lockPath, q.lockTimeout)
}

// Enqueue appends an item to the durable queue. If an item with the same ID
// already exists the call is a no-op: producers deliver at least once, the
// queue keeps exactly one.
func (q *Queue) Enqueue(ctx context.Context, item core.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item has no ID")
	}

	unlock, err := q.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire queue lock: %w", err)
	}
	defer unlock()

	items := q.load()
	for _, existing := range items {
		if existing.ID == item.ID {
			q.logger.Debug("duplicate item ignored", "id", item.ID)
			return nil
		}
	}

	items = append(items, item)
	if err := q.store(items); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}

	q.logger.Debug("item enqueued", "id", item.ID, "pending", len(items))
	return nil
}

// DrainAll returns the full list of pending items and atomically replaces
// the on-disk queue with an empty one.
//
// NOTE: it does NOT acquire the lock itself. The caller must hold it via
// Lock() for the whole read-and-clear, or concurrent enqueues may be lost.
func (q *Queue) DrainAll(ctx context.Context) ([]core.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := q.load()
	if len(items) == 0 {
		return nil, nil
	}

	if err := q.store([]core.Item{}); err != nil {
		return nil, fmt.Errorf("failed to clear queue: %w", err)
	}

	return items, nil
}

// Requeue writes items back after a failed merge. Items enqueued since the
// drain win on ID collision, mirroring Enqueue's first-wins rule.
//
// The caller must hold the lock, same as DrainAll.
func (q *Queue) Requeue(ctx context.Context, items []core.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	current := q.load()
	seen := make(map[string]bool, len(current))
	for _, it := range current {
		seen[it.ID] = true
	}

	for _, it := range items {
		if !seen[it.ID] {
			current = append(current, it)
		}
	}

	if err := q.store(current); err != nil {
		return fmt.Errorf("failed to restore queue: %w", err)
	}

	q.logger.Warn("items returned to queue after failed merge", "count", len(items))
	return nil
}

// Pending reports the number of undelivered items.
func (q *Queue) Pending(ctx context.Context) (int, error) {
	unlock, err := q.Lock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire queue lock: %w", err)
	}
	defer unlock()

	return len(q.load()), nil
}

// load reads the queue file. A missing file is an empty queue; a corrupt
// file is treated as empty too, with the loss logged rather than made fatal.
func (q *Queue) load() []core.Item {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if !os.IsNotExist(err) {
			q.logger.Warn("failed to read queue file, treating as empty", "path", q.path, "error", err)
		}
		return nil
	}

	var items []core.Item
	if err := json.Unmarshal(data, &items); err != nil {
		q.logger.Warn("queue file is corrupt, discarding contents", "path", q.path, "error", err)
		return nil
	}

	return items
}

func (q *Queue) store(items []core.Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(q.path, data, 0644)
}

var _ core.ItemQueue = (*Queue)(nil)
