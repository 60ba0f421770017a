package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fyshx/kiroku/pkg/core"
	"github.com/fyshx/kiroku/pkg/note"
)

// Config holds the collaborators of the synchronization cycle.
type Config struct {
	Queue      core.ItemQueue
	Vault      core.Vault
	Checkpoint *Checkpoint

	// Timezone owns the day bucketing. Defaults to time.Local.
	Timezone *time.Location

	Logger *slog.Logger
}

// Syncer runs synchronization cycles. Only one cycle may be in flight at a
// time; re-entrant invocations are skipped, not queued, so a slow git
// operation never builds an unbounded backlog.
type Syncer struct {
	queue      core.ItemQueue
	vault      core.Vault
	checkpoint *Checkpoint
	loc        *time.Location
	logger     *slog.Logger

	running        atomic.Bool
	cycles         atomic.Uint64
	failures       atomic.Uint64
	pendingPublish atomic.Bool

	mu      sync.Mutex
	lastRun time.Time
}

// New creates a Syncer.
func New(cfg Config) (*Syncer, error) {
	if cfg.Queue == nil {
		return nil, errors.New("syncer requires a queue")
	}
	if cfg.Vault == nil {
		return nil, errors.New("syncer requires a vault")
	}

	loc := cfg.Timezone
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	checkpoint := cfg.Checkpoint

	return &Syncer{
		queue:      cfg.Queue,
		vault:      cfg.Vault,
		checkpoint: checkpoint,
		loc:        loc,
		logger:     logger,
	}, nil
}

// RunCycle executes one synchronization cycle. It returns
// core.ErrCycleInFlight when a cycle is already running. All other failures
// are contained to this cycle and retried on the next tick, except those
// classified core.SeverityFatal.
func (s *Syncer) RunCycle(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return core.ErrCycleInFlight
	}
	defer s.running.Store(false)

	err := s.cycle(ctx)

	s.cycles.Add(1)
	if err != nil {
		s.failures.Add(1)
	}
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	return err
}

func (s *Syncer) cycle(ctx context.Context) error {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect queue: %w", err)
	}
	if pending == 0 {
		if !s.pendingPublish.Load() {
			s.logger.Debug("queue empty, nothing to sync")
			return nil
		}
		// A previous cycle merged and committed but failed to push. The
		// commit sits in local history; retry the publish even though the
		// queue has nothing new.
		s.logger.Info("queue empty, retrying unpushed publish")
		if err := s.vault.Initialize(ctx); err != nil {
			return err
		}
		return s.publish(ctx, "")
	}

	if err := s.vault.Initialize(ctx); err != nil {
		return err
	}

	// Pull before draining: if the remote cannot be integrated the queue
	// stays untouched and the cycle retries later.
	if err := s.vault.Pull(ctx); err != nil {
		return err
	}

	items, buckets, err := s.drainAndMerge(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	if err := s.publish(ctx, commitMessage(len(items), sortedDays(buckets))); err != nil {
		return err
	}

	s.logger.Info("cycle completed", "items", len(items), "days", len(buckets))
	return nil
}

// drainAndMerge runs the lock-guarded half of the cycle: drain the queue,
// merge every bucket into its note, advance the checkpoint. The lock is
// released when it returns, before the network-bound publish, so producers
// only ever wait on local file work.
func (s *Syncer) drainAndMerge(ctx context.Context) ([]core.Item, map[core.DayKey][]core.Item, error) {
	unlock, err := s.queue.Lock(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	items, err := s.queue.DrainAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to drain queue: %w", err)
	}
	if len(items) == 0 {
		return nil, nil, nil
	}

	s.logger.Info("merging queued items", "count", len(items))

	buckets := Aggregate(items, s.loc)
	if err := s.merge(ctx, buckets); err != nil {
		// The drain lock is still held, so drained items can be written
		// back for the next cycle without racing producers.
		if rqErr := s.queue.Requeue(ctx, items); rqErr != nil {
			s.logger.Error("failed to requeue items after merge failure", "error", rqErr)
		}
		return nil, nil, err
	}

	if s.checkpoint != nil {
		var latest time.Time
		for _, item := range items {
			if item.CreatedAt.After(latest) {
				latest = item.CreatedAt
			}
		}
		// Best-effort: the checkpoint is advisory.
		if err := s.checkpoint.Advance(latest); err != nil {
			s.logger.Warn("failed to advance checkpoint", "error", err)
		}
	}

	return items, buckets, nil
}

// publish commits and pushes, remembering a failure so the next cycle
// retries the push even when the queue stays empty. Merged content is
// already on disk by the time this runs, so nothing is lost either way.
func (s *Syncer) publish(ctx context.Context, msg string) error {
	if err := s.vault.Publish(ctx, msg); err != nil {
		s.pendingPublish.Store(true)
		return err
	}
	s.pendingPublish.Store(false)
	return nil
}

// merge applies each day bucket to that day's note, creating a skeleton
// when the day has no document yet. One read and one write per affected
// day; days with zero items are never touched.
func (s *Syncer) merge(ctx context.Context, buckets map[core.DayKey][]core.Item) error {
	for _, day := range sortedDays(buckets) {
		doc, err := s.vault.ReadDay(ctx, day)
		if errors.Is(err, core.ErrNotFound) {
			doc = core.Document{Day: day, Content: note.Skeleton(day)}
		} else if err != nil {
			return err
		}

		text := doc.Content
		for _, item := range buckets[day] {
			heading := note.TargetHeading(item)
			if !note.IsCanonical(heading) {
				s.logger.Warn("unknown section heading, appending at end of note",
					"heading", heading, "item", item.ID)
			}
			text = note.ApplySection(text, note.FormatItem(item, s.loc), heading)
		}

		if err := s.vault.WriteDay(ctx, core.Document{Day: day, Content: text}); err != nil {
			return err
		}
	}

	return nil
}

// commitMessage builds a conventional commit message for one cycle.
func commitMessage(items int, days []core.DayKey) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}

	noun := "items"
	if items == 1 {
		noun = "item"
	}

	return fmt.Sprintf("chore(sync): merge %d %s into %s", items, noun, strings.Join(names, ", "))
}
