package kiroku

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyshx/kiroku/pkg/core"
	"github.com/fyshx/kiroku/pkg/queue"
	"github.com/fyshx/kiroku/pkg/sync"
	"github.com/fyshx/kiroku/pkg/vault"
)

// QueueFileName is the durable queue file inside the state directory.
const QueueFileName = "pending_items.json"

// CheckpointFileName records the timestamp of the last merged item.
const CheckpointFileName = "checkpoint"

// Service bundles the queue, the vault and the syncer behind one handle.
type Service struct {
	queue      *queue.Queue
	vault      *vault.Vault
	syncer     *sync.Syncer
	checkpoint *sync.Checkpoint

	queuePath string
	interval  time.Duration
	logger    *slog.Logger
}

// New wires a service for the vault at vaultPath. The state directory is
// created eagerly; the vault itself is cloned or repaired lazily, at the
// start of the first synchronization cycle.
func New(vaultPath string, opts ...Option) (*Service, error) {
	if vaultPath == "" {
		return nil, fmt.Errorf("vault path cannot be empty")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	stateDir := o.stateDir
	if stateDir == "" {
		stateDir = strings.TrimSuffix(vaultPath, string(os.PathSeparator)) + ".state"
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	queuePath := filepath.Join(stateDir, QueueFileName)

	q := queue.New(queue.Config{
		Path:        queuePath,
		LockTimeout: o.lockTimeout,
		Logger:      logger,
	})

	v := vault.New(vault.Config{
		Path:           vaultPath,
		RemoteURL:      o.remoteURL,
		Branch:         o.branch,
		NotesDir:       o.notesDir,
		SystemDir:      systemDirWithin(vaultPath, stateDir),
		CommandTimeout: o.commandTimeout,
		Logger:         logger,
	})

	cp := sync.NewCheckpoint(filepath.Join(stateDir, CheckpointFileName), logger)

	syncer, err := sync.New(sync.Config{
		Queue:      q,
		Vault:      v,
		Checkpoint: cp,
		Timezone:   o.timezone,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		queue:      q,
		vault:      v,
		syncer:     syncer,
		checkpoint: cp,
		queuePath:  queuePath,
		interval:   o.interval,
		logger:     logger,
	}, nil
}

// Enqueue buffers a content item for the next synchronization cycle,
// filling in an ID and creation time when the producer left them empty.
// Returns the item as persisted. Idempotent on ID.
func (s *Service) Enqueue(ctx context.Context, item core.Item) (core.Item, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	if err := s.queue.Enqueue(ctx, item); err != nil {
		return core.Item{}, err
	}
	return item, nil
}

// ReadDay returns the full text of one day's note, or core.ErrNotFound.
func (s *Service) ReadDay(ctx context.Context, day string) (string, error) {
	key, err := core.ParseDayKey(day)
	if err != nil {
		return "", fmt.Errorf("invalid day %q: %w", day, err)
	}

	doc, err := s.vault.ReadDay(ctx, key)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// Days lists the days that have a note, ascending.
func (s *Service) Days(ctx context.Context) ([]core.DayKey, error) {
	return s.vault.ListDays(ctx)
}

// SyncOnce runs a single synchronization cycle.
func (s *Service) SyncOnce(ctx context.Context) error {
	return s.syncer.RunCycle(ctx)
}

// Worker builds the periodic background worker. The caller owns its
// lifecycle (Start/Stop).
func (s *Service) Worker() *sync.Worker {
	return sync.NewWorker(sync.WorkerConfig{
		Syncer:    s.syncer,
		Interval:  s.interval,
		QueuePath: s.queuePath,
		Logger:    s.logger,
	})
}

// Syncer exposes the syncer for observability.
func (s *Service) Syncer() *sync.Syncer {
	return s.syncer
}

// LastMerged returns the checkpoint: the creation time of the most
// recently merged item, or the zero time when nothing was merged yet.
func (s *Service) LastMerged() time.Time {
	return s.checkpoint.Last()
}

// systemDirWithin returns the first path segment of stateDir relative to
// vaultPath when the state lives inside the vault, so the vault can keep
// it out of version control and recovery. Empty otherwise.
func systemDirWithin(vaultPath, stateDir string) string {
	rel, err := filepath.Rel(vaultPath, stateDir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return parts[0]
}
