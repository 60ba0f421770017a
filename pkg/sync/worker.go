package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/fyshx/kiroku/pkg/core"
)

const (
	// DefaultInterval is the fixed period between synchronization cycles.
	DefaultInterval = 3 * time.Minute

	// defaultDebounce coalesces queue-file bursts into one early cycle.
	defaultDebounce = 2 * time.Second
)

// WorkerConfig holds the configuration for the periodic sync worker.
type WorkerConfig struct {
	Syncer *Syncer

	// Interval between scheduled cycles. Defaults to DefaultInterval.
	Interval time.Duration

	// QueuePath, when set, is watched so a fresh enqueue wakes the worker
	// ahead of the next tick.
	QueuePath string

	Logger *slog.Logger
}

// Worker drives synchronization cycles on a fixed interval, optionally
// woken early by changes to the queue file. A cycle that fails with a
// transient error is retried on the next tick; a fatal one stops the
// worker.
type Worker struct {
	*worker.BaseWorker
	syncer    *Syncer
	interval  time.Duration
	debounce  time.Duration
	queuePath string
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
	cancel    context.CancelFunc
}

// NewWorker creates the periodic worker. Call Start to begin scheduling.
func NewWorker(cfg WorkerConfig) *Worker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		BaseWorker: worker.NewBaseWorker("sync-worker"),
		syncer:     cfg.Syncer,
		interval:   interval,
		debounce:   defaultDebounce,
		queuePath:  cfg.QueuePath,
		logger:     logger,
	}
}

// Start launches the scheduling loop.
func (w *Worker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("sync worker already started (status: %s)", status)
	}

	if w.queuePath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create queue watcher: %w", err)
		}
		// Watch the directory: atomic writes land via rename, which only
		// the parent directory observes reliably.
		if err := watcher.Add(filepath.Dir(w.queuePath)); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch queue directory: %w", err)
		}
		w.watcher = watcher
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

// Stop requests shutdown and waits for the loop to exit.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

// State reports the worker's lifecycle state.
func (w *Worker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// run is the scheduling loop.
func (w *Worker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("sync worker panic: %v", recovered)
			if w.logger.Enabled(ctx, slog.LevelDebug) {
				w.logger.Error("sync worker panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.logger.Error("sync worker panic", "error", err)
			}
		}
	}()

	if w.watcher != nil {
		defer w.watcher.Close()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := w.runCycle(ctx); err != nil {
				return err
			}

		case <-debounceC:
			debounceC = nil
			if err := w.runCycle(ctx); err != nil {
				return err
			}

		case event, ok := <-w.events():
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("queue watcher events channel closed")
			}
			if !w.isQueueEvent(event) {
				continue
			}
			if debounceC == nil {
				debounceC = time.After(w.debounce)
			}

		case wErr, ok := <-w.errors():
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("queue watcher errors channel closed")
			}
			w.logger.Error("queue watcher error", "error", wErr)
		}
	}
}

// runCycle executes one cycle, containing everything but fatal failures.
func (w *Worker) runCycle(ctx context.Context) error {
	err := w.syncer.RunCycle(ctx)
	switch {
	case err == nil:
		return nil
	case err == core.ErrCycleInFlight:
		w.logger.Debug("cycle already in flight, skipping tick")
		return nil
	case core.Classify(err) == core.SeverityFatal:
		w.logger.Error("fatal sync failure, stopping worker", "error", err)
		return err
	default:
		w.logger.Warn("sync cycle failed, will retry", "error", err)
		return nil
	}
}

// events returns the watcher channel, or a nil (forever-blocking) channel
// when watching is disabled.
func (w *Worker) events() <-chan fsnotify.Event {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Events
}

func (w *Worker) errors() <-chan error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Errors
}

func (w *Worker) isQueueEvent(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.queuePath) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
