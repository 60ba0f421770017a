package sync

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fyshx/kiroku/internal/fsx"
)

// Checkpoint records the CreatedAt of the most recently merged item in a
// single scalar file. It is advisory: external consumers use it to ask
// "what is new since X", queue correctness never depends on it.
type Checkpoint struct {
	path   string
	logger *slog.Logger
}

// NewCheckpoint creates a checkpoint persisted at path.
func NewCheckpoint(path string, logger *slog.Logger) *Checkpoint {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checkpoint{path: path, logger: logger}
}

// Last returns the stored timestamp. A missing or corrupt file yields the
// zero time.
func (c *Checkpoint) Last() time.Time {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("failed to read checkpoint", "path", c.path, "error", err)
		}
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		c.logger.Warn("checkpoint file is corrupt, ignoring", "path", c.path, "error", err)
		return time.Time{}
	}

	return t
}

// Advance persists t only if it is strictly greater than the stored value,
// keeping the checkpoint monotonically non-decreasing. The caller guards
// the read-compare-write with the drain lock.
func (c *Checkpoint) Advance(t time.Time) error {
	if !t.After(c.Last()) {
		return nil
	}

	data := []byte(t.UTC().Format(time.RFC3339Nano) + "\n")
	if err := fsx.WriteFileAtomic(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}

	return nil
}
