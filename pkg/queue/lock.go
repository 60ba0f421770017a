package queue

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fyshx/kiroku/pkg/core"
)

const lockRetryInterval = 10 * time.Millisecond

// acquireLock takes a file-based lock shared across processes. It spins
// with backoff until the lock is acquired, the context is cancelled, or the
// timeout elapses, and returns the release function.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)

	for {
		// Try to create the lock file atomically.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(path)
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		// Lock exists, wait and retry.
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held for over %s", core.ErrLockTimeout, path, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
