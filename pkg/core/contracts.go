package core

import "context"

// ItemQueue defines the contract for the durable buffer between producers
// and the merge cycle. Adhering to this interface keeps the syncer
// independent of the on-disk queue format.
type ItemQueue interface {
	// Enqueue appends an item unless one with the same ID already exists,
	// in which case it is a no-op. Safe for many concurrent producers.
	Enqueue(ctx context.Context, item Item) error

	// Lock acquires the queue's cross-process lock with a bounded wait and
	// returns the release function. DrainAll and Requeue are only valid
	// while the lock is held.
	Lock(ctx context.Context) (func(), error)

	// DrainAll returns every pending item and atomically clears the queue.
	// The caller must hold the lock.
	DrainAll(ctx context.Context) ([]Item, error)

	// Requeue writes items back after a failed merge so they are retried on
	// the next cycle. The caller must hold the lock.
	Requeue(ctx context.Context, items []Item) error

	// Pending reports the number of undelivered items.
	Pending(ctx context.Context) (int, error)
}

// Vault defines the contract for the version-controlled document tree.
type Vault interface {
	// Initialize ensures the vault directory is a valid working copy of the
	// remote, cloning or repairing it as needed.
	Initialize(ctx context.Context) error

	// Pull integrates remote history, fast-forward only.
	Pull(ctx context.Context) error

	// ReadDay returns the full text of one day's note, or ErrNotFound.
	ReadDay(ctx context.Context, day DayKey) (Document, error)

	// WriteDay persists one day's note to the working tree.
	WriteDay(ctx context.Context, doc Document) error

	// Publish stages, commits and pushes local modifications. A commit is
	// only produced when the working tree actually changed.
	Publish(ctx context.Context, reason string) error
}
