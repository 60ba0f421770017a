package sync

import (
	"context"
	"errors"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyshx/kiroku/pkg/core"
	"github.com/fyshx/kiroku/pkg/queue"
)

// fakeVault is an in-memory core.Vault with per-operation failure injection.
type fakeVault struct {
	mu   stdsync.Mutex
	docs map[core.DayKey]string

	initErr    error
	pullErr    error
	writeErr   error
	publishErr error

	// when set, the matching operation blocks until the channel closes
	pullGate    chan struct{}
	publishGate chan struct{}

	initCalls    int
	pullCalls    int
	publishCalls int
	commits      []string
}

func newFakeVault() *fakeVault {
	return &fakeVault{docs: make(map[core.DayKey]string)}
}

func (v *fakeVault) Initialize(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.initCalls++
	return v.initErr
}

func (v *fakeVault) Pull(ctx context.Context) error {
	v.mu.Lock()
	v.pullCalls++
	gate := v.pullGate
	err := v.pullErr
	v.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (v *fakeVault) ReadDay(ctx context.Context, day core.DayKey) (core.Document, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	content, ok := v.docs[day]
	if !ok {
		return core.Document{}, core.ErrNotFound
	}
	return core.Document{Day: day, Content: content}, nil
}

func (v *fakeVault) WriteDay(ctx context.Context, doc core.Document) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.writeErr != nil {
		return v.writeErr
	}
	v.docs[doc.Day] = doc.Content
	return nil
}

func (v *fakeVault) Publish(ctx context.Context, reason string) error {
	v.mu.Lock()
	v.publishCalls++
	gate := v.publishGate
	err := v.publishErr
	v.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.commits = append(v.commits, reason)
	v.mu.Unlock()
	return nil
}

func (v *fakeVault) doc(day core.DayKey) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.docs[day]
}

var _ core.Vault = (*fakeVault)(nil)

type harness struct {
	syncer     *Syncer
	queue      *queue.Queue
	vault      *fakeVault
	checkpoint *Checkpoint
	queuePath  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	queuePath := filepath.Join(dir, "pending_items.json")

	q := queue.New(queue.Config{Path: queuePath})
	v := newFakeVault()
	c := NewCheckpoint(filepath.Join(dir, "checkpoint"), nil)

	s, err := New(Config{Queue: q, Vault: v, Checkpoint: c, Timezone: jst})
	require.NoError(t, err)

	return &harness{syncer: s, queue: q, vault: v, checkpoint: c, queuePath: queuePath}
}

func (h *harness) enqueue(t *testing.T, item core.Item) {
	t.Helper()
	require.NoError(t, h.queue.Enqueue(context.Background(), item))
}

func (h *harness) pending(t *testing.T) int {
	t.Helper()
	n, err := h.queue.Pending(context.Background())
	require.NoError(t, err)
	return n
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Vault: newFakeVault()})
	assert.Error(t, err)
	_, err = New(Config{Queue: queue.New(queue.Config{Path: "q.json"})})
	assert.Error(t, err)
}

func TestRunCycle_MergesAndPublishes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, jst)
	t2 := time.Date(2024, 1, 1, 11, 0, 0, 0, jst)
	h.enqueue(t, core.Item{ID: "a", Content: "morning memo", CreatedAt: t1})
	h.enqueue(t, core.Item{ID: "b", Content: "a clip", Category: "## WebClips", CreatedAt: t2})

	require.NoError(t, h.syncer.RunCycle(ctx))

	doc := h.vault.doc("2024-01-01")
	assert.Contains(t, doc, "# 2024-01-01", "skeleton is created for a fresh day")
	assert.Contains(t, doc, "## Memo\n- 10:00\n\t- morning memo")
	assert.Contains(t, doc, "## WebClips\n- 11:00\n\t- a clip")

	assert.Equal(t, 0, h.pending(t), "queue is drained after a successful merge")
	assert.True(t, h.checkpoint.Last().Equal(t2), "checkpoint advances to the newest merged item")

	require.Len(t, h.vault.commits, 1)
	assert.Equal(t, "chore(sync): merge 2 items into 2024-01-01", h.vault.commits[0])
}

func TestRunCycle_EmptyQueueTouchesNothing(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.syncer.RunCycle(context.Background()))

	assert.Equal(t, 0, h.vault.initCalls)
	assert.Equal(t, 0, h.vault.pullCalls)
	assert.Equal(t, 0, h.vault.publishCalls)
}

func TestRunCycle_PullFailureLeavesQueueUntouched(t *testing.T) {
	h := newHarness(t)
	h.vault.pullErr = errors.New("remote unreachable")

	h.enqueue(t, core.Item{ID: "a", Content: "x", CreatedAt: time.Now()})

	err := h.syncer.RunCycle(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, h.pending(t), "items survive a failed pull")
	assert.Empty(t, h.vault.docs)
	assert.Equal(t, 0, h.vault.publishCalls)
}

func TestRunCycle_WriteFailureRequeuesItems(t *testing.T) {
	h := newHarness(t)
	h.vault.writeErr = errors.New("disk full")

	h.enqueue(t, core.Item{ID: "a", Content: "x", CreatedAt: time.Now()})
	h.enqueue(t, core.Item{ID: "b", Content: "y", CreatedAt: time.Now()})

	err := h.syncer.RunCycle(context.Background())
	require.Error(t, err)

	assert.Equal(t, 2, h.pending(t), "drained items return to the queue on merge failure")
	assert.True(t, h.checkpoint.Last().IsZero(), "checkpoint must not advance past unmerged items")
	assert.Equal(t, 0, h.vault.publishCalls)
}

func TestRunCycle_PublishFailureDoesNotRequeue(t *testing.T) {
	h := newHarness(t)
	h.vault.publishErr = errors.New("push rejected")

	h.enqueue(t, core.Item{ID: "a", Content: "x", CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, jst)})

	err := h.syncer.RunCycle(context.Background())
	require.Error(t, err)

	// The merge landed in the working tree; re-merging the items on the next
	// cycle would duplicate them. Only the publish is retried.
	assert.Equal(t, 0, h.pending(t))
	assert.Contains(t, h.vault.doc("2024-01-01"), "- 10:00")
}

func TestRunCycle_RetriesFailedPublishOnNextCycle(t *testing.T) {
	h := newHarness(t)
	h.vault.publishErr = errors.New("push rejected")
	ctx := context.Background()

	h.enqueue(t, core.Item{ID: "a", Content: "x", CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, jst)})

	require.Error(t, h.syncer.RunCycle(ctx))
	assert.Equal(t, 0, h.pending(t))
	assert.True(t, h.syncer.State().(SyncerState).PendingPublish)

	// The remote recovers. The next cycle finds an empty queue but must
	// still push the stranded commit.
	h.vault.mu.Lock()
	h.vault.publishErr = nil
	h.vault.mu.Unlock()

	require.NoError(t, h.syncer.RunCycle(ctx))
	h.vault.mu.Lock()
	calls := h.vault.publishCalls
	h.vault.mu.Unlock()
	assert.Equal(t, 2, calls, "empty-queue cycle must retry the publish")
	assert.False(t, h.syncer.State().(SyncerState).PendingPublish)

	// Once the push went through, empty cycles go back to touching nothing.
	require.NoError(t, h.syncer.RunCycle(ctx))
	h.vault.mu.Lock()
	calls = h.vault.publishCalls
	h.vault.mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestRunCycle_EnqueueSucceedsDuringSlowPublish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gate := make(chan struct{})
	h.vault.publishGate = gate
	h.enqueue(t, core.Item{ID: "a", Content: "x", CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, jst)})

	done := make(chan error, 1)
	go func() {
		done <- h.syncer.RunCycle(ctx)
	}()

	require.Eventually(t, func() bool {
		h.vault.mu.Lock()
		defer h.vault.mu.Unlock()
		return h.vault.publishCalls == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The drain lock is released before the push starts, so a producer with
	// a short lock wait gets through while the push is still in flight.
	producer := queue.New(queue.Config{Path: h.queuePath, LockTimeout: 500 * time.Millisecond})
	require.NoError(t, producer.Enqueue(ctx, core.Item{ID: "b", Content: "y", CreatedAt: time.Now()}))

	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, 1, h.pending(t), "the new item waits for the next cycle")
	assert.Contains(t, h.vault.doc("2024-01-01"), "- 10:00\n\t- x")
}

func TestRunCycle_SplitsItemsAcrossDays(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Both UTC timestamps fall on Jan 1 in UTC; in JST the second is Jan 2.
	h.enqueue(t, core.Item{ID: "a", Content: "late night", CreatedAt: time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC)})
	h.enqueue(t, core.Item{ID: "b", Content: "past midnight", CreatedAt: time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)})

	require.NoError(t, h.syncer.RunCycle(ctx))

	assert.Contains(t, h.vault.doc("2024-01-01"), "late night")
	assert.Contains(t, h.vault.doc("2024-01-02"), "past midnight")
	require.Len(t, h.vault.commits, 1)
	assert.Equal(t, "chore(sync): merge 2 items into 2024-01-01, 2024-01-02", h.vault.commits[0])
}

func TestRunCycle_AppendsToExistingNote(t *testing.T) {
	h := newHarness(t)
	h.vault.docs["2024-01-01"] = "# 2024-01-01\n\n## Memo\n- 09:00\n\t- already there\n"

	h.enqueue(t, core.Item{ID: "a", Content: "new one", CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, jst)})

	require.NoError(t, h.syncer.RunCycle(context.Background()))

	doc := h.vault.doc("2024-01-01")
	assert.Contains(t, doc, "\t- already there\n- 10:00\n\t- new one")
}

func TestRunCycle_SkipsWhenAlreadyRunning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gate := make(chan struct{})
	h.vault.pullGate = gate
	h.enqueue(t, core.Item{ID: "a", Content: "x", CreatedAt: time.Now()})

	first := make(chan error, 1)
	go func() {
		first <- h.syncer.RunCycle(ctx)
	}()

	// Wait for the first cycle to reach the blocked pull.
	require.Eventually(t, func() bool {
		h.vault.mu.Lock()
		defer h.vault.mu.Unlock()
		return h.vault.pullCalls == 1
	}, 2*time.Second, 10*time.Millisecond)

	err := h.syncer.RunCycle(ctx)
	assert.ErrorIs(t, err, core.ErrCycleInFlight)

	close(gate)
	require.NoError(t, <-first)
}
