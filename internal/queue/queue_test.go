package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmahlen/docdex/pkg/types"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeRunner records runs, fails on demand, and can hold tasks on a gate
// to keep them in flight.
type fakeRunner struct {
	mu       sync.Mutex
	runs     []types.IndexTask
	failures map[int64]int // remaining failures per document id
	gate     chan struct{}

	active  int32
	maxSeen int32
}

func (r *fakeRunner) Run(ctx context.Context, task types.IndexTask) error {
	active := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		seen := atomic.LoadInt32(&r.maxSeen)
		if active <= seen || atomic.CompareAndSwapInt32(&r.maxSeen, seen, active) {
			break
		}
	}

	r.mu.Lock()
	r.runs = append(r.runs, task)
	fail := false
	if r.failures[task.DocumentID] > 0 {
		r.failures[task.DocumentID]--
		fail = true
	}
	gate := r.gate
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errors.New("run failed")
	}
	return nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *fakeRunner) order() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, len(r.runs))
	for i, t := range r.runs {
		ids[i] = t.DocumentID
	}
	return ids
}

func (r *fakeRunner) attempts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.runs))
	for i, t := range r.runs {
		out[i] = t.Attempt
	}
	return out
}

type statusCall struct {
	documentID int64
	status     types.IndexStatus
	msg        string
}

type fakeStatusStore struct {
	mu    sync.Mutex
	calls []statusCall
}

func (s *fakeStatusStore) SetIndexStatus(_ context.Context, documentID int64, status types.IndexStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statusCall{documentID, status, msg})
	return nil
}

func (s *fakeStatusStore) sequence(documentID int64) []types.IndexStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.IndexStatus
	for _, c := range s.calls {
		if c.documentID == documentID {
			out = append(out, c.status)
		}
	}
	return out
}

func (s *fakeStatusStore) last(documentID int64) (statusCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].documentID == documentID {
			return s.calls[i], true
		}
	}
	return statusCall{}, false
}

func startQueue(t *testing.T, runner Runner, status StatusStore, cfg Config) *Queue {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 20 * time.Millisecond
	}
	q := New(runner, status, cfg, nil)
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(func() { _ = q.Stop() })
	return q
}

func qtask(documentID int64, priority int) types.IndexTask {
	return types.IndexTask{
		DocumentID: documentID,
		Title:      "doc",
		Content:    "body",
		Priority:   priority,
	}
}

// enqueue submits a task that must not error and returns whether it was
// admitted.
func enqueue(t *testing.T, q *Queue, task types.IndexTask) bool {
	t.Helper()
	admitted, err := q.Enqueue(task)
	require.NoError(t, err)
	return admitted
}

func TestEnqueueRunsTask(t *testing.T) {
	runner := &fakeRunner{}
	status := &fakeStatusStore{}
	q := startQueue(t, runner, status, Config{})

	require.True(t, enqueue(t, q, qtask(1, DefaultPriority)))

	require.Eventually(t, func() bool { return runner.count() == 1 }, waitFor, tick)
	require.Eventually(t, func() bool {
		last, ok := status.last(1)
		return ok && last.status == types.StatusCompleted
	}, waitFor, tick)

	assert.Equal(t, []types.IndexStatus{
		types.StatusPending,
		types.StatusProcessing,
		types.StatusCompleted,
	}, status.sequence(1))
}

func TestDedupExactlyOneRun(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{gate: gate}
	status := &fakeStatusStore{}
	q := startQueue(t, runner, status, Config{})

	require.True(t, enqueue(t, q, qtask(1, DefaultPriority)))
	require.Eventually(t, func() bool { return runner.count() == 1 }, waitFor, tick)

	// Same document while processing: both dropped.
	assert.False(t, enqueue(t, q, qtask(1, DefaultPriority)))
	assert.False(t, enqueue(t, q, qtask(1, 1)))
	close(gate)

	require.Eventually(t, func() bool {
		last, ok := status.last(1)
		return ok && last.status == types.StatusCompleted
	}, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, runner.count(), "duplicate enqueues must not run")

	// After completion the hold is released and the document runs again.
	require.True(t, enqueue(t, q, qtask(1, DefaultPriority)))
	require.Eventually(t, func() bool { return runner.count() == 2 }, waitFor, tick)
}

func TestPriorityOrderWithFIFOTies(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{gate: gate}
	q := startQueue(t, runner, &fakeStatusStore{}, Config{Concurrency: 1})

	// Occupy the single worker so the rest stack up in the heap.
	require.True(t, enqueue(t, q, qtask(99, 5)))
	require.Eventually(t, func() bool { return runner.count() == 1 }, waitFor, tick)

	require.True(t, enqueue(t, q, qtask(10, 10)))
	require.True(t, enqueue(t, q, qtask(11, 1)))
	require.True(t, enqueue(t, q, qtask(12, 10)))
	require.Eventually(t, func() bool {
		st, err := q.Status()
		return err == nil && st.QueueLength == 3
	}, waitFor, tick)

	close(gate)
	require.Eventually(t, func() bool { return runner.count() == 4 }, waitFor, tick)

	assert.Equal(t, []int64{99, 11, 10, 12}, runner.order())
}

func TestConcurrencyBound(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{gate: gate}
	q := startQueue(t, runner, &fakeStatusStore{}, Config{Concurrency: 2})

	for id := int64(1); id <= 5; id++ {
		require.True(t, enqueue(t, q, qtask(id, DefaultPriority)))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.active) == 2
	}, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, runner.count(), "only the concurrency limit may be in flight")

	close(gate)
	require.Eventually(t, func() bool { return runner.count() == 5 }, waitFor, tick)
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.maxSeen), int32(2))
}

func TestRetryThenSucceed(t *testing.T) {
	runner := &fakeRunner{failures: map[int64]int{7: 1}}
	status := &fakeStatusStore{}
	q := startQueue(t, runner, status, Config{MaxRetries: 3})

	require.True(t, enqueue(t, q, qtask(7, DefaultPriority)))

	require.Eventually(t, func() bool { return runner.count() == 2 }, waitFor, tick)
	require.Eventually(t, func() bool {
		last, ok := status.last(7)
		return ok && last.status == types.StatusCompleted
	}, waitFor, tick)

	assert.Equal(t, []int{0, 1}, runner.attempts())
	assert.Equal(t, []types.IndexStatus{
		types.StatusPending,
		types.StatusProcessing,
		types.StatusPending, // waiting out the retry delay
		types.StatusProcessing,
		types.StatusCompleted,
	}, status.sequence(7))
}

func TestRetriesExhaustedMarksFailed(t *testing.T) {
	runner := &fakeRunner{failures: map[int64]int{7: 100}}
	status := &fakeStatusStore{}
	q := startQueue(t, runner, status, Config{MaxRetries: 2})

	require.True(t, enqueue(t, q, qtask(7, DefaultPriority)))

	require.Eventually(t, func() bool {
		last, ok := status.last(7)
		return ok && last.status == types.StatusFailed
	}, waitFor, tick)

	assert.Equal(t, 3, runner.count(), "initial run plus two retries")
	last, _ := status.last(7)
	assert.Equal(t, "run failed", last.msg)

	// A poisoned document must not block others.
	require.True(t, enqueue(t, q, qtask(8, DefaultPriority)))
	require.Eventually(t, func() bool {
		l, ok := status.last(8)
		return ok && l.status == types.StatusCompleted
	}, waitFor, tick)
}

func TestDedupHeldThroughRetryDelay(t *testing.T) {
	runner := &fakeRunner{failures: map[int64]int{7: 1}}
	q := startQueue(t, runner, &fakeStatusStore{}, Config{MaxRetries: 3, RetryDelay: 100 * time.Millisecond})

	require.True(t, enqueue(t, q, qtask(7, DefaultPriority)))
	require.Eventually(t, func() bool { return runner.count() == 1 }, waitFor, tick)

	// The document is waiting out its retry delay; a new enqueue is dropped.
	assert.False(t, enqueue(t, q, qtask(7, DefaultPriority)))

	require.Eventually(t, func() bool { return runner.count() == 2 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, runner.count(), "held document must not run a third time")
}

func TestStatusSnapshot(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{gate: gate}
	q := startQueue(t, runner, &fakeStatusStore{}, Config{Concurrency: 1})

	require.True(t, enqueue(t, q, qtask(1, 5)))
	require.Eventually(t, func() bool { return runner.count() == 1 }, waitFor, tick)

	require.True(t, enqueue(t, q, qtask(2, 5)))
	require.True(t, enqueue(t, q, qtask(3, 1)))

	var st Status
	require.Eventually(t, func() bool {
		var err error
		st, err = q.Status()
		return err == nil && st.QueueLength == 2
	}, waitFor, tick)

	assert.Equal(t, 1, st.ProcessingCount)
	assert.Equal(t, []int64{1}, st.ProcessingIDs)
	require.Len(t, st.QueuedTasks, 2)
	assert.Equal(t, int64(3), st.QueuedTasks[0].DocumentID, "lowest priority value first")
	assert.Equal(t, int64(2), st.QueuedTasks[1].DocumentID)
	assert.Equal(t, "doc", st.QueuedTasks[0].Title)

	close(gate)
	require.Eventually(t, func() bool { return runner.count() == 3 }, waitFor, tick)
}

func TestEnqueueValidation(t *testing.T) {
	q := startQueue(t, &fakeRunner{}, &fakeStatusStore{}, Config{})

	_, err := q.Enqueue(types.IndexTask{DocumentID: 0})
	assert.ErrorIs(t, err, types.ErrInvalidDocumentID)
}

func TestLifecycle(t *testing.T) {
	q := New(&fakeRunner{}, &fakeStatusStore{}, Config{}, nil)

	// Not started yet.
	_, err := q.Enqueue(qtask(1, DefaultPriority))
	assert.ErrorIs(t, err, ErrNotRunning)
	_, err = q.Status()
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, q.Start(context.Background()))
	require.NoError(t, q.Start(context.Background()), "second start is a no-op")

	require.NoError(t, q.Stop())
	require.NoError(t, q.Stop(), "second stop is a no-op")

	_, err = q.Enqueue(qtask(1, DefaultPriority))
	assert.ErrorIs(t, err, ErrNotRunning)
	err = q.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestParentContextCancelUnblocksCallers(t *testing.T) {
	q := New(&fakeRunner{}, &fakeStatusStore{}, Config{PollInterval: 5 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Start(ctx))

	// Cancel the parent context without calling Stop. Enqueue and Status
	// must fail fast once the scheduler has exited, not block waiting for
	// a Stop that never came.
	cancel()
	require.Eventually(t, func() bool {
		_, err := q.Enqueue(qtask(1, DefaultPriority))
		return errors.Is(err, ErrNotRunning)
	}, waitFor, tick)

	_, err := q.Status()
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, q.Stop(), "stop after external cancel is a no-op")
}

func TestStopCancelsInFlightTask(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{gate: gate}
	status := &fakeStatusStore{}
	q := New(runner, status, Config{PollInterval: 5 * time.Millisecond}, nil)
	require.NoError(t, q.Start(context.Background()))

	require.True(t, enqueue(t, q, qtask(1, DefaultPriority)))
	require.Eventually(t, func() bool { return runner.count() == 1 }, waitFor, tick)

	require.NoError(t, q.Stop())
	assert.Equal(t, int32(0), atomic.LoadInt32(&runner.active), "worker released by cancellation")
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)

	noRetries := Config{MaxRetries: -1, Concurrency: 4}.withDefaults()
	assert.Equal(t, 0, noRetries.MaxRetries, "negative disables retries")
	assert.Equal(t, 4, noRetries.Concurrency)
}

func TestTaskHeapOrdering(t *testing.T) {
	base := time.Now()
	var h taskHeap
	push := func(id int64, priority int, at time.Time, seq uint64) {
		heap.Push(&h, &item{task: types.IndexTask{DocumentID: id, Priority: priority, EnqueuedAt: at}, seq: seq})
	}

	push(1, 10, base, 1)
	push(2, 1, base.Add(time.Second), 2)
	push(3, 10, base.Add(-time.Second), 3)
	push(4, 10, base, 4) // same priority and time as 1, later admission

	var got []int64
	for h.Len() > 0 {
		got = append(got, heap.Pop(&h).(*item).task.DocumentID)
	}
	assert.Equal(t, []int64{2, 3, 1, 4}, got)
}
