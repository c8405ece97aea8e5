package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pmahlen/docdex/internal/docstore"
	"github.com/pmahlen/docdex/pkg/types"
)

// Defaults for queue configuration.
const (
	DefaultConcurrency  = 2
	DefaultPollInterval = 1 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 5 * time.Second
	DefaultPriority     = 10
)

// ErrNotRunning is returned when the queue is used outside its
// Start..Stop window.
var ErrNotRunning = errors.New("queue is not running")

// Runner executes one indexing task.
type Runner interface {
	Run(ctx context.Context, task types.IndexTask) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, task types.IndexTask) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, task types.IndexTask) error {
	return f(ctx, task)
}

// StatusStore records per-document index status transitions.
// docstore.Store satisfies it.
type StatusStore interface {
	SetIndexStatus(ctx context.Context, documentID int64, status types.IndexStatus, indexError string) error
}

// Config contains configuration for the queue.
type Config struct {
	Concurrency  int           // max in-flight tasks (default 2)
	PollInterval time.Duration // scheduler tick (default 1s)
	MaxRetries   int           // whole-task re-runs after a failure (default 3, negative disables)
	RetryDelay   time.Duration // fixed wait before a retry (default 5s)
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	} else if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// Status is the queue introspection view.
type Status struct {
	QueueLength     int              `json:"queue_length"`
	ProcessingCount int              `json:"processing_count"`
	QueuedTasks     []types.TaskInfo `json:"queued_tasks"`
	ProcessingIDs   []int64          `json:"processing_document_ids"`
}

// delayedTask is a failed task waiting out its retry delay.
type delayedTask struct {
	task  types.IndexTask
	runAt time.Time
}

// taskDone is a worker's completion report.
type taskDone struct {
	task types.IndexTask
	err  error
}

// enqueueReq carries a task to the scheduler; reply receives true when
// the task was admitted, false when a task for the document is already
// held.
type enqueueReq struct {
	task  types.IndexTask
	reply chan bool
}

// lifecycle states
const (
	stateNew = iota
	stateRunning
	stateStopped
)

// Queue schedules document-indexing tasks: priority ordered, deduplicated
// per document, executed by a fixed-size worker pool with bounded
// whole-task retry.
//
// All scheduling state (pending heap, dedup set, in-flight map, retry
// holds) is owned by a single scheduler goroutine; the public methods and
// the workers communicate with it exclusively through channels.
type Queue struct {
	runner Runner
	status StatusStore
	cfg    Config
	logger *slog.Logger

	enqueueCh chan enqueueReq
	workCh    chan types.IndexTask
	doneCh    chan taskDone
	statusCh  chan chan Status

	mu      sync.Mutex
	state   int
	cancel  context.CancelFunc
	runErr  error         // errgroup result, set before stopped closes
	stopped chan struct{} // closed once the scheduler and workers have exited
}

// New creates a queue. Tasks run through runner; status transitions land
// in status.
func New(runner Runner, status StatusStore, cfg Config, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	return &Queue{
		runner:    runner,
		status:    status,
		cfg:       cfg,
		logger:    logger,
		enqueueCh: make(chan enqueueReq),
		workCh:    make(chan types.IndexTask, cfg.Concurrency),
		doneCh:    make(chan taskDone),
		statusCh:  make(chan chan Status),
		stopped:   make(chan struct{}),
	}
}

// Start launches the scheduler and the worker pool. It returns
// immediately; Stop shuts everything down.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == stateRunning {
		return nil
	}
	if q.state == stateStopped {
		return fmt.Errorf("start: %w", ErrNotRunning)
	}
	q.state = stateRunning

	ctx, q.cancel = context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return q.schedule(ctx) })
	for i := 0; i < q.cfg.Concurrency; i++ {
		g.Go(func() error { return q.worker(ctx) })
	}

	// Whether shutdown comes from Stop or from the parent context, the
	// queue rejects callers as soon as the scheduler is gone.
	go func() {
		err := g.Wait()
		q.mu.Lock()
		q.state = stateStopped
		q.runErr = err
		q.mu.Unlock()
		close(q.stopped)
		q.logger.Info("queue stopped")
	}()

	q.logger.Info("queue started",
		"concurrency", q.cfg.Concurrency,
		"max_retries", q.cfg.MaxRetries,
		"retry_delay", q.cfg.RetryDelay)
	return nil
}

// Stop cancels the scheduler and workers and waits for them to exit.
// Queued tasks are discarded; an in-flight task observes its context
// being canceled.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if q.cancel == nil {
		q.state = stateStopped
		q.mu.Unlock()
		return nil
	}
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	<-q.stopped

	q.mu.Lock()
	err := q.runErr
	q.mu.Unlock()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Enqueue submits a task and reports whether it was admitted. A task for
// a document that is already pending, awaiting retry, or processing is
// dropped (admitted false), so at most one task per document is ever in
// flight.
func (q *Queue) Enqueue(task types.IndexTask) (bool, error) {
	if err := task.Validate(); err != nil {
		return false, fmt.Errorf("enqueue: %w", err)
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	running := q.state == stateRunning
	q.mu.Unlock()
	if !running {
		return false, fmt.Errorf("enqueue document %d: %w", task.DocumentID, ErrNotRunning)
	}

	req := enqueueReq{task: task, reply: make(chan bool, 1)}
	select {
	case q.enqueueCh <- req:
		return <-req.reply, nil
	case <-q.stopped:
		return false, fmt.Errorf("enqueue document %d: %w", task.DocumentID, ErrNotRunning)
	}
}

// Status reports the queue's current state: pending tasks in dispatch
// order and the documents being processed right now.
func (q *Queue) Status() (Status, error) {
	q.mu.Lock()
	running := q.state == stateRunning
	q.mu.Unlock()
	if !running {
		return Status{}, ErrNotRunning
	}

	resp := make(chan Status, 1)
	select {
	case q.statusCh <- resp:
		return <-resp, nil
	case <-q.stopped:
		return Status{}, ErrNotRunning
	}
}

// schedule is the scheduler loop. It owns every piece of queue state and
// reacts to enqueues, completion reports, status requests, and the poll
// tick that promotes delayed retries.
func (q *Queue) schedule(ctx context.Context) error {
	var (
		pending    taskHeap
		delayed    []delayedTask
		held       = make(map[int64]bool) // document ids pending, delayed, or processing
		processing = make(map[int64]bool)
		seq        uint64
	)

	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()

	dispatch := func() {
		for len(processing) < q.cfg.Concurrency && pending.Len() > 0 {
			it := heap.Pop(&pending).(*item)
			processing[it.task.DocumentID] = true
			q.setStatus(ctx, it.task.DocumentID, types.StatusProcessing, "")
			q.workCh <- it.task
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req := <-q.enqueueCh:
			task := req.task
			if held[task.DocumentID] {
				req.reply <- false
				q.logger.Debug("duplicate task dropped", "document_id", task.DocumentID)
				continue
			}
			req.reply <- true
			held[task.DocumentID] = true
			seq++
			heap.Push(&pending, &item{task: task, seq: seq})
			q.setStatus(ctx, task.DocumentID, types.StatusPending, "")
			q.logger.Debug("task enqueued",
				"document_id", task.DocumentID,
				"priority", task.Priority,
				"queue_length", pending.Len())
			dispatch()

		case done := <-q.doneCh:
			id := done.task.DocumentID
			delete(processing, id)

			switch {
			case done.err == nil:
				delete(held, id)
				q.setStatus(ctx, id, types.StatusCompleted, "")
				q.logger.Info("task completed",
					"document_id", id,
					"attempt", done.task.Attempt)

			case done.task.Attempt < q.cfg.MaxRetries:
				retry := done.task
				retry.Attempt++
				delayed = append(delayed, delayedTask{
					task:  retry,
					runAt: time.Now().Add(q.cfg.RetryDelay),
				})
				q.setStatus(ctx, id, types.StatusPending, "")
				q.logger.Warn("task failed, will retry",
					"document_id", id,
					"attempt", retry.Attempt,
					"max_retries", q.cfg.MaxRetries,
					"error", done.err)

			default:
				delete(held, id)
				q.setStatus(ctx, id, types.StatusFailed, done.err.Error())
				q.logger.Error("task failed permanently",
					"document_id", id,
					"attempts", done.task.Attempt+1,
					"error", done.err)
			}
			dispatch()

		case resp := <-q.statusCh:
			resp <- snapshot(pending, delayed, processing)

		case now := <-ticker.C:
			if len(delayed) > 0 {
				var still []delayedTask
				for _, d := range delayed {
					if d.runAt.After(now) {
						still = append(still, d)
						continue
					}
					seq++
					heap.Push(&pending, &item{task: d.task, seq: seq})
				}
				delayed = still
			}
			dispatch()
		}
	}
}

// worker pulls dispatched tasks and reports each outcome back to the
// scheduler.
func (q *Queue) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-q.workCh:
			err := q.runner.Run(ctx, task)
			select {
			case q.doneCh <- taskDone{task: task, err: err}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// setStatus records a document status transition. A missing row is fine:
// the first indexing run creates the document mid-task.
func (q *Queue) setStatus(ctx context.Context, documentID int64, status types.IndexStatus, msg string) {
	err := q.status.SetIndexStatus(ctx, documentID, status, msg)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) && !errors.Is(err, context.Canceled) {
		q.logger.Warn("status update failed",
			"document_id", documentID,
			"status", status,
			"error", err)
	}
}

// snapshot builds the introspection view from the scheduler's state.
func snapshot(pending taskHeap, delayed []delayedTask, processing map[int64]bool) Status {
	tasks := make([]types.TaskInfo, 0, pending.Len()+len(delayed))
	for _, it := range pending {
		tasks = append(tasks, taskInfo(it.task))
	}
	for _, d := range delayed {
		tasks = append(tasks, taskInfo(d.task))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority < tasks[j].Priority
		}
		return tasks[i].EnqueuedAt.Before(tasks[j].EnqueuedAt)
	})

	ids := make([]int64, 0, len(processing))
	for id := range processing {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return Status{
		QueueLength:     len(tasks),
		ProcessingCount: len(ids),
		QueuedTasks:     tasks,
		ProcessingIDs:   ids,
	}
}

func taskInfo(t types.IndexTask) types.TaskInfo {
	return types.TaskInfo{
		DocumentID: t.DocumentID,
		Title:      t.Title,
		Priority:   t.Priority,
		EnqueuedAt: t.EnqueuedAt,
		Attempt:    t.Attempt,
	}
}
