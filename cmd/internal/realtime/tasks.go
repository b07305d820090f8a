package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// TaskRunner executes detached best-effort work (message persistence) off the
// request path. Failures are logged, never surfaced to the submitting
// connection. The queue is bounded; when it is full the task is dropped with a
// log line rather than blocking a read loop.
type TaskRunner struct {
	log  *slog.Logger
	jobs chan task

	ctx    context.Context
	cancel context.CancelFunc

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// NewTaskRunner starts `workers` goroutines draining a queue of `queue` tasks.
func NewTaskRunner(log *slog.Logger, workers, queue int) *TaskRunner {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &TaskRunner{
		log:    log,
		jobs:   make(chan task, queue),
		ctx:    ctx,
		cancel: cancel,
	}

	t.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go t.worker()
	}
	return t
}

func (t *TaskRunner) worker() {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		case job := <-t.jobs:
			if err := job.fn(t.ctx); err != nil {
				t.log.Warn("task.fail", "task", job.name, "err", err)
			}
		}
	}
}

// Submit enqueues fn without blocking. A full queue drops the task (logged).
func (t *TaskRunner) Submit(name string, fn func(ctx context.Context) error) {
	if t == nil || fn == nil {
		return
	}

	select {
	case <-t.ctx.Done():
		return
	default:
	}

	select {
	case t.jobs <- task{name: name, fn: fn}:
	default:
		t.log.Warn("task.queue.full", "task", name)
	}
}

// Close stops the workers. In-flight tasks finish; queued tasks are abandoned.
func (t *TaskRunner) Close() {
	if t == nil {
		return
	}
	t.closeOnce.Do(func() {
		t.cancel()
		t.wg.Wait()
	})
}
