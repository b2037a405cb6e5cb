package task

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WorkerGroup is a fixed set of workers driving a Manager's run-queue:
// each worker loop acquires the manager's lock briefly to pick a
// runnable task, releases it, executes the task on a pooled goroutine
// (its "private context stack") until the task's entry function
// returns, then reacquires the lock only to process the outcome. A
// task parked in Context.WaitOn does not release its worker: the
// worker stays occupied until that task is woken and completes.
type WorkerGroup struct {
	mgr    *Manager
	n      int
	wakeUp chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	g       *errgroup.Group
}

// NewWorkerGroup builds a group of n workers over mgr, idle until
// Start is called.
func NewWorkerGroup(mgr *Manager, n int) *WorkerGroup {
	return &WorkerGroup{mgr: mgr, n: n, wakeUp: make(chan struct{}, 1)}
}

// NumWorkers returns the configured worker count.
func (w *WorkerGroup) NumWorkers() int { return w.n }

// Start launches the worker loops; it is idempotent while running.
func (w *WorkerGroup) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	w.cancel = cancel
	w.g = g
	w.running = true
	for i := 0; i < w.n; i++ {
		id := i
		g.Go(func() error {
			w.loop(gctx, id)
			return nil
		})
	}
}

// Shutdown signals every worker to stop after its current task
// finishes and waits for the barrier, using errgroup the way the
// teacher's own concurrent components wait on worker completion.
func (w *WorkerGroup) Shutdown() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	g := w.g
	w.running = false
	w.mu.Unlock()

	cancel()
	w.Wake()
	_ = g.Wait()
}

// Wake nudges idle workers to re-check the run-queue (used after an
// external Register/Unblock/notify so a worker need not busy-poll).
func (w *WorkerGroup) Wake() {
	select {
	case w.wakeUp <- struct{}{}:
	default:
	}
}

func (w *WorkerGroup) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		t, ok := w.mgr.Dispatch(workerID)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-w.wakeUp:
				continue
			}
		}
		// Pass the nudge on so another idle worker checks for more work.
		w.Wake()
		w.execute(t)
	}
}

func (w *WorkerGroup) execute(t *Task) {
	slot, err := w.mgr.stacks.Acquire(t.MinStackBytes)
	if err != nil {
		w.mgr.complete(t, nil, nil)
		return
	}
	defer w.mgr.stacks.Release(slot)

	ctx := &Context{mgr: w.mgr, task: t}
	var result any
	var panicked any
	slot.run(func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = r
			}
		}()
		result = t.entry(ctx)
	})
	w.mgr.complete(t, result, panicked)
}
