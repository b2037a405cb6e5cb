package cmdbuf

import (
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/task"
)

// Executor dispatches compiled CommandBuffers against a task manager
// and worker group.
type Executor struct {
	mgr *task.Manager
	wg  *task.WorkerGroup
}

// NewExecutor builds an Executor bound to the given scheduler.
func NewExecutor(mgr *task.Manager, wg *task.WorkerGroup) *Executor {
	return &Executor{mgr: mgr, wg: wg}
}

// Dispatch begins executing cb and returns immediately with its
// completion handle; a coordinator goroutine steps through commands in
// order exactly as spec.md §4.D describes — a cursor advanced by a
// coordinator, pinning context carried across SpawnTask commands,
// aborting at the first command that raises without cancelling
// already-spawned tasks.
func (e *Executor) Dispatch(cb *CommandBuffer) *Handle {
	h := newHandle(e.mgr)
	h.AddRef()
	go e.run(cb, h)
	return h
}

func (e *Executor) run(cb *CommandBuffer, h *Handle) {
	defer func() {
		if cb.OnCleanup != nil {
			cb.OnCleanup()
		}
	}()

	var spawned []task.Handle
	spawnedAt := map[task.Handle]int{} // command index each handle was spawned at
	pinned := false
	pinnedWorker := 0
	minStack := 0

	abort := func(i int) {
		status := Status{Kind: StatusAborted, Index: i}
		h.setStatus(status)
		if cb.OnAbort != nil {
			cb.OnAbort(status)
		}
	}

	for i, c := range cb.commands {
		switch c.Kind {
		case SpawnTask:
			th := e.mgr.Register(c.Task.Name, c.Task.Entry, task.RegisterOpts{
				Priority:      c.Task.Prio,
				Pinned:        pinned,
				PinnedWorker:  pinnedWorker,
				MinStackBytes: minStack,
			})
			spawned = append(spawned, th)
			spawnedAt[th] = i
			e.wg.Wake()

		case Barrier:
			if failed, err := e.joinAll(spawned); err != nil {
				abort(spawnedAt[failed])
				return
			}

		case WaitBuffer:
			if c.WaitHandle == nil {
				abort(i)
				return
			}
			st := c.WaitHandle.BlockOn()
			if st.Kind == StatusAborted {
				abort(i)
				return
			}

		case SetWorker:
			pinned = true
			pinnedWorker = c.WorkerID

		case EnableAllWorkers:
			pinned = false

		case SetStackSize:
			minStack = c.MinStackBytes
		}
	}

	if failed, err := e.joinAll(spawned); err != nil {
		abort(spawnedAt[failed])
		return
	}

	status := Status{Kind: StatusCompleted}
	h.setStatus(status)
	if cb.OnComplete != nil {
		cb.OnComplete(status)
	}
}

// joinAll blocks until every handle in hs has reached Completed,
// returning the first one whose task panicked instead of completing
// normally — Barrier's "wait until all previously spawned tasks in
// this buffer have completed".
func (e *Executor) joinAll(hs []task.Handle) (failed task.Handle, err error) {
	for _, th := range hs {
		_, ok, joinErr := e.mgr.Join(th)
		if joinErr != nil {
			return th, joinErr
		}
		if !ok {
			return th, errs.E("cmdbuf.Barrier", errs.Internal, nil)
		}
	}
	return task.Handle{}, nil
}
