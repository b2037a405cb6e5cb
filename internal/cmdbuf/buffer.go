package cmdbuf

import (
	"sync"
	"sync/atomic"

	"github.com/nylonring/corert/internal/task"
)

// StatusKind is a command buffer's coarse completion state.
type StatusKind uint8

const (
	// StatusRunning means dispatch is still stepping through commands.
	StatusRunning StatusKind = iota
	// StatusCompleted means every command dispatched successfully.
	StatusCompleted
	// StatusAborted means the command at Index raised during dispatch;
	// already-spawned tasks still ran to completion.
	StatusAborted
)

// Status is a command buffer's point-in-time completion state.
type Status struct {
	Kind  StatusKind
	Index int // meaningful only when Kind == StatusAborted
}

// CommandBuffer is an immutable, compiled sequence of directives ready
// to dispatch into a WorkerGroup.
type CommandBuffer struct {
	commands []Command

	OnComplete func(Status)
	OnAbort    func(status Status)
	OnCleanup  func()
}

// Handle is the reference-counted completion handle a dispatched
// buffer returns (spec.md §4.D's CommandBufferHandle): it exposes the
// buffer's status and a join/block_on primitive for both foreign
// threads (mutex+condvar) and worker threads (parks on a pseudo-task
// through Context.WaitOn).
type Handle struct {
	refCount int32

	mu     sync.Mutex
	cond   *sync.Cond
	status Status

	// completion backs BlockOnCtx: a worker-thread caller parks on this
	// pseudo-task instead of blocking its own OS-thread-multiplexed
	// goroutine on the condvar, per spec.md §4.D's block_on rule.
	completion *task.PseudoTask
	mgr        *task.Manager
}

func newHandle(mgr *task.Manager) *Handle {
	h := &Handle{status: Status{Kind: StatusRunning}, mgr: mgr, completion: task.NewPseudoTask()}
	h.cond = sync.NewCond(&h.mu)
	if mgr != nil {
		_ = mgr.RegisterPseudoTask(h.completion)
	}
	return h
}

// AddRef increments the handle's reference count.
func (h *Handle) AddRef() { atomic.AddInt32(&h.refCount, 1) }

// Release decrements the reference count.
func (h *Handle) Release() { atomic.AddInt32(&h.refCount, -1) }

// RefCount returns the current reference count.
func (h *Handle) RefCount() int32 { return atomic.LoadInt32(&h.refCount) }

// Status returns the buffer's current completion state.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Handle) setStatus(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
	h.cond.Broadcast()
	if h.mgr != nil {
		h.mgr.NotifyAll(h.completion, task.WakeupToken{Kind: task.Delivered, Value: s})
	}
}

func (h *Handle) isDone() bool {
	return h.status.Kind == StatusCompleted || h.status.Kind == StatusAborted
}

// BlockOn is the foreign-thread join primitive: a standard
// mutex+condvar wait for completion, per spec.md §4.D.
func (h *Handle) BlockOn() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	for !h.isDone() {
		h.cond.Wait()
	}
	return h.status
}

// BlockOnCtx is the worker-thread join primitive: it parks the calling
// task on the handle's completion pseudo-task through Context.WaitOn.
// The calling task keeps its worker occupied while parked.
func (h *Handle) BlockOnCtx(ctx *task.Context) Status {
	if s := h.Status(); s.Kind != StatusRunning {
		return s
	}
	_, _ = ctx.WaitOn(h.completion, nil)
	return h.Status()
}
