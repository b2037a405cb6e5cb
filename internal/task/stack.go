package task

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/nylonring/corert/internal/errs"
)

// runRequest is handed to a parked slot goroutine to resume it.
type runRequest struct {
	fn   func()
	done chan struct{}
}

// TaskSlot is the Go realization of spec.md §4.D's per-task stack: a
// pooled, parked goroutine rather than raw stack memory. A goroutine
// blocked on resumeC's receive already is a stackful coroutine in the
// Go runtime's model — the Go scheduler grows/shrinks its stack and
// multiplexes it onto OS threads for us, which is exactly the M:N
// behaviour the spec's StackAllocator exists to provide by hand.
type TaskSlot struct {
	sizeClass int
	resumeC   chan runRequest
}

func newTaskSlot(sizeClass int) *TaskSlot {
	s := &TaskSlot{sizeClass: sizeClass, resumeC: make(chan runRequest)}
	go func() {
		for req := range s.resumeC {
			req.fn()
			close(req.done)
		}
	}()
	return s
}

// run hands fn to the slot's parked goroutine and blocks until fn
// returns — the "context switch" onto the task's stack and back.
func (s *TaskSlot) run(fn func()) {
	done := make(chan struct{})
	s.resumeC <- runRequest{fn: fn, done: done}
	<-done
}

// StackAllocator pools TaskSlots behind a bounded semaphore: requesting
// a stack when the pool is at capacity and no slot is free returns
// ResourceExhausted, the Go analogue of "stack pool empty and growth
// refused" (spec.md §4.D Failure semantics).
type StackAllocator struct {
	sem      *semaphore.Weighted
	mu       sync.Mutex
	free     []*TaskSlot // LRU free list; back of slice is most-recently-released
	defaultN int
}

// NewStackAllocator builds an allocator that permits at most maxSlots
// live TaskSlots at once.
func NewStackAllocator(maxSlots int, defaultStackBytes int) *StackAllocator {
	return &StackAllocator{
		sem:      semaphore.NewWeighted(int64(maxSlots)),
		defaultN: defaultStackBytes,
	}
}

// Acquire returns a slot sized at least minBytes, reusing a free one
// if available or growing the pool if under its cap.
func (a *StackAllocator) Acquire(minBytes int) (*TaskSlot, error) {
	if minBytes <= 0 {
		minBytes = a.defaultN
	}
	a.mu.Lock()
	var tooSmall *TaskSlot
	if n := len(a.free); n > 0 {
		s := a.free[n-1]
		a.free = a.free[:n-1]
		if s.sizeClass >= minBytes {
			a.mu.Unlock()
			return s, nil
		}
		tooSmall = s
	}
	a.mu.Unlock()
	if tooSmall != nil {
		// too small to satisfy this request: release its permit back,
		// stop its parked goroutine, and fall through to grow a fresh,
		// larger slot instead.
		a.sem.Release(1)
		close(tooSmall.resumeC)
	}
	if !a.sem.TryAcquire(1) {
		return nil, errs.E("task.StackAllocator.Acquire", errs.ResourceExhausted, nil)
	}
	return newTaskSlot(minBytes), nil
}

// Release returns a slot to the free list for reuse; its stack
// contents (whatever state its goroutine closure captured) are
// considered discarded — the next Acquire hands it a brand new fn.
func (a *StackAllocator) Release(s *TaskSlot) {
	a.mu.Lock()
	a.free = append(a.free, s)
	a.mu.Unlock()
}

// AcquireCtx blocks until a slot becomes available, used by callers
// that would rather wait than fail fast (the worker loop's normal
// path, as opposed to an explicit non-blocking stack request).
func (a *StackAllocator) AcquireCtx(ctx context.Context, minBytes int) (*TaskSlot, error) {
	if minBytes <= 0 {
		minBytes = a.defaultN
	}
	a.mu.Lock()
	if n := len(a.free); n > 0 {
		s := a.free[n-1]
		a.free = a.free[:n-1]
		a.mu.Unlock()
		return s, nil
	}
	a.mu.Unlock()
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, errs.E("task.StackAllocator.AcquireCtx", errs.Unavailable, err)
	}
	return newTaskSlot(minBytes), nil
}
