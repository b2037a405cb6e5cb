package task

import (
	"container/heap"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nylonring/corert/internal/errs"
)

func waitForWaiters(t *testing.T, m *Manager, p *PseudoTask, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		got := len(p.waiters)
		m.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d waiters on pseudo-task", n)
}

// TestPriorityWakeupOrder implements spec.md §8 scenario 2: T1(prio=1),
// T2(prio=5), T3(prio=3) all wait on P; notify_all must dispatch them
// in descending-priority order T2, T3, T1.
func TestPriorityWakeupOrder(t *testing.T) {
	mgr := NewManager(NewStackAllocator(8, 4096))
	wg := NewWorkerGroup(mgr, 3)
	wg.Start()
	defer wg.Shutdown()

	p := NewPseudoTask()
	require.NoError(t, mgr.RegisterPseudoTask(p))

	var mu sync.Mutex
	var order []string

	record := func(name string) EntryFunc {
		return func(ctx *Context) any {
			_, err := ctx.WaitOn(p, nil)
			require.NoError(t, err)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	h1 := mgr.Register("T1", record("T1"), RegisterOpts{Priority: 1})
	h2 := mgr.Register("T2", record("T2"), RegisterOpts{Priority: 5})
	h3 := mgr.Register("T3", record("T3"), RegisterOpts{Priority: 3})
	wg.Wake()
	_ = h1
	_ = h2
	_ = h3

	waitForWaiters(t, mgr, p, 3)

	n := mgr.NotifyAll(p, WakeupToken{Kind: Delivered})
	assert.Equal(t, 3, n)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := len(order) == 3
		mu.Unlock()
		if done || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	assert.Equal(t, []string{"T2", "T3", "T1"}, order)
}

// TestWaitOnCompletedTaskSkipped covers "waiting on an already-completed
// task writes Skipped to the out address and returns immediately".
func TestWaitOnCompletedTaskSkipped(t *testing.T) {
	mgr := NewManager(NewStackAllocator(4, 4096))
	wg := NewWorkerGroup(mgr, 2)
	wg.Start()
	defer wg.Shutdown()

	doneC := make(chan struct{})
	h := mgr.Register("done-fast", func(ctx *Context) any {
		close(doneC)
		return nil
	}, RegisterOpts{Priority: 1})
	wg.Wake()
	<-doneC
	// give the completion bookkeeping a moment to run under the lock.
	time.Sleep(20 * time.Millisecond)

	task, ok := mgr.lookup(h)
	require.True(t, ok)

	waiterDone := make(chan WakeupToken, 1)
	mgr.Register("waiter", func(ctx *Context) any {
		tok, err := ctx.WaitOn(task.self, nil)
		require.NoError(t, err)
		waiterDone <- tok
		return nil
	}, RegisterOpts{Priority: 1})
	wg.Wake()

	select {
	case tok := <-waiterDone:
		assert.Equal(t, Skipped, tok.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never resumed")
	}
}

// TestSelfWaitRejected covers "self-wait rejected with InvalidArgument".
func TestSelfWaitRejected(t *testing.T) {
	mgr := NewManager(NewStackAllocator(4, 4096))
	wg := NewWorkerGroup(mgr, 1)
	wg.Start()
	defer wg.Shutdown()

	errC := make(chan error, 1)
	mgr.Register("self-waiter", func(ctx *Context) any {
		_, err := ctx.WaitOn(ctx.Self(), nil)
		errC <- err
		return nil
	}, RegisterOpts{Priority: 1})
	wg.Wake()

	select {
	case err := <-errC:
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.InvalidArgument))
	case <-time.After(2 * time.Second):
		t.Fatal("self-wait never returned")
	}
}

// TestDuplicateWaitRejected covers "waiting twice on the same target is
// rejected".
func TestDuplicateWaitRejected(t *testing.T) {
	mgr := NewManager(NewStackAllocator(4, 4096))
	p := NewPseudoTask()

	holder := &Task{self: p, deps: map[*PseudoTask]struct{}{}}
	holder.deps[p] = struct{}{} // simulate already parked on p

	_, err := mgr.waitTaskOn(holder, p, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.AlreadyExists))
}

// TestPseudoTaskRegistrationCardinality covers the round-trip law:
// register then unregister leaves the table cardinality unchanged.
func TestPseudoTaskRegistrationCardinality(t *testing.T) {
	mgr := NewManager(NewStackAllocator(2, 4096))
	before := mgr.PseudoTaskCount()

	p := NewPseudoTask()
	require.NoError(t, mgr.RegisterPseudoTask(p))
	require.NoError(t, mgr.UnregisterPseudoTask(p))

	assert.Equal(t, before, mgr.PseudoTaskCount())
}

// TestUnregisterWithWaitersFails covers "P is unregisterable iff
// P.waiters.is_empty()".
func TestUnregisterWithWaitersFails(t *testing.T) {
	mgr := NewManager(NewStackAllocator(4, 4096))
	p := NewPseudoTask()
	require.NoError(t, mgr.RegisterPseudoTask(p))

	wg := NewWorkerGroup(mgr, 1)
	wg.Start()
	defer wg.Shutdown()

	mgr.Register("parked", func(ctx *Context) any {
		_, _ = ctx.WaitOn(p, nil)
		return nil
	}, RegisterOpts{Priority: 1})
	wg.Wake()

	waitForWaiters(t, mgr, p, 1)

	err := mgr.UnregisterPseudoTask(p)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.FailedPrecondition))

	mgr.NotifyAll(p, WakeupToken{Kind: Delivered})
}

// TestNotifyFilterStopRetainsRemaining covers notify_filter's Stop
// semantics: traversal halts and untouched waiters stay parked.
func TestNotifyFilterStopRetainsRemaining(t *testing.T) {
	mgr := NewManager(NewStackAllocator(8, 4096))
	p := NewPseudoTask()

	mkWaiter := func(prio int) *Task {
		tk := newTask(Handle{}, "w", prio, -1, 0, nil)
		return tk
	}
	a := mkWaiter(3)
	b := mkWaiter(2)
	c := mkWaiter(1)
	for i, w := range []*Task{a, b, c} {
		mgr.seq++
		heap.Push(&p.waiters, &waiterEntry{task: w, insertSeq: mgr.seq + uint64(i)})
	}

	notified, remaining := mgr.NotifyFilter(p, func(any) FilterResult {
		return Stop
	}, func() WakeupToken { return WakeupToken{Kind: Delivered} })

	assert.Equal(t, 0, notified)
	assert.Equal(t, 3, remaining)
}
