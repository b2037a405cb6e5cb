package task

import (
	"container/heap"
	"sync"

	"github.com/nylonring/corert/internal/errs"
)

type taskArenaSlot struct {
	occupied bool
	gen      uint32
	t        *Task
}

// Manager is the scheduler's single lock-protected state: the task
// arena (handle table with free-list and generation bump), the
// pseudo-task registry, and the priority run-queue — spec.md §4.D's
// TaskManager. The lock is held only across bookkeeping mutations,
// never while a task's entry function is executing.
type Manager struct {
	mu sync.Mutex

	slots []taskArenaSlot
	free  []uint32
	seq   uint64

	runQ runHeap

	// pinnedQ holds, per worker ID, the tasks pinned to that worker —
	// routed here at enqueue time so a pinned task is only ever visible
	// to its own worker's Dispatch call. This is how a pinned task
	// "remains at the head until its worker becomes free" without any
	// worker busy-spinning a pop/re-push cycle on it.
	pinnedQ map[int]*runHeap

	pseudoTasks map[*PseudoTask]struct{}

	stacks *StackAllocator
}

// NewManager constructs an empty Manager backed by the given stack
// allocator (shared with any WorkerGroup dispatching its tasks).
func NewManager(stacks *StackAllocator) *Manager {
	return &Manager{
		pinnedQ:     make(map[int]*runHeap),
		pseudoTasks: make(map[*PseudoTask]struct{}),
		stacks:      stacks,
	}
}

func (m *Manager) allocSlot() Handle {
	if n := len(m.free); n > 0 {
		idx := m.free[n-1]
		m.free = m.free[:n-1]
		m.slots[idx].occupied = true
		return Handle{index: idx, generation: m.slots[idx].gen}
	}
	idx := uint32(len(m.slots))
	// Generations start at 1 so that no live task has the zero Handle.
	m.slots = append(m.slots, taskArenaSlot{occupied: true, gen: 1})
	return Handle{index: idx, generation: 1}
}

func (m *Manager) lookup(h Handle) (*Task, bool) {
	if int(h.index) >= len(m.slots) {
		return nil, false
	}
	s := &m.slots[h.index]
	if !s.occupied || s.gen != h.generation {
		return nil, false
	}
	return s.t, true
}

// RegisterOpts controls how a freshly registered task is placed.
type RegisterOpts struct {
	Priority int
	// Pinned and PinnedWorker together select a specific worker; a
	// bare int field can't distinguish "worker 0" from "unset", hence
	// the separate flag.
	Pinned        bool
	PinnedWorker  int
	MinStackBytes int
	StartBlocked  bool // Blocked/Idle instead of Runnable/Idle
}

// Register adds a new task (spec.md §4.D "Register" transition): with
// no initial dependencies it goes Runnable/Idle and is enqueued;
// StartBlocked instead places it Blocked/Idle pending an explicit
// Unblock.
func (m *Manager) Register(name string, entry EntryFunc, opts RegisterOpts) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.allocSlot()
	pinned := -1
	if opts.Pinned {
		pinned = opts.PinnedWorker
	}
	t := newTask(h, name, opts.Priority, pinned, opts.MinStackBytes, entry)
	t.scheduleStatus = Processing
	m.slots[h.index].t = t

	if opts.StartBlocked {
		t.scheduleStatus = Blocked
		return h
	}
	t.scheduleStatus = Runnable
	m.enqueueLocked(t)
	return h
}

func (m *Manager) enqueueLocked(t *Task) {
	if t.inQueue {
		return
	}
	t.inQueue = true
	m.seq++
	if t.PinnedWorker >= 0 {
		pq, ok := m.pinnedQ[t.PinnedWorker]
		if !ok {
			pq = &runHeap{}
			m.pinnedQ[t.PinnedWorker] = pq
		}
		heap.Push(pq, &runEntry{task: t, insertSeq: m.seq})
		return
	}
	heap.Push(&m.runQ, &runEntry{task: t, insertSeq: m.seq})
}

// Dispatch pops the highest-priority runnable task for workerID,
// transitioning it to Runnable/Running, or reports false if nothing is
// runnable for it. A task pinned to workerID is only ever enqueued
// into that worker's own queue (see enqueueLocked), so a pinned task
// is invisible to every other worker's Dispatch call — no other
// worker ever pops it, re-pushes it, or spins on it.
func (m *Manager) Dispatch(workerID int) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pq, ok := m.pinnedQ[workerID]; ok && pq.Len() > 0 {
		e := heap.Pop(pq).(*runEntry)
		t := e.task
		t.inQueue = false
		t.processing = true
		t.runStatus = Running
		return t, true
	}
	if m.runQ.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&m.runQ).(*runEntry)
	t := e.task
	t.inQueue = false
	t.processing = true
	t.runStatus = Running
	return t, true
}

// Unblock moves a Blocked/Idle task back to Runnable/Idle (or leaves
// it Waiting if it still has outstanding dependencies).
func (m *Manager) Unblock(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookup(h)
	if !ok {
		return errs.E("task.Unblock", errs.NotFound, nil)
	}
	if t.scheduleStatus != Blocked {
		return errs.E("task.Unblock", errs.FailedPrecondition, nil)
	}
	if len(t.deps) > 0 {
		t.scheduleStatus = Waiting
		return nil
	}
	t.scheduleStatus = Runnable
	m.enqueueLocked(t)
	return nil
}

// complete is called by the worker loop once a task's entry function
// has returned (normally or via a recovered panic).
func (m *Manager) complete(t *Task, result any, panicPayload any) {
	m.mu.Lock()
	t.processing = false
	t.runStatus = Completed
	t.result = result
	if panicPayload != nil {
		t.isPanicking = true
		t.panicPayload = panicPayload
	}
	t.scheduleStatus = Runnable // terminal; retained only for inspection
	self := t.self
	kind := Delivered
	if t.isPanicking {
		kind = Aborted
	}
	m.notifyAllLocked(self, WakeupToken{Kind: kind, Value: panicPayload})
	close(t.completeWaitC)
	m.mu.Unlock()
}

// Join blocks the calling goroutine until h's task completes,
// returning its result (or the panic payload, with ok=false).
func (m *Manager) Join(h Handle) (result any, ok bool, err error) {
	m.mu.Lock()
	t, found := m.lookup(h)
	m.mu.Unlock()
	if !found {
		return nil, false, errs.E("task.Join", errs.NotFound, nil)
	}
	<-t.completeWaitC
	if t.isPanicking {
		return t.panicPayload, false, nil
	}
	return t.result, true, nil
}

// Unregister removes a Completed task's slot, bumping its generation.
func (m *Manager) Unregister(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookup(h)
	if !ok {
		return errs.E("task.Unregister", errs.NotFound, nil)
	}
	if t.runStatus != Completed {
		return errs.E("task.Unregister", errs.FailedPrecondition, nil)
	}
	s := &m.slots[h.index]
	s.occupied = false
	s.t = nil
	s.gen++
	m.free = append(m.free, h.index)
	return nil
}

// RegisterPseudoTask adds p to the registry; p must not already be
// registered.
func (m *Manager) RegisterPseudoTask(p *PseudoTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pseudoTasks[p]; exists {
		return errs.E("task.RegisterPseudoTask", errs.AlreadyExists, nil)
	}
	m.pseudoTasks[p] = struct{}{}
	return nil
}

// UnregisterPseudoTask removes p, failing with FailedPrecondition if
// it still has waiters (spec.md §8: "P is unregisterable ⇒
// P.waiters.is_empty()").
func (m *Manager) UnregisterPseudoTask(p *PseudoTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(p.waiters) > 0 {
		return errs.E("task.UnregisterPseudoTask", errs.FailedPrecondition, nil)
	}
	delete(m.pseudoTasks, p)
	return nil
}

// PseudoTaskCount returns the number of currently registered
// pseudo-tasks, used by tests asserting registration cardinality is
// preserved across a register/unregister round trip.
func (m *Manager) PseudoTaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pseudoTasks)
}

// waitTaskOn implements spec.md §4.D's wait_task_on: self must not be
// target's own backing task (self-wait), and must not already be
// parked on target (duplicate wait). Waiting on an already-completed
// target is a no-op that returns a Skipped token immediately.
func (m *Manager) waitTaskOn(self *Task, target *PseudoTask, token any) (WakeupToken, error) {
	m.mu.Lock()

	if target.backing == self {
		m.mu.Unlock()
		return WakeupToken{}, errs.E("task.WaitOn", errs.InvalidArgument, nil)
	}
	if _, dup := self.deps[target]; dup {
		m.mu.Unlock()
		return WakeupToken{}, errs.E("task.WaitOn", errs.AlreadyExists, nil)
	}
	if target.backing != nil && target.backing.runStatus == Completed {
		m.mu.Unlock()
		return WakeupToken{Kind: Skipped}, nil
	}

	m.seq++
	entry := &waiterEntry{task: self, token: token, insertSeq: m.seq}
	heap.Push(&target.waiters, entry)
	self.deps[target] = struct{}{}
	if self.scheduleStatus == Runnable {
		self.scheduleStatus = Waiting
	}
	wakeC := make(chan WakeupToken, 1)
	self.pendingWake = wakeC
	m.mu.Unlock()

	tok := <-wakeC
	return tok, nil
}

// notifyAllLocked delivers tok to every waiter on target; callers must
// hold m.mu.
func (m *Manager) notifyAllLocked(target *PseudoTask, tok WakeupToken) {
	for target.waiters.Len() > 0 {
		e := heap.Pop(&target.waiters).(*waiterEntry)
		m.wakeLocked(e, target, tok)
	}
}

// NotifyAll pops and wakes every waiter on target with the same token.
func (m *Manager) NotifyAll(target *PseudoTask, tok WakeupToken) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := target.waiters.Len()
	m.notifyAllLocked(target, tok)
	return n
}

// NotifyOne pops the single highest-priority waiter, invokes cb to
// produce its token, and wakes it.
func (m *Manager) NotifyOne(target *PseudoTask, cb func() WakeupToken) (woke bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if target.waiters.Len() == 0 {
		return false
	}
	e := heap.Pop(&target.waiters).(*waiterEntry)
	m.wakeLocked(e, target, cb())
	return true
}

// NotifyFilter traverses target's waiter heap in priority order,
// applying filter to each entry: Notify wakes it, Skip reinserts it
// unchanged, Stop halts traversal and retains everything still parked.
func (m *Manager) NotifyFilter(target *PseudoTask, filter func(waitToken any) FilterResult, cb func() WakeupToken) (notified, remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var skipped []*waiterEntry
	for target.waiters.Len() > 0 {
		e := heap.Pop(&target.waiters).(*waiterEntry)
		switch filter(e.token) {
		case Notify:
			m.wakeLocked(e, target, cb())
			notified++
		case Skip:
			skipped = append(skipped, e)
		case Stop:
			heap.Push(&target.waiters, e)
			goto done
		}
	}
done:
	for _, e := range skipped {
		heap.Push(&target.waiters, e)
	}
	remaining = target.waiters.Len()
	return notified, remaining
}

// wakeLocked delivers tok to e's waiting task and, if it has no other
// outstanding dependencies, transitions it back to Runnable. A task
// parked inside WaitOn is still Running on its own goroutine, which the
// delivered token resumes; only a task that is not running is enqueued.
// Caller must hold m.mu.
func (m *Manager) wakeLocked(e *waiterEntry, target *PseudoTask, tok WakeupToken) {
	t := e.task
	delete(t.deps, target)
	if t.pendingWake != nil {
		t.pendingWake <- tok
		t.pendingWake = nil
	}
	if len(t.deps) == 0 && t.scheduleStatus == Waiting {
		t.scheduleStatus = Runnable
		if t.runStatus != Running {
			m.enqueueLocked(t)
		}
	}
}
