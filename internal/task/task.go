package task

// EntryFunc is a task's body. It receives a Context bound to the
// task's own pooled goroutine and may call Context.WaitOn any number
// of times before returning; returning ends the task (Completed).
type EntryFunc func(ctx *Context) any

// Task is the scheduler's internal record for one registered task.
// Every field below is guarded by the owning Manager's mutex except
// while the task is actually executing (entry runs outside the lock,
// per spec.md §4.D's "lock is NOT held during task execution").
type Task struct {
	Handle Handle
	Name   string

	Priority      int
	PinnedWorker  int // -1 means unpinned
	MinStackBytes int

	entry EntryFunc

	scheduleStatus ScheduleStatus
	runStatus      RunStatus

	inQueue    bool
	processing bool
	insertSeq  uint64 // FIFO tie-break within equal priority

	// deps is the set of pseudo-tasks this task is currently parked on.
	// Runnable requires this to be empty (spec.md §8 universal invariant).
	deps map[*PseudoTask]struct{}

	isPanicking   bool
	panicPayload  any
	result        any
	completeWaitC chan struct{} // closed exactly once, on completion

	self *PseudoTask // this task's own identity as a wait target

	// pendingWake, when non-nil, is the channel a call to WaitOn is
	// blocked receiving from; a notify delivers the woken task's token
	// here, which both resumes the parked goroutine and carries the
	// "out address" value the spec describes as a side-channel pointer.
	pendingWake chan WakeupToken

	// slot is not assigned by the worker loop: execute holds the
	// acquired TaskSlot in a local variable for the one dispatch.
	slot *TaskSlot
}

func newTask(h Handle, name string, priority, pinnedWorker, minStack int, entry EntryFunc) *Task {
	t := &Task{
		Handle:        h,
		Name:          name,
		Priority:      priority,
		PinnedWorker:  pinnedWorker,
		MinStackBytes: minStack,
		entry:         entry,
		deps:          make(map[*PseudoTask]struct{}),
		completeWaitC: make(chan struct{}),
	}
	t.self = &PseudoTask{backing: t}
	return t
}

// IsPanicking reports whether the task's terminal state was reached
// via a recovered panic rather than a normal return.
func (t *Task) IsPanicking() bool { return t.isPanicking }

// Result returns the value the entry function returned (or nil if the
// task panicked or has not yet completed).
func (t *Task) Result() any { return t.result }

// Context is handed to a running task's entry function; it is the
// task's only legitimate way to interact with scheduler state, per
// spec.md §4.D ("yield with continuation... the only way tasks
// interact with shared scheduler state").
type Context struct {
	mgr  *Manager
	task *Task
}

// Self returns the pseudo-task identity other tasks can wait on to be
// notified when this task completes.
func (c *Context) Self() *PseudoTask { return c.task.self }

// WaitOn parks the running task on target until a matching notify
// arrives, per spec.md §4.D's wait_task_on. It blocks the calling
// goroutine — which is exactly the point: a goroutine parked on a
// channel receive is this scheduler's "stackful yield".
func (c *Context) WaitOn(target *PseudoTask, token any) (WakeupToken, error) {
	return c.mgr.waitTaskOn(c.task, target, token)
}

// Yield runs fn under the manager's lock, synchronously on the calling
// task's goroutine; the task does not vacate its worker first and
// continues once fn returns. fn must not block.
func (c *Context) Yield(fn func()) {
	c.mgr.mu.Lock()
	fn()
	c.mgr.mu.Unlock()
}
