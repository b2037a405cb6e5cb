package task

// ScheduleStatus is the placement half of a task's (schedule, run)
// state pair (spec.md §4.D's state table).
type ScheduleStatus uint8

const (
	// Processing means registered but not yet placed: transient.
	Processing ScheduleStatus = iota
	// Runnable means in the run-queue or eligible for insertion.
	Runnable
	// Waiting means parked on one or more pseudo-tasks; not in queue.
	Waiting
	// Blocked means explicitly blocked; requires an explicit unblock.
	Blocked
)

func (s ScheduleStatus) String() string {
	switch s {
	case Processing:
		return "Processing"
	case Runnable:
		return "Runnable"
	case Waiting:
		return "Waiting"
	case Blocked:
		return "Blocked"
	default:
		return "Unknown"
	}
}

// RunStatus is the execution half of a task's state pair.
type RunStatus uint8

const (
	// Idle means not currently executing on any worker.
	Idle RunStatus = iota
	// Running means currently executing on some worker.
	Running
	// Completed is terminal, reachable only from Running.
	Completed
)

func (r RunStatus) String() string {
	switch r {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	default:
		return "Unknown"
	}
}

// WakeupKind distinguishes how a waiter was resumed.
type WakeupKind uint8

const (
	// Delivered carries a value produced by a notify's data callback.
	Delivered WakeupKind = iota
	// Skipped is written when waiting on an already-completed target.
	Skipped
	// Aborted is delivered to waiters of a task that panicked.
	Aborted
)

// WakeupToken is what a waiter receives when woken, or finds already
// waiting for it when the target had already completed.
type WakeupToken struct {
	Kind  WakeupKind
	Value any
}

// FilterResult is notify_filter's per-waiter disposition.
type FilterResult uint8

const (
	// Notify wakes this waiter and removes it from the heap.
	Notify FilterResult = iota
	// Skip leaves this waiter in the heap, unchanged.
	Skip
	// Stop halts traversal, retaining this and all remaining waiters.
	Stop
)
