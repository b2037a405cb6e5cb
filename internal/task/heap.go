package task

import "container/heap"

// waiterEntry is one (task, wait_token) pair parked on a PseudoTask,
// ordered by descending priority with FIFO tie-break on insertSeq —
// spec.md §4.D: "highest-priority waiter is woken first; ties resolve
// FIFO by insertion order".
type waiterEntry struct {
	task      *Task
	token     any
	insertSeq uint64
}

type waiterHeap []*waiterEntry

func (h waiterHeap) Len() int { return len(h) }
func (h waiterHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].insertSeq < h[j].insertSeq
}
func (h waiterHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *waiterHeap) Push(x any)   { *h = append(*h, x.(*waiterEntry)) }
func (h *waiterHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// PseudoTask is any pointer-identified wait/notify token, optionally
// backed by a concrete Task (a task waiting on another task's
// completion waits on that task's own PseudoTask — see Context.Self).
type PseudoTask struct {
	backing *Task // nil for a pure, task-less wait token
	waiters waiterHeap
}

// NewPseudoTask creates a free-standing wait/notify token not backed
// by any task.
func NewPseudoTask() *PseudoTask { return &PseudoTask{} }

// Backing returns the task this pseudo-task represents, if any.
func (p *PseudoTask) Backing() *Task { return p.backing }

// runEntry is one task waiting to be dispatched, ordered the same way
// as waiterEntry: priority descending, then FIFO.
type runEntry struct {
	task      *Task
	insertSeq uint64
}

type runHeap []*runEntry

func (h runHeap) Len() int { return len(h) }
func (h runHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].insertSeq < h[j].insertSeq
}
func (h runHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x any)   { *h = append(*h, x.(*runEntry)) }
func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

var (
	_ heap.Interface = (*waiterHeap)(nil)
	_ heap.Interface = (*runHeap)(nil)
)
