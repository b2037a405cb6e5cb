// Package task implements the cooperative M:N task scheduler
// (spec.md §4.D): a priority run-queue, parking-lot style wait/notify
// primitives over pseudo-tasks, and per-task "stacks" realized as
// pooled, parked goroutines rather than raw stack memory — a parked
// goroutine already is a stackful coroutine in Go's runtime model, so
// StackAllocator pools those instead of mapping memory.
package task

// Handle is a stable reference to a registered task: an index into the
// manager's arena plus a generation counter, mirroring module.ModuleID
// so a stale handle from a completed-and-reused slot is never silently
// confused with whatever gets registered into the same slot later.
type Handle struct {
	index      uint32
	generation uint32
}

// IsValid reports whether h could possibly name a live task (the zero
// Handle is never returned by Register, so it is always invalid).
func (h Handle) IsValid() bool { return h != Handle{} }
