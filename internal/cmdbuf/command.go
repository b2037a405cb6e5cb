// Package cmdbuf implements the command-buffer executor (spec.md
// §4.D's "command-buffer semantics" collaborator, and §6's wire-form
// entry kinds): an ordered sequence of scheduler directives compiled
// once and dispatched into a task.WorkerGroup, yielding a
// reference-counted completion handle.
package cmdbuf

import "github.com/nylonring/corert/internal/task"

// Kind names one command-buffer entry. Names follow spec.md §4.D's
// operational vocabulary (Barrier, WaitBuffer); §6's wire-form numbers
// (0 SpawnTask .. 5 SetStackSize) are preserved as the Kind's integer
// values so a compiled buffer's on-disk shape matches the spec's
// enumeration order exactly.
type Kind uint8

const (
	SpawnTask Kind = iota
	Barrier
	WaitBuffer
	SetWorker
	EnableAllWorkers
	SetStackSize
)

func (k Kind) String() string {
	switch k {
	case SpawnTask:
		return "SpawnTask"
	case Barrier:
		return "Barrier"
	case WaitBuffer:
		return "WaitBuffer"
	case SetWorker:
		return "SetWorker"
	case EnableAllWorkers:
		return "EnableAllWorkers"
	case SetStackSize:
		return "SetStackSize"
	default:
		return "Unknown"
	}
}

// TaskSpec describes a task to spawn via a SpawnTask command; the
// worker/stack-size context is resolved when the executor dispatches
// it, from whatever SetWorker/SetStackSize preceded it in the buffer.
type TaskSpec struct {
	Name  string
	Prio  int
	Entry task.EntryFunc
}

// Command is one compiled buffer entry.
type Command struct {
	Kind Kind

	Task          TaskSpec // SpawnTask
	WaitHandle    *Handle  // WaitBuffer
	WorkerID      int      // SetWorker
	MinStackBytes int      // SetStackSize
}

// Builder accumulates commands for one buffer.
type Builder struct {
	commands []Command
}

// NewBuilder starts an empty command buffer.
func NewBuilder() *Builder { return &Builder{} }

// SpawnTask appends a SpawnTask command.
func (b *Builder) SpawnTask(spec TaskSpec) *Builder {
	b.commands = append(b.commands, Command{Kind: SpawnTask, Task: spec})
	return b
}

// Barrier appends a Barrier command: wait for every task spawned so
// far in this buffer to reach Completed.
func (b *Builder) Barrier() *Builder {
	b.commands = append(b.commands, Command{Kind: Barrier})
	return b
}

// WaitBuffer appends a command waiting on another buffer's handle.
func (b *Builder) WaitBuffer(h *Handle) *Builder {
	b.commands = append(b.commands, Command{Kind: WaitBuffer, WaitHandle: h})
	return b
}

// SetWorker pins all following SpawnTask commands to worker w.
func (b *Builder) SetWorker(w int) *Builder {
	b.commands = append(b.commands, Command{Kind: SetWorker, WorkerID: w})
	return b
}

// EnableAllWorkers resets pinning for following SpawnTask commands.
func (b *Builder) EnableAllWorkers() *Builder {
	b.commands = append(b.commands, Command{Kind: EnableAllWorkers})
	return b
}

// SetStackSize requests at least n bytes for following SpawnTask
// commands.
func (b *Builder) SetStackSize(n int) *Builder {
	b.commands = append(b.commands, Command{Kind: SetStackSize, MinStackBytes: n})
	return b
}

// Build freezes the accumulated commands into a CommandBuffer.
func (b *Builder) Build() *CommandBuffer {
	cmds := make([]Command, len(b.commands))
	copy(cmds, b.commands)
	return &CommandBuffer{commands: cmds}
}
