// Package corert is the module root: it ties together the object
// layer, symbol registry, module subsystem, and (once a task-subsystem
// module has loaded and registered itself) the task scheduler behind
// one host-facing Context, per spec.md §2's data-flow paragraph — "A
// host process creates a Context holding singletons for tracing,
// modules, and (optionally) tasks."
package corert

import (
	"sync"

	"github.com/nylonring/corert/internal/cmdbuf"
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/module"
	"github.com/nylonring/corert/internal/symbol"
	"github.com/nylonring/corert/internal/task"
	"github.com/nylonring/corert/internal/tracing"
)

// FeatureList names the optional capabilities a host offers a plugin
// at load time (spec.md §6's plugin ABI "features" argument). A
// plugin requiring a feature absent from the host's list should fail
// construction with errs.Unavailable.
type FeatureList []string

// Has reports whether name is present in the list.
func (fl FeatureList) Has(name string) bool {
	for _, f := range fl {
		if f == name {
			return true
		}
	}
	return false
}

// TaskSubsystem bundles the components 4.D and 4.E describe — they
// live inside a loaded module (not the host) and are wired into the
// Context only once that module's constructor calls
// Context.RegisterTaskSubsystem. Until then, Context.Tasks() reports
// ok=false.
type TaskSubsystem struct {
	Manager  *task.Manager
	Workers  *task.WorkerGroup
	Executor *cmdbuf.Executor
}

// Context is the single host-owned handle onto the whole runtime: the
// tracing dispatcher, the module subsystem, and (optionally) the task
// scheduler a loaded module has registered. There is exactly one
// Context per host process in ordinary use, but nothing here is
// package-global — tests construct independent Contexts freely.
type Context struct {
	tracingDispatcher *tracing.Dispatcher
	modules           *module.Subsystem

	mu    sync.RWMutex
	tasks *TaskSubsystem
}

// New constructs a Context around a fresh module subsystem backed by
// registry and loader, and the process-wide tracing dispatcher.
func New(registry *symbol.Registry, loader module.Loader) *Context {
	return &Context{
		tracingDispatcher: tracing.Global(),
		modules:           module.NewSubsystem(registry, loader),
	}
}

// Tracing returns the Context's tracing dispatcher.
func (c *Context) Tracing() *tracing.Dispatcher { return c.tracingDispatcher }

// Modules returns the Context's module subsystem.
func (c *Context) Modules() *module.Subsystem { return c.modules }

// RootInstance returns the privileged instance the host uses to
// bootstrap access to the module subsystem.
func (c *Context) RootInstance() *module.Instance { return c.modules.NewRootInstance() }

// Tasks returns the task subsystem a loaded module has registered, if
// any. Components D and E live inside a module per spec.md §2 — a
// host with no task-subsystem module loaded has no scheduler to speak
// of, so this is an optional accessor rather than a field populated
// at construction.
func (c *Context) Tasks() (*TaskSubsystem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tasks, c.tasks != nil
}

// RegisterTaskSubsystem installs ts as the Context's task subsystem.
// Called once, by the task-subsystem module's own constructor, after
// it has built its Manager/WorkerGroup/Executor and started its
// workers. A second registration without an intervening
// UnregisterTaskSubsystem (e.g. on that module's unload) is rejected.
func (c *Context) RegisterTaskSubsystem(ts *TaskSubsystem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tasks != nil {
		return errs.E("corert.RegisterTaskSubsystem", errs.AlreadyExists, nil)
	}
	c.tasks = ts
	return nil
}

// UnregisterTaskSubsystem removes the currently registered task
// subsystem, called when the module that provided it is unloaded.
func (c *Context) UnregisterTaskSubsystem() {
	c.mu.Lock()
	c.tasks = nil
	c.mu.Unlock()
}
